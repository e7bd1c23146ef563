package resource

import "strings"

// Capability is a set of operations an entity supports.
type Capability uint8

const (
	CanRead Capability = 1 << iota
	CanCreate
	CanUpdate
	CanDelete

	ReadOnly = CanRead
	NoDelete = CanRead | CanCreate | CanUpdate
	CRUD     = CanRead | CanCreate | CanUpdate | CanDelete
)

func (c Capability) Has(op Capability) bool {
	return c&op == op
}

func (c Capability) String() string {
	var ops []string
	for _, op := range []struct {
		cap  Capability
		name string
	}{{CanRead, "read"}, {CanCreate, "create"}, {CanUpdate, "update"}, {CanDelete, "delete"}} {
		if c.Has(op.cap) {
			ops = append(ops, op.name)
		}
	}
	if len(ops) == 0 {
		return "none"
	}
	return strings.Join(ops, "|")
}

// Entity names an API entity, the prefix of its remote methods.
type Entity struct {
	Name string
	Caps Capability
}

// Method returns the remote method name for action, e.g. "company.get".
func (e Entity) Method(action string) string {
	return e.Name + "." + action
}

var (
	AbsenceRequest            = Entity{"absencerequest", CRUD}
	AbsenceRequestLine        = Entity{"absencerequestline", CRUD}
	BulkPrice                 = Entity{"bulkprice", CRUD}
	CalendarItem              = Entity{"calendaritem", CRUD}
	Company                   = Entity{"company", CRUD}
	CompanyDossier            = Entity{"companydossier", CRUD}
	Contact                   = Entity{"contact", CRUD}
	Contract                  = Entity{"contract", CRUD}
	ContractLine              = Entity{"contractline", CRUD}
	Cost                      = Entity{"cost", ReadOnly}
	Department                = Entity{"department", CRUD}
	Employee                  = Entity{"employee", CRUD}
	EmployeeFamily            = Entity{"employeefamily", CRUD}
	EmployeeTarget            = Entity{"employeetarget", ReadOnly}
	EmployeeYearlyLeaveBudget = Entity{"employeeYearlyLeaveBudget", NoDelete}
	EmploymentContract        = Entity{"employmentcontract", CRUD}
	ExternalLink              = Entity{"externallink", CRUD}
	File                      = Entity{"file", ReadOnly}
	Hour                      = Entity{"hour", CRUD}
	Invoice                   = Entity{"invoice", CRUD}
	InvoiceLine               = Entity{"invoiceline", CRUD}
	Ledger                    = Entity{"ledger", CRUD}
	Memorial                  = Entity{"memorial", ReadOnly}
	MemorialLine              = Entity{"memorialline", ReadOnly}
	Notification              = Entity{"notification", 0}
	Offer                     = Entity{"offer", CRUD}
	OfferProjectLine          = Entity{"offerprojectline", CRUD}
	Packet                    = Entity{"packet", CRUD}
	PacketLine                = Entity{"packetline", CRUD}
	Payment                   = Entity{"payment", CRUD}
	PriceException            = Entity{"priceexception", CRUD}
	Product                   = Entity{"product", CRUD}
	Project                   = Entity{"project", CRUD}
	PurchaseInvoice           = Entity{"purchaseinvoice", CRUD}
	PurchaseInvoiceLine       = Entity{"purchaseinvoiceline", CRUD}
	PurchaseOrder             = Entity{"purchaseorder", CRUD}
	PurchaseOrderLine         = Entity{"purchaseorderline", CRUD}
	PurchasePayment           = Entity{"purchasepayment", CRUD}
	RejectionReason           = Entity{"rejectionreason", CRUD}
	RevenueTarget             = Entity{"revenuetarget", ReadOnly}
	Task                      = Entity{"task", CRUD}
	TaskType                  = Entity{"tasktype", CRUD}
	TimelineEntry             = Entity{"timelineentry", CRUD}
	UmbrellaProject           = Entity{"umbrellaproject", NoDelete}
	Webhook                   = Entity{"webhook", CRUD}
	YearTarget                = Entity{"yeartarget", ReadOnly}
	YearTargetType            = Entity{"yeartargettype", ReadOnly}
)

// Entities lists every known entity.
var Entities = []Entity{
	AbsenceRequest, AbsenceRequestLine, BulkPrice, CalendarItem, Company,
	CompanyDossier, Contact, Contract, ContractLine, Cost, Department, Employee,
	EmployeeFamily, EmployeeTarget, EmployeeYearlyLeaveBudget, EmploymentContract,
	ExternalLink, File, Hour, Invoice, InvoiceLine, Ledger, Memorial,
	MemorialLine, Notification, Offer, OfferProjectLine, Packet, PacketLine,
	Payment, PriceException, Product, Project, PurchaseInvoice,
	PurchaseInvoiceLine, PurchaseOrder, PurchaseOrderLine, PurchasePayment,
	RejectionReason, RevenueTarget, Task, TaskType, TimelineEntry,
	UmbrellaProject, Webhook, YearTarget, YearTargetType,
}

// Lookup finds a known entity by name, case-insensitively.
func Lookup(name string) (Entity, bool) {
	for _, e := range Entities {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return Entity{}, false
}
