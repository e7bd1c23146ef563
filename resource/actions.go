package resource

import (
	"context"

	"github.com/mnehpets/gripp/jsonrpc"
)

// CompanyByCOC looks up a company by its Chamber of Commerce number.
func CompanyByCOC(ctx context.Context, c Caller, coc string) (*jsonrpc.Response, error) {
	return New(c, Company).Call(ctx, "getCompanyByCOC", coc)
}

// MarkInvoiceSent flags an invoice as sent.
func MarkInvoiceSent(ctx context.Context, c Caller, id int64) (*jsonrpc.Response, error) {
	return New(c, Invoice).Call(ctx, "markAsSent", id)
}

// Notify sends a notification to the given employees.
func Notify(ctx context.Context, c Caller, employeeIDs []int64, title, body, eventType string) (*jsonrpc.Response, error) {
	if employeeIDs == nil {
		employeeIDs = []int64{}
	}
	return New(c, Notification).Call(ctx, "emit", employeeIDs, title, body, eventType)
}

// NotifyAll sends a notification to every employee.
func NotifyAll(ctx context.Context, c Caller, title, body, eventType string) (*jsonrpc.Response, error) {
	return New(c, Notification).Call(ctx, "emitall", title, body, eventType)
}
