package resource

// Operator is a filter comparison understood by the API.
type Operator string

const (
	Equals             Operator = "equals"
	NotEquals          Operator = "notequals"
	Contains           Operator = "contains"
	NotContains        Operator = "notcontains"
	StartsWith         Operator = "startswith"
	EndsWith           Operator = "endswith"
	GreaterThan        Operator = "greaterthan"
	LessThan           Operator = "lessthan"
	GreaterThanOrEqual Operator = "greaterthanorequal"
	LessThanOrEqual    Operator = "lessthanorequal"
	In                 Operator = "in"
	NotIn              Operator = "notin"
	IsNull             Operator = "isnull"
	IsNotNull          Operator = "isnotnull"
)

// Valid reports whether op is one of the known operators.
func (op Operator) Valid() bool {
	switch op {
	case Equals, NotEquals, Contains, NotContains, StartsWith, EndsWith,
		GreaterThan, LessThan, GreaterThanOrEqual, LessThanOrEqual,
		In, NotIn, IsNull, IsNotNull:
		return true
	}
	return false
}

// Filter is one condition of a "<entity>.get" call. Field names are
// qualified with the entity, e.g. "company.active".
type Filter struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// Direction is an ordering direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type Ordering struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

type Paging struct {
	FirstResult int `json:"firstresult"`
	MaxResults  int `json:"maxresults"`
}

// Options is the second positional param of a list call.
type Options struct {
	Orderings []Ordering `json:"orderings,omitempty"`
	Paging    *Paging    `json:"paging,omitempty"`
}
