package contractcontent

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContractContent is the substantive, hashable part of a contract.
// Record identifiers, statuses, audit timestamps, and authoring users
// live on the surrounding aggregate and never enter canonicalization.
type ContractContent struct {
	CustomerName  string
	CustomerTaxID string
	CustomerEmail string
	CustomerPhone string

	Street       string
	StreetNumber string
	Complement   string
	City         string
	State        string
	ZipCode      string
	Latitude     *decimal.Decimal
	Longitude    *decimal.Decimal

	CapacityKWp   decimal.Decimal
	ScheduledDate time.Time

	LineItems      []LineItem
	ServiceEntries []ServiceEntry

	Amount        decimal.Decimal
	PaymentMethod string
}

// LineItem is one billable position. SortOrder, not Name, determines
// canonical ordering.
type LineItem struct {
	Name      string
	Quantity  int
	Unit      string
	SortOrder int
}

type ServiceEntry struct {
	Description string
	Included    bool
}
