package contractcontent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	pairDelimiter = ";"
	coordScale    = 6
	moneyScale    = 2
)

// Canonical renders the content as one deterministic string. Scalar
// fields are emitted as sorted name:value pairs, line items ordered by
// SortOrder, service entries ordered by description. Absent optionals
// serialize to an empty value so the key set never varies.
func (c ContractContent) Canonical() string {
	pairs := []struct {
		key   string
		value string
	}{
		{"amount", c.Amount.StringFixed(moneyScale)},
		{"capacity_kwp", c.CapacityKWp.StringFixed(moneyScale)},
		{"city", c.City},
		{"complement", c.Complement},
		{"customer_email", c.CustomerEmail},
		{"customer_name", c.CustomerName},
		{"customer_phone", c.CustomerPhone},
		{"customer_tax_id", c.CustomerTaxID},
		{"latitude", optionalCoord(c.Latitude)},
		{"longitude", optionalCoord(c.Longitude)},
		{"payment_method", c.PaymentMethod},
		{"scheduled_date", optionalDate(c)},
		{"state", c.State},
		{"street", c.Street},
		{"street_number", c.StreetNumber},
		{"zip_code", c.ZipCode},
	}
	// The literal above is already sorted; the explicit sort keeps the
	// output stable if a field is ever added out of order.
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	parts := make([]string, 0, len(pairs)+len(c.LineItems)+len(c.ServiceEntries))
	for _, p := range pairs {
		parts = append(parts, p.key+":"+p.value)
	}

	items := make([]LineItem, len(c.LineItems))
	copy(items, c.LineItems)
	sort.SliceStable(items, func(i, j int) bool { return items[i].SortOrder < items[j].SortOrder })
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("item:%s|%d|%s", item.Name, item.Quantity, item.Unit))
	}

	services := make([]ServiceEntry, len(c.ServiceEntries))
	copy(services, c.ServiceEntries)
	sort.SliceStable(services, func(i, j int) bool { return services[i].Description < services[j].Description })
	for _, svc := range services {
		parts = append(parts, fmt.Sprintf("service:%s|%t", svc.Description, svc.Included))
	}

	return strings.Join(parts, pairDelimiter)
}

func optionalCoord(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.StringFixed(coordScale)
}

func optionalDate(c ContractContent) string {
	if c.ScheduledDate.IsZero() {
		return ""
	}
	return c.ScheduledDate.Format("2006-01-02")
}
