package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solarium-dev/solarium/modules/contracts/domain/contractcontent"
)

// contentInput is the JSON shape the tool reads from a file or stdin.
type contentInput struct {
	CustomerName  string  `json:"customer_name"`
	CustomerTaxID string  `json:"customer_tax_id"`
	CustomerEmail string  `json:"customer_email"`
	CustomerPhone string  `json:"customer_phone"`
	Street        string  `json:"street"`
	StreetNumber  string  `json:"street_number"`
	Complement    string  `json:"complement"`
	City          string  `json:"city"`
	State         string  `json:"state"`
	ZipCode       string  `json:"zip_code"`
	Latitude      *string `json:"latitude"`
	Longitude     *string `json:"longitude"`
	CapacityKWp   string  `json:"capacity_kwp"`
	ScheduledDate string  `json:"scheduled_date"`

	LineItems []struct {
		Name      string `json:"name"`
		Quantity  int    `json:"quantity"`
		Unit      string `json:"unit"`
		SortOrder int    `json:"sort_order"`
	} `json:"line_items"`
	ServiceEntries []struct {
		Description string `json:"description"`
		Included    bool   `json:"included"`
	} `json:"service_entries"`

	Amount        string `json:"amount"`
	PaymentMethod string `json:"payment_method"`
}

// readContent loads contract content from path, or stdin when path is
// "-".
func readContent(path string) (contractcontent.ContractContent, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return contractcontent.ContractContent{}, err
	}

	var in contentInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return contractcontent.ContractContent{}, fmt.Errorf("invalid content json: %w", err)
	}

	out := contractcontent.ContractContent{
		CustomerName:  in.CustomerName,
		CustomerTaxID: in.CustomerTaxID,
		CustomerEmail: in.CustomerEmail,
		CustomerPhone: in.CustomerPhone,
		Street:        in.Street,
		StreetNumber:  in.StreetNumber,
		Complement:    in.Complement,
		City:          in.City,
		State:         in.State,
		ZipCode:       in.ZipCode,
		PaymentMethod: in.PaymentMethod,
	}
	if in.CapacityKWp != "" {
		if out.CapacityKWp, err = decimal.NewFromString(in.CapacityKWp); err != nil {
			return contractcontent.ContractContent{}, fmt.Errorf("invalid capacity_kwp: %w", err)
		}
	}
	if in.Amount != "" {
		if out.Amount, err = decimal.NewFromString(in.Amount); err != nil {
			return contractcontent.ContractContent{}, fmt.Errorf("invalid amount: %w", err)
		}
	}
	if in.Latitude != nil {
		d, err := decimal.NewFromString(*in.Latitude)
		if err != nil {
			return contractcontent.ContractContent{}, fmt.Errorf("invalid latitude: %w", err)
		}
		out.Latitude = &d
	}
	if in.Longitude != nil {
		d, err := decimal.NewFromString(*in.Longitude)
		if err != nil {
			return contractcontent.ContractContent{}, fmt.Errorf("invalid longitude: %w", err)
		}
		out.Longitude = &d
	}
	if in.ScheduledDate != "" {
		t, err := time.Parse("2006-01-02", in.ScheduledDate)
		if err != nil {
			return contractcontent.ContractContent{}, fmt.Errorf("invalid scheduled_date: %w", err)
		}
		out.ScheduledDate = t
	}
	for _, item := range in.LineItems {
		out.LineItems = append(out.LineItems, contractcontent.LineItem{
			Name:      item.Name,
			Quantity:  item.Quantity,
			Unit:      item.Unit,
			SortOrder: item.SortOrder,
		})
	}
	for _, svc := range in.ServiceEntries {
		out.ServiceEntries = append(out.ServiceEntries, contractcontent.ServiceEntry{
			Description: svc.Description,
			Included:    svc.Included,
		})
	}
	return out, nil
}
