package persistence

import (
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/solarium-dev/solarium/modules/contracts/domain/aggregates/contract"
	"github.com/solarium-dev/solarium/modules/contracts/domain/aggregates/signaturerequest"
	"github.com/solarium-dev/solarium/modules/contracts/domain/contenthash"
	"github.com/solarium-dev/solarium/modules/contracts/domain/contractcontent"
	"github.com/solarium-dev/solarium/modules/contracts/domain/entities/auditlog"
	"github.com/solarium-dev/solarium/modules/contracts/domain/entities/webhookevent"
	"github.com/solarium-dev/solarium/modules/contracts/infrastructure/persistence/models"
)

// contentJSON is the storage shape of ContractContent.
type contentJSON struct {
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
	Latitude      *string `json:"latitude,omitempty"`
	Longitude     *string `json:"longitude,omitempty"`
	CapacityKWp   string  `json:"capacity_kwp"`
	ScheduledDate string  `json:"scheduled_date,omitempty"`

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

func marshalContent(c contractcontent.ContractContent) (json.RawMessage, error) {
	out := contentJSON{
		CustomerName:  c.CustomerName,
		CustomerTaxID: c.CustomerTaxID,
		CustomerEmail: c.CustomerEmail,
		CustomerPhone: c.CustomerPhone,
		Street:        c.Street,
		StreetNumber:  c.StreetNumber,
		Complement:    c.Complement,
		City:          c.City,
		State:         c.State,
		ZipCode:       c.ZipCode,
		CapacityKWp:   c.CapacityKWp.String(),
		Amount:        c.Amount.String(),
		PaymentMethod: c.PaymentMethod,
	}
	if c.Latitude != nil {
		v := c.Latitude.String()
		out.Latitude = &v
	}
	if c.Longitude != nil {
		v := c.Longitude.String()
		out.Longitude = &v
	}
	if !c.ScheduledDate.IsZero() {
		out.ScheduledDate = c.ScheduledDate.Format("2006-01-02")
	}
	for _, item := range c.LineItems {
		out.LineItems = append(out.LineItems, struct {
			Name      string `json:"name"`
			Quantity  int    `json:"quantity"`
			Unit      string `json:"unit"`
			SortOrder int    `json:"sort_order"`
		}{item.Name, item.Quantity, item.Unit, item.SortOrder})
	}
	for _, svc := range c.ServiceEntries {
		out.ServiceEntries = append(out.ServiceEntries, struct {
			Description string `json:"description"`
			Included    bool   `json:"included"`
		}{svc.Description, svc.Included})
	}
	return json.Marshal(out)
}

func unmarshalContent(raw json.RawMessage) (contractcontent.ContractContent, error) {
	var in contentJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return contractcontent.ContractContent{}, errors.Wrap(err, "failed to decode contract content")
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
	var err error
	if out.CapacityKWp, err = decimal.NewFromString(zeroIfEmpty(in.CapacityKWp)); err != nil {
		return contractcontent.ContractContent{}, errors.Wrap(err, "failed to parse capacity_kwp")
	}
	if out.Amount, err = decimal.NewFromString(zeroIfEmpty(in.Amount)); err != nil {
		return contractcontent.ContractContent{}, errors.Wrap(err, "failed to parse amount")
	}
	if in.Latitude != nil {
		d, err := decimal.NewFromString(*in.Latitude)
		if err != nil {
			return contractcontent.ContractContent{}, err
		}
		out.Latitude = &d
	}
	if in.Longitude != nil {
		d, err := decimal.NewFromString(*in.Longitude)
		if err != nil {
			return contractcontent.ContractContent{}, err
		}
		out.Longitude = &d
	}
	if in.ScheduledDate != "" {
		t, err := time.Parse("2006-01-02", in.ScheduledDate)
		if err != nil {
			return contractcontent.ContractContent{}, err
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

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func toDBContract(c contract.Contract) (*models.Contract, error) {
	content, err := marshalContent(c.Content())
	if err != nil {
		return nil, err
	}
	row := &models.Contract{
		ID:          c.ID(),
		TenantID:    c.TenantID(),
		Number:      c.Number(),
		Status:      string(c.Status()),
		Content:     content,
		ContentHash: c.ContentHash().String(),
		CreatedAt:   c.CreatedAt(),
		UpdatedAt:   c.UpdatedAt(),
	}
	if c.SignedHash() != "" {
		v := c.SignedHash().String()
		row.SignedHash = &v
	}
	return row, nil
}

func toDomainContract(row *models.Contract) (contract.Contract, error) {
	content, err := unmarshalContent(row.Content)
	if err != nil {
		return contract.Contract{}, err
	}
	var signedHash contenthash.ContentHash
	if row.SignedHash != nil {
		signedHash = contenthash.Parse(*row.SignedHash)
	}
	return contract.Hydrate(
		row.ID,
		row.TenantID,
		row.Number,
		contract.Status(row.Status),
		content,
		contenthash.Parse(row.ContentHash),
		signedHash,
		row.CreatedAt,
		row.UpdatedAt,
	), nil
}

func toDBAuditLog(entry *auditlog.Entry) *models.AuditLog {
	row := &models.AuditLog{
		ID:          entry.ID,
		TenantID:    entry.TenantID,
		ContractID:  entry.ContractID,
		EventKind:   string(entry.EventKind),
		ContentHash: entry.ContentHash.String(),
		SignerID:    entry.SignerID,
		Metadata:    entry.Metadata,
		CreatedAt:   entry.CreatedAt,
	}
	if entry.SignatureChannel != "" {
		v := entry.SignatureChannel
		row.SignatureChannel = &v
	}
	if entry.IP != "" {
		v := entry.IP
		row.IP = &v
	}
	if entry.UserAgent != "" {
		v := entry.UserAgent
		row.UserAgent = &v
	}
	return row
}

func toDomainAuditLog(row *models.AuditLog) *auditlog.Entry {
	entry := &auditlog.Entry{
		ID:          row.ID,
		TenantID:    row.TenantID,
		ContractID:  row.ContractID,
		EventKind:   auditlog.EventKind(row.EventKind),
		ContentHash: contenthash.Parse(row.ContentHash),
		SignerID:    row.SignerID,
		Metadata:    row.Metadata,
		CreatedAt:   row.CreatedAt,
	}
	if row.SignatureChannel != nil {
		entry.SignatureChannel = *row.SignatureChannel
	}
	if row.IP != nil {
		entry.IP = *row.IP
	}
	if row.UserAgent != nil {
		entry.UserAgent = *row.UserAgent
	}
	return entry
}

func toDBSignatureRequest(req signaturerequest.SignatureRequest) (*models.SignatureRequest, []*models.Signer, error) {
	row := &models.SignatureRequest{
		ID:                 req.ID(),
		TenantID:           req.TenantID(),
		ContractID:         req.ContractID(),
		Provider:           string(req.Provider()),
		DocumentHash:       req.DocumentHash().String(),
		Status:             string(req.Status()),
		Sequential:         req.Sequential(),
		ExpiresAt:          req.ExpiresAt(),
		RemindEverySeconds: int64(req.RemindEvery().Seconds()),
		Version:            req.Version(),
		CreatedAt:          req.CreatedAt(),
		UpdatedAt:          req.UpdatedAt(),
		SentAt:             req.SentAt(),
		CompletedAt:        req.CompletedAt(),
	}
	if req.ProviderRequestID() != "" {
		v := req.ProviderRequestID()
		row.ProviderRequestID = &v
	}
	if req.Subject() != "" {
		v := req.Subject()
		row.Subject = &v
	}
	if req.Message() != "" {
		v := req.Message()
		row.Message = &v
	}

	signers := make([]*models.Signer, 0, len(req.Signers()))
	for _, s := range req.Signers() {
		signerRow, err := toDBSigner(req.ID(), s)
		if err != nil {
			return nil, nil, err
		}
		signers = append(signers, signerRow)
	}
	return row, signers, nil
}

func toDBSigner(requestID uuid.UUID, s signaturerequest.Signer) (*models.Signer, error) {
	fields := make([]models.SignerField, 0, len(s.Fields))
	for _, f := range s.Fields {
		fields = append(fields, models.SignerField{
			Kind:     string(f.Kind),
			Page:     f.Page,
			X:        f.X,
			Y:        f.Y,
			Width:    f.Width,
			Height:   f.Height,
			Required: f.Required,
		})
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	row := &models.Signer{
		ID:         s.ID,
		RequestID:  requestID,
		OrderIndex: s.OrderIndex,
		Name:       s.Name,
		Email:      s.Email,
		Auth:       string(s.Auth),
		Status:     string(s.Status),
		Fields:     fieldsJSON,
		SentAt:     s.SentAt,
		ViewedAt:   s.ViewedAt,
		SignedAt:   s.SignedAt,
		DeclinedAt: s.DeclinedAt,
	}
	if s.Phone != "" {
		v := s.Phone
		row.Phone = &v
	}
	return row, nil
}

func toDomainSigner(row *models.Signer) (signaturerequest.Signer, error) {
	var fields []models.SignerField
	if len(row.Fields) > 0 {
		if err := json.Unmarshal(row.Fields, &fields); err != nil {
			return signaturerequest.Signer{}, errors.Wrap(err, "failed to decode signer fields")
		}
	}
	s := signaturerequest.Signer{
		ID:         row.ID,
		OrderIndex: row.OrderIndex,
		Name:       row.Name,
		Email:      row.Email,
		Auth:       signaturerequest.AuthRequirement(row.Auth),
		Status:     signaturerequest.SignerStatus(row.Status),
		SentAt:     row.SentAt,
		ViewedAt:   row.ViewedAt,
		SignedAt:   row.SignedAt,
		DeclinedAt: row.DeclinedAt,
	}
	if row.Phone != nil {
		s.Phone = *row.Phone
	}
	for _, f := range fields {
		s.Fields = append(s.Fields, signaturerequest.Field{
			Kind:     signaturerequest.FieldKind(f.Kind),
			Page:     f.Page,
			X:        f.X,
			Y:        f.Y,
			Width:    f.Width,
			Height:   f.Height,
			Required: f.Required,
		})
	}
	return s, nil
}

func toDomainSignatureRequest(row *models.SignatureRequest, signerRows []*models.Signer) (signaturerequest.SignatureRequest, error) {
	signers := make([]signaturerequest.Signer, 0, len(signerRows))
	for _, signerRow := range signerRows {
		s, err := toDomainSigner(signerRow)
		if err != nil {
			return nil, err
		}
		signers = append(signers, s)
	}

	providerRequestID := ""
	if row.ProviderRequestID != nil {
		providerRequestID = *row.ProviderRequestID
	}
	subject := ""
	if row.Subject != nil {
		subject = *row.Subject
	}
	message := ""
	if row.Message != nil {
		message = *row.Message
	}

	return signaturerequest.Hydrate(
		row.ID,
		row.TenantID,
		row.ContractID,
		signaturerequest.Provider(row.Provider),
		providerRequestID,
		contenthash.Parse(row.DocumentHash),
		subject,
		message,
		signaturerequest.Status(row.Status),
		row.Sequential,
		row.ExpiresAt,
		time.Duration(row.RemindEverySeconds)*time.Second,
		signers,
		row.Version,
		row.CreatedAt,
		row.UpdatedAt,
		row.SentAt,
		row.CompletedAt,
	), nil
}

func toDBWebhookEvent(event *webhookevent.Event) *models.WebhookEvent {
	row := &models.WebhookEvent{
		ID:          event.ID,
		TenantID:    event.TenantID,
		Provider:    string(event.Provider),
		Payload:     event.Payload,
		Processed:   event.Processed,
		Attempts:    event.Attempts,
		ReceivedAt:  event.ReceivedAt,
		ProcessedAt: event.ProcessedAt,
	}
	if event.ProviderRequestID != "" {
		v := event.ProviderRequestID
		row.ProviderRequestID = &v
	}
	if event.ProcessingError != "" {
		v := event.ProcessingError
		row.ProcessingError = &v
	}
	return row
}

func toDomainWebhookEvent(row *models.WebhookEvent) *webhookevent.Event {
	event := &webhookevent.Event{
		ID:          row.ID,
		TenantID:    row.TenantID,
		Provider:    signaturerequest.Provider(row.Provider),
		Payload:     row.Payload,
		Processed:   row.Processed,
		Attempts:    row.Attempts,
		ReceivedAt:  row.ReceivedAt,
		ProcessedAt: row.ProcessedAt,
	}
	if row.ProviderRequestID != nil {
		event.ProviderRequestID = *row.ProviderRequestID
	}
	if row.ProcessingError != nil {
		event.ProcessingError = *row.ProcessingError
	}
	return event
}
