package persistence

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/solarium-dev/solarium/modules/contracts/domain/aggregates/signaturerequest"
	"github.com/solarium-dev/solarium/modules/contracts/infrastructure/persistence/models"
	"github.com/solarium-dev/solarium/pkg/composables"
	"github.com/solarium-dev/solarium/pkg/repo"
)

type SignatureRequestRepository struct{}

func NewSignatureRequestRepository() signaturerequest.Repository {
	return &SignatureRequestRepository{}
}

const signatureRequestColumns = `id, tenant_id, contract_id, provider, provider_request_id, document_hash, subject, message, status, sequential, expires_at, remind_every_seconds, version, created_at, updated_at, sent_at, completed_at`

func scanSignatureRequest(row pgx.Row) (*models.SignatureRequest, error) {
	var m models.SignatureRequest
	if err := row.Scan(
		&m.ID,
		&m.TenantID,
		&m.ContractID,
		&m.Provider,
		&m.ProviderRequestID,
		&m.DocumentHash,
		&m.Subject,
		&m.Message,
		&m.Status,
		&m.Sequential,
		&m.ExpiresAt,
		&m.RemindEverySeconds,
		&m.Version,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.SentAt,
		&m.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *SignatureRequestRepository) loadSigners(ctx context.Context, requestID uuid.UUID) ([]*models.Signer, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT id, request_id, order_index, name, email, phone, auth, status, fields, sent_at, viewed_at, signed_at, declined_at
		FROM signature_signers
		WHERE request_id = $1
		ORDER BY order_index ASC
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signers []*models.Signer
	for rows.Next() {
		var row models.Signer
		if err := rows.Scan(
			&row.ID,
			&row.RequestID,
			&row.OrderIndex,
			&row.Name,
			&row.Email,
			&row.Phone,
			&row.Auth,
			&row.Status,
			&row.Fields,
			&row.SentAt,
			&row.ViewedAt,
			&row.SignedAt,
			&row.DeclinedAt,
		); err != nil {
			return nil, err
		}
		signers = append(signers, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return signers, nil
}

func (r *SignatureRequestRepository) queryOne(ctx context.Context, query string, args ...interface{}) (signaturerequest.SignatureRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	row, err := scanSignatureRequest(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, signaturerequest.ErrNotFound
		}
		return nil, err
	}
	signers, err := r.loadSigners(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	return toDomainSignatureRequest(row, signers)
}

func (r *SignatureRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (signaturerequest.SignatureRequest, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	return r.queryOne(ctx, `
		SELECT `+signatureRequestColumns+`
		FROM signature_requests
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
}

// GetByProviderRequestID deliberately ignores tenant scoping: webhook
// deliveries carry no tenant, only the provider envelope id.
func (r *SignatureRequestRepository) GetByProviderRequestID(
	ctx context.Context,
	provider signaturerequest.Provider,
	providerRequestID string,
) (signaturerequest.SignatureRequest, error) {
	return r.queryOne(ctx, `
		SELECT `+signatureRequestColumns+`
		FROM signature_requests
		WHERE provider = $1 AND provider_request_id = $2
	`, string(provider), providerRequestID)
}

func (r *SignatureRequestRepository) List(ctx context.Context, params *signaturerequest.FindParams) ([]signaturerequest.SignatureRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	if params != nil && params.ContractID != uuid.Nil {
		args = append(args, params.ContractID)
		where = append(where, "contract_id = $"+strconv.Itoa(len(args)))
	}
	if params != nil && params.Status != "" {
		args = append(args, string(params.Status))
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}

	query := `
		SELECT ` + signatureRequestColumns + `
		FROM signature_requests
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC
	`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var rowModels []*models.SignatureRequest
	for rows.Next() {
		row, err := scanSignatureRequest(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		rowModels = append(rowModels, row)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	results := make([]signaturerequest.SignatureRequest, 0, len(rowModels))
	for _, row := range rowModels {
		signers, err := r.loadSigners(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		req, err := toDomainSignatureRequest(row, signers)
		if err != nil {
			return nil, err
		}
		results = append(results, req)
	}
	return results, nil
}

func (r *SignatureRequestRepository) Create(ctx context.Context, req signaturerequest.SignatureRequest) (signaturerequest.SignatureRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	row, signers, err := toDBSignatureRequest(req)
	if err != nil {
		return nil, err
	}
	if row.TenantID == uuid.Nil {
		row.TenantID = tenantID
	}
	now := time.Now()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	row.Version = 1

	if _, err := tx.Exec(
		ctx,
		`INSERT INTO signature_requests (id, tenant_id, contract_id, provider, provider_request_id, document_hash, subject, message, status, sequential, expires_at, remind_every_seconds, version, created_at, updated_at, sent_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		row.ID,
		row.TenantID,
		row.ContractID,
		row.Provider,
		row.ProviderRequestID,
		row.DocumentHash,
		row.Subject,
		row.Message,
		row.Status,
		row.Sequential,
		row.ExpiresAt,
		row.RemindEverySeconds,
		row.Version,
		row.CreatedAt,
		row.UpdatedAt,
		row.SentAt,
		row.CompletedAt,
	); err != nil {
		return nil, err
	}
	if err := r.insertSigners(ctx, signers); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, row.ID)
}

// Save applies an optimistic version check. The stored version must
// match the aggregate's; on success the row moves to version+1 and the
// signer rows are rewritten inside the same transaction.
func (r *SignatureRequestRepository) Save(ctx context.Context, req signaturerequest.SignatureRequest) (signaturerequest.SignatureRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	row, signers, err := toDBSignatureRequest(req)
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(
		ctx,
		`UPDATE signature_requests
		 SET provider_request_id = $3, status = $4, expires_at = $5, remind_every_seconds = $6,
		     version = version + 1, updated_at = $7, sent_at = $8, completed_at = $9
		 WHERE tenant_id = $1 AND id = $2 AND version = $10`,
		tenantID,
		row.ID,
		row.ProviderRequestID,
		row.Status,
		row.ExpiresAt,
		row.RemindEverySeconds,
		time.Now(),
		row.SentAt,
		row.CompletedAt,
		row.Version,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, row.ID); errors.Is(err, signaturerequest.ErrNotFound) {
			return nil, signaturerequest.ErrNotFound
		}
		return nil, signaturerequest.ErrVersionConflict
	}

	if _, err := tx.Exec(ctx, `DELETE FROM signature_signers WHERE request_id = $1`, row.ID); err != nil {
		return nil, err
	}
	if err := r.insertSigners(ctx, signers); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, row.ID)
}

func (r *SignatureRequestRepository) insertSigners(ctx context.Context, signers []*models.Signer) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	for _, s := range signers {
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO signature_signers (id, request_id, order_index, name, email, phone, auth, status, fields, sent_at, viewed_at, signed_at, declined_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			s.ID,
			s.RequestID,
			s.OrderIndex,
			s.Name,
			s.Email,
			s.Phone,
			s.Auth,
			s.Status,
			s.Fields,
			s.SentAt,
			s.ViewedAt,
			s.SignedAt,
			s.DeclinedAt,
		); err != nil {
			return err
		}
	}
	return nil
}
