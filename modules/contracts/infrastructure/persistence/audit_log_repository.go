package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/solarium-dev/solarium/modules/contracts/domain/contenthash"
	"github.com/solarium-dev/solarium/modules/contracts/domain/entities/auditlog"
	"github.com/solarium-dev/solarium/modules/contracts/infrastructure/persistence/models"
	"github.com/solarium-dev/solarium/pkg/composables"
	"github.com/solarium-dev/solarium/pkg/repo"
)

// AuditLogRepository only knows how to insert and read. The table
// itself carries a trigger that rejects UPDATE and DELETE, so even a
// future code path cannot rewrite history.
type AuditLogRepository struct{}

func NewAuditLogRepository() auditlog.Repository {
	return &AuditLogRepository{}
}

const auditLogColumns = `id, tenant_id, contract_id, event_kind, signature_channel, content_hash, signer_id, ip, user_agent, metadata, created_at`

func (r *AuditLogRepository) Append(ctx context.Context, entry *auditlog.Entry) (*auditlog.Entry, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	if !entry.EventKind.IsValid() {
		return nil, auditlog.ErrInvalidEventKind
	}

	row := toDBAuditLog(entry)
	if row.TenantID == uuid.Nil {
		row.TenantID = tenantID
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}

	if err := tx.QueryRow(
		ctx,
		`INSERT INTO contract_audit_logs (tenant_id, contract_id, event_kind, signature_channel, content_hash, signer_id, ip, user_agent, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at`,
		row.TenantID,
		row.ContractID,
		row.EventKind,
		row.SignatureChannel,
		row.ContentHash,
		row.SignerID,
		row.IP,
		row.UserAgent,
		row.Metadata,
		row.CreatedAt,
	).Scan(&row.ID, &row.CreatedAt); err != nil {
		return nil, errors.Wrap(err, "failed to append audit entry")
	}
	return toDomainAuditLog(row), nil
}

func (r *AuditLogRepository) ListForContract(
	ctx context.Context,
	contractID uuid.UUID,
	params *auditlog.FindParams,
) ([]*auditlog.Entry, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	where := []string{"tenant_id = $1", "contract_id = $2"}
	args := []interface{}{tenantID, contractID}
	if params != nil && params.EventKind != "" {
		where = append(where, "event_kind = $3")
		args = append(args, string(params.EventKind))
	}

	query := `
		SELECT ` + auditLogColumns + `
		FROM contract_audit_logs
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC, id DESC
	`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query audit entries")
	}
	defer rows.Close()

	var results []*auditlog.Entry
	for rows.Next() {
		var row models.AuditLog
		if err := rows.Scan(
			&row.ID,
			&row.TenantID,
			&row.ContractID,
			&row.EventKind,
			&row.SignatureChannel,
			&row.ContentHash,
			&row.SignerID,
			&row.IP,
			&row.UserAgent,
			&row.Metadata,
			&row.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan audit entry")
		}
		results = append(results, toDomainAuditLog(&row))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating audit entries")
	}
	return results, nil
}

func (r *AuditLogRepository) LatestForContract(ctx context.Context, contractID uuid.UUID) (*auditlog.Entry, error) {
	entries, err := r.ListForContract(ctx, contractID, &auditlog.FindParams{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, auditlog.ErrNotFound
	}
	return entries[0], nil
}

func (r *AuditLogRepository) HashExists(ctx context.Context, contractID uuid.UUID, hash contenthash.ContentHash) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return false, err
	}

	var exists bool
	if err := tx.QueryRow(
		ctx,
		`SELECT EXISTS (
			SELECT 1 FROM contract_audit_logs
			WHERE tenant_id = $1 AND contract_id = $2 AND lower(content_hash) = lower($3)
		)`,
		tenantID, contractID, hash.String(),
	).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
