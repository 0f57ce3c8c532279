package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/solarium-dev/solarium/modules/contracts/domain/aggregates/contract"
	"github.com/solarium-dev/solarium/modules/contracts/infrastructure/persistence/models"
	"github.com/solarium-dev/solarium/pkg/composables"
	"github.com/solarium-dev/solarium/pkg/repo"
)

type ContractRepository struct{}

func NewContractRepository() contract.Repository {
	return &ContractRepository{}
}

const contractColumns = `id, tenant_id, number, status, content, content_hash, signed_hash, created_at, updated_at`

func (r *ContractRepository) queryOne(ctx context.Context, query string, args ...interface{}) (contract.Contract, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return contract.Contract{}, err
	}

	var row models.Contract
	if err := tx.QueryRow(ctx, query, args...).Scan(
		&row.ID,
		&row.TenantID,
		&row.Number,
		&row.Status,
		&row.Content,
		&row.ContentHash,
		&row.SignedHash,
		&row.CreatedAt,
		&row.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return contract.Contract{}, contract.ErrNotFound
		}
		return contract.Contract{}, err
	}
	return toDomainContract(&row)
}

func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (contract.Contract, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return contract.Contract{}, err
	}
	return r.queryOne(ctx, `
		SELECT `+contractColumns+`
		FROM contracts
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
}

func (r *ContractRepository) GetByNumber(ctx context.Context, number string) (contract.Contract, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return contract.Contract{}, err
	}
	return r.queryOne(ctx, `
		SELECT `+contractColumns+`
		FROM contracts
		WHERE tenant_id = $1 AND number = $2
	`, tenantID, number)
}

func (r *ContractRepository) List(ctx context.Context, params *contract.FindParams) ([]contract.Contract, error) {
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
	if params != nil && params.Status != "" {
		where = append(where, "status = $2")
		args = append(args, string(params.Status))
	}

	query := `
		SELECT ` + contractColumns + `
		FROM contracts
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
	defer rows.Close()

	var results []contract.Contract
	for rows.Next() {
		var row models.Contract
		if err := rows.Scan(
			&row.ID,
			&row.TenantID,
			&row.Number,
			&row.Status,
			&row.Content,
			&row.ContentHash,
			&row.SignedHash,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, err
		}
		c, err := toDomainContract(&row)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ContractRepository) Create(ctx context.Context, c contract.Contract) (contract.Contract, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return contract.Contract{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return contract.Contract{}, err
	}

	row, err := toDBContract(c)
	if err != nil {
		return contract.Contract{}, err
	}
	if row.TenantID == uuid.Nil {
		row.TenantID = tenantID
	}
	now := time.Now()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	if _, err := tx.Exec(
		ctx,
		`INSERT INTO contracts (id, tenant_id, number, status, content, content_hash, signed_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		row.ID,
		row.TenantID,
		row.Number,
		row.Status,
		row.Content,
		row.ContentHash,
		row.SignedHash,
		row.CreatedAt,
		row.UpdatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return contract.Contract{}, contract.ErrNumberTaken
		}
		return contract.Contract{}, err
	}
	return r.GetByID(ctx, row.ID)
}

func (r *ContractRepository) Save(ctx context.Context, c contract.Contract) (contract.Contract, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return contract.Contract{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return contract.Contract{}, err
	}

	row, err := toDBContract(c)
	if err != nil {
		return contract.Contract{}, err
	}

	tag, err := tx.Exec(
		ctx,
		`UPDATE contracts
		 SET status = $3, content = $4, content_hash = $5, signed_hash = $6, updated_at = $7
		 WHERE tenant_id = $1 AND id = $2`,
		tenantID,
		row.ID,
		row.Status,
		row.Content,
		row.ContentHash,
		row.SignedHash,
		time.Now(),
	)
	if err != nil {
		return contract.Contract{}, err
	}
	if tag.RowsAffected() == 0 {
		return contract.Contract{}, contract.ErrNotFound
	}
	return r.GetByID(ctx, row.ID)
}
