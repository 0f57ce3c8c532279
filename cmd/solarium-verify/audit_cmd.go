package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/solarium-dev/solarium/modules/contracts/domain/entities/auditlog"
	"github.com/solarium-dev/solarium/modules/contracts/infrastructure/persistence"
	"github.com/solarium-dev/solarium/pkg/composables"
	"github.com/solarium-dev/solarium/pkg/configuration"
)

func newAuditCmd() *cobra.Command {
	var tenant string
	var kind string
	var limit int

	cmd := &cobra.Command{
		Use:   "audit <contract-id>",
		Short: "List the audit ledger for a contract, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contractID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid contract id: %w", err)
			}
			tenantID, err := uuid.Parse(tenant)
			if err != nil {
				return fmt.Errorf("invalid tenant id: %w", err)
			}

			conf := configuration.Use()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			pool, err := pgxpool.New(ctx, conf.Database.ConnectionString())
			if err != nil {
				return err
			}
			defer pool.Close()

			ctx = composables.WithPool(ctx, pool)
			ctx = composables.WithTenantID(ctx, tenantID)

			repo := persistence.NewAuditLogRepository()
			entries, err := repo.ListForContract(ctx, contractID, &auditlog.FindParams{
				EventKind: auditlog.EventKind(kind),
				Limit:     limit,
			})
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%-20s\t%s\t%s\n",
					e.CreatedAt.Format(time.RFC3339), e.EventKind, e.ContentHash, e.SignatureChannel)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (required)")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by event kind")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
