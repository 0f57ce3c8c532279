package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "solarium-verify",
		Short:         "Contract canonicalization, hashing and ledger inspection tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newHashCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newAuditCmd())
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
