package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solarium-dev/solarium/modules/contracts/domain/contenthash"
)

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <content.json> <hash>",
		Short: "Check a contract content file against a candidate hash",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(args[0])
			if err != nil {
				return err
			}
			candidate := contenthash.Parse(args[1])
			if !candidate.IsValid() {
				return errors.New("candidate is not a 64-character hex sha-256")
			}
			if !contenthash.Verify(content, candidate) {
				fmt.Fprintln(cmd.OutOrStdout(), "MISMATCH")
				fmt.Fprintf(cmd.OutOrStdout(), "expected %s\n", contenthash.Generate(content))
				return errors.New("content does not match candidate hash")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
	return cmd
}
