package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solarium-dev/solarium/modules/contracts/domain/contenthash"
)

func newHashCmd() *cobra.Command {
	var showCanonical bool

	cmd := &cobra.Command{
		Use:   "hash <content.json>",
		Short: "Print the content hash of a contract content file (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(args[0])
			if err != nil {
				return err
			}
			if showCanonical {
				fmt.Fprintln(cmd.OutOrStdout(), content.Canonical())
			}
			fmt.Fprintln(cmd.OutOrStdout(), contenthash.Generate(content).String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&showCanonical, "canonical", false, "also print the canonical string")
	return cmd
}
