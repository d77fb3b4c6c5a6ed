package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zoobzio/replica"
)

func schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema <sample>",
		Short: "Print the schema inferred from a JSON or YAML sample",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, s, err := inferSample(cmd, args)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), replica.Describe(s))
			return nil
		},
	}
	addInferFlags(cmd)
	return cmd
}
