package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zoobzio/replica"
)

func sourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source <sample>",
		Short: "Print the clone source synthesized for a sample's schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, s, err := inferSample(cmd, args)
			if err != nil {
				return err
			}
			opts, err := compileOptions(cmd)
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("name")

			src, err := replica.SynthesizeSource(s, name, opts...)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), src)
			return nil
		},
	}
	addInferFlags(cmd)
	addCompileFlags(cmd)
	cmd.Flags().String("name", "input", "Name of the clone function parameter")
	return cmd
}
