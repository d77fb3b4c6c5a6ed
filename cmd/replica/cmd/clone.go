package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zoobzio/replica"
)

func cloneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clone <sample>",
		Short: "Compile a cloner from a sample and print the sample's copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, f, s, err := inferSample(cmd, args)
			if err != nil {
				return err
			}
			opts, err := compileOptions(cmd)
			if err != nil {
				return err
			}

			cloner, err := replica.Compile(s, opts...)
			if err != nil {
				return err
			}
			out, err := cloner.Clone(v)
			if err != nil {
				return err
			}
			return writeSample(cmd.OutOrStdout(), out, f)
		},
	}
	addInferFlags(cmd)
	addCompileFlags(cmd)
	return cmd
}
