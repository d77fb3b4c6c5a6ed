package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed, color.Bold)
)

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "replica",
		Short:         "replica infers schemas from sample values and compiles them into deep cloners.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		schemaCmd(),
		sourceCmd(),
		cloneCmd(),
	)

	return cmd
}

// PrintError writes err to w in the error color.
func PrintError(w io.Writer, err error) {
	errorColor.Fprintf(w, "error: %v\n", err)
}

func printWarning(w io.Writer, path, message string) {
	warnColor.Fprintf(w, "warning: %s: %s\n", path, message)
}

func addInferFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("inherited", false, "Include fields promoted from embedded structs")
	cmd.Flags().Bool("quiet", false, "Suppress inference warnings")
}

func addCompileFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("cycles", false, "Enable cycle and shared reference detection")
	cmd.Flags().Int("max-depth", 0, "Fail clones nested deeper than this (0 disables the limit)")
	cmd.Flags().String("codec", "json", "Snapshot codec for naive collections: json, yaml, msgpack, xml or bson")
}

func inputFile(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected exactly one sample file, got %d arguments", len(args))
	}
	return args[0], nil
}
