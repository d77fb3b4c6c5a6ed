package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zoobzio/replica"
	"github.com/zoobzio/replica/codec"
	bsoncodec "github.com/zoobzio/replica/codec/bson"
	jsoncodec "github.com/zoobzio/replica/codec/json"
	msgpackcodec "github.com/zoobzio/replica/codec/msgpack"
	xmlcodec "github.com/zoobzio/replica/codec/xml"
	yamlcodec "github.com/zoobzio/replica/codec/yaml"
)

type format string

const (
	formatJSON format = "json"
	formatYAML format = "yaml"
)

func formatOf(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatJSON
	}
}

// loadSample decodes the sample value stored at path.
func loadSample(path string) (any, format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}

	f := formatOf(path)
	var v any
	switch f {
	case formatYAML:
		err = yaml.Unmarshal(data, &v)
	default:
		err = json.Unmarshal(data, &v)
	}
	if err != nil {
		return nil, "", fmt.Errorf("decoding %s sample %s: %w", f, path, err)
	}
	return v, f, nil
}

func writeSample(w io.Writer, v any, f format) error {
	switch f {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// inferSample loads and infers the sample named by args, reporting
// diagnostics on the command's error stream.
func inferSample(cmd *cobra.Command, args []string) (any, format, replica.Schema, error) {
	path, err := inputFile(args)
	if err != nil {
		return nil, "", nil, err
	}
	v, f, err := loadSample(path)
	if err != nil {
		return nil, "", nil, err
	}

	var opts []replica.InferOption
	if inherited, _ := cmd.Flags().GetBool("inherited"); inherited {
		opts = append(opts, replica.WithInheritedFields())
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		w := cmd.ErrOrStderr()
		opts = append(opts, replica.WithDiagnostics(func(d replica.Diagnostic) {
			printWarning(w, d.Path, d.Message)
		}))
	}

	s, err := replica.Infer(v, opts...)
	if err != nil {
		return nil, "", nil, err
	}
	return v, f, s, nil
}

func compileOptions(cmd *cobra.Command) ([]replica.CompileOption, error) {
	var opts []replica.CompileOption
	if cycles, _ := cmd.Flags().GetBool("cycles"); cycles {
		opts = append(opts, replica.WithCycleDetection())
	}
	if depth, _ := cmd.Flags().GetInt("max-depth"); depth > 0 {
		opts = append(opts, replica.WithMaxDepth(depth))
	}
	name, _ := cmd.Flags().GetString("codec")
	c, err := snapshotCodec(name)
	if err != nil {
		return nil, err
	}
	return append(opts, replica.WithSnapshotCodec(c)), nil
}

func snapshotCodec(name string) (codec.Codec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return jsoncodec.New(), nil
	case "yaml":
		return yamlcodec.New(), nil
	case "msgpack":
		return msgpackcodec.New(), nil
	case "xml":
		return xmlcodec.New(), nil
	case "bson":
		return bsoncodec.New(), nil
	default:
		return nil, fmt.Errorf("unknown snapshot codec %q", name)
	}
}
