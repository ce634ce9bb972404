package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bjaus/nest/docs"
)

var (
	specFormat string
	specOut    string
)

var specCmd = &cobra.Command{
	Use:   "spec",
	Short: "Print the OpenAPI document",
	Long: `Print the OpenAPI document of the example API.

Examples:
  example spec
  example spec --format yaml -o openapi.yaml`,
	RunE: runSpec,
}

func init() {
	rootCmd.AddCommand(specCmd)

	specCmd.Flags().StringVarP(&specFormat, "format", "f", "json", "output format: json or yaml")
	specCmd.Flags().StringVarP(&specOut, "output", "o", "", "output file (default: stdout)")
}

func runSpec(cmd *cobra.Command, _ []string) error {
	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if specOut != "" {
		f, err := os.Create(specOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	return writeSpec(cfg, specFormat, out)
}

func writeSpec(cfg *Config, format string, w io.Writer) error {
	app, err := newAPI(cfg)
	if err != nil {
		return fmt.Errorf("build api: %w", err)
	}

	spec := docs.Build(app, apiInfo)

	switch format {
	case "json":
		return spec.WriteJSON(w)
	case "yaml":
		return spec.WriteYAML(w)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
