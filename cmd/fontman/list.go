package main

import (
	"fmt"
	"io"

	"github.com/ZebulonRouseFrantzich/fontman/internal/fontdir"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	outputText = "text"
	outputYAML = "yaml"
)

type catalogListing struct {
	BaseURL string   `yaml:"base_url"`
	Fonts   []string `yaml:"fonts"`
}

type installedListing struct {
	Root  string              `yaml:"root"`
	Fonts []fontdir.Installed `yaml:"fonts"`
}

func newListCmd(root *rootOptions) *cobra.Command {
	var (
		installed bool
		output    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available or installed fonts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != outputText && output != outputYAML {
				return fmt.Errorf("unknown output format %q (want %s or %s)", output, outputText, outputYAML)
			}

			env, err := root.load(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if installed {
				fonts, err := env.fonts.List()
				if err != nil {
					return err
				}
				if output == outputYAML {
					return writeYAML(out, installedListing{Root: env.fonts.Root(), Fonts: fonts})
				}
				if len(fonts) == 0 {
					fmt.Fprintf(out, "No fonts installed in %s\n", env.fonts.Root())
					return nil
				}
				for _, f := range fonts {
					fmt.Fprintf(out, "%s\t%s\n", f.Name, f.Path)
				}
				return nil
			}

			if output == outputYAML {
				return writeYAML(out, catalogListing{BaseURL: env.catalog.BaseURL(), Fonts: env.catalog.Names()})
			}
			for _, name := range env.catalog.Names() {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&installed, "installed", false, "list installed font directories instead of Nerd Fonts")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output format: text or yaml")
	return cmd
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
