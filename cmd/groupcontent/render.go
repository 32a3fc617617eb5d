package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-groupcontent/pkg/entity"
	"github.com/goliatone/go-groupcontent/pkg/orchestrator"
)

type renderOptions struct {
	file        string
	output      string
	interactive bool
	theme       string
	variant     string
}

func newRenderCmd(global *globalOptions, prompter entityPrompter) *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a group content entity to HTML",
		Example: `  groupcontent render --file entity.yaml
  groupcontent render --interactive --theme acme --variant dark`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.file == "" && !opts.interactive {
				return fmt.Errorf("one of --file or --interactive is required")
			}

			_, logger, orch, err := global.setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			var g entity.GroupContent
			if opts.file != "" {
				g, err = entity.LoadFS(os.DirFS(filepath.Dir(opts.file)), filepath.Base(opts.file))
			} else {
				g, err = prompter.Prompt(cmd.Context())
			}
			if err != nil {
				return err
			}

			out, err := orch.Generate(cmd.Context(), orchestrator.Request{
				Entity:  &g,
				Theme:   opts.theme,
				Variant: opts.variant,
			})
			if err != nil {
				return err
			}

			if opts.output != "" {
				if err := os.WriteFile(opts.output, out, 0o644); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Fragment written to %s\n", opts.output)
				return nil
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Entity file (.json, .yaml)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (stdout if empty)")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Prompt for entity fields")
	cmd.Flags().StringVar(&opts.theme, "theme", "", "Theme name")
	cmd.Flags().StringVar(&opts.variant, "variant", "", "Theme variant")
	return cmd
}
