package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-groupcontent/internal/config"
	"github.com/goliatone/go-groupcontent/internal/logging"
	"github.com/goliatone/go-groupcontent/pkg/orchestrator"
)

type globalOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "groupcontent",
		Short: "Render group content fragments",
		Long: `groupcontent renders the HTML fragment for a group content entity
through the sandboxed group content template.

Templates, theme manifests and the sandbox policy come from a YAML config
file (--config) and GROUPCONTENT_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newRenderCmd(opts, surveyPrompter{}))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// setup loads configuration and builds the logger and orchestrator shared by
// the subcommands.
func (g *globalOptions) setup() (*config.Config, *zap.Logger, *orchestrator.Orchestrator, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, g.verbose)
	if err != nil {
		return nil, nil, nil, err
	}
	viewOptions, err := cfg.ViewOptions()
	if err != nil {
		return nil, nil, nil, err
	}
	orch := orchestrator.New(
		orchestrator.WithLogger(logger),
		orchestrator.WithViewOptions(viewOptions...),
		orchestrator.WithDefaultTheme(cfg.Theme.Name, cfg.Theme.Variant),
	)
	return cfg, logger, orch, nil
}
