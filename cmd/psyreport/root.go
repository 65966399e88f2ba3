package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/psyreport-mcp-server/internal/app"
	"github.com/psyreport-mcp-server/internal/config"
	"github.com/psyreport-mcp-server/internal/domain"
	"github.com/psyreport-mcp-server/internal/logging"
)

// cli carries what every subcommand needs once configuration is loaded
type cli struct {
	configFile string
	manager    *config.Manager
	app        *app.App
}

// flagKeys maps persistent flags to configuration keys
var flagKeys = map[string]string{
	"log-level":     "logging.level",
	"log-format":    "logging.format",
	"output-dir":    "output.dir",
	"tables-dir":    "tables.dir",
	"fields-config": "templates.fields_config",
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "psyreport",
		Short: "Fill psychological report templates from test scores and patient data",
		Long: `psyreport fills .docx report templates whose placeholders look like
{patient_name} or {QIT_out}. Raw test scores are classified with the
instrument tables (WISC, RAVLT, BPA, FDT, SRS, ETDAH, CARS, NEUPSILIN)
before they are written into the document.

Configuration is read from psyreport.yaml (., ./config, ~/.psyreport),
PSYREPORT_* environment variables and the flags below.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.load,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "configuration file (default psyreport.yaml in ., ./config or ~/.psyreport)")
	flags.String("log-level", "", "log level (trace|debug|info|warn|error)")
	flags.String("log-format", "", "log format (text|json)")
	flags.String("output-dir", "", "directory for generated reports")
	flags.String("tables-dir", "", "directory with *_table.jsonc score tables (default built-in tables)")
	flags.String("fields-config", "", "template fields configuration file (default built-in)")

	rootCmd.AddCommand(
		newFieldsCmd(c),
		newValidateCmd(c),
		newClassifyCmd(c),
		newSummaryCmd(c),
		newGenerateCmd(c),
		newServeCmd(c),
		newSetupCmd(c),
	)
	return rootCmd
}

// load reads configuration, applies flags and builds the engine
func (c *cli) load(cmd *cobra.Command, _ []string) error {
	var opts []config.Option
	if c.configFile != "" {
		opts = append(opts, config.WithConfigFile(c.configFile))
	}
	manager, err := config.NewManager(opts...)
	if err != nil {
		return err
	}

	v := manager.Viper()
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", flag, err)
		}
	}
	if err := manager.Reload(); err != nil {
		return err
	}
	if err := manager.Validate(); err != nil {
		return domain.NewReportError(domain.ErrCodeConfig, "invalid configuration", err)
	}

	cfg := manager.GetConfig()
	logger := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		PrivacyMode: cfg.Logging.PrivacyMode,
		Output:      os.Stderr,
	})

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	c.manager = manager
	c.app = a
	return nil
}
