package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/psyreport-mcp-server/internal/domain"
	"github.com/psyreport-mcp-server/internal/report"
	"github.com/psyreport-mcp-server/internal/setup"
)

func newFieldsCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "fields <template.docx>",
		Short: "List the placeholders used by a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c.app.Templates.Open(args[0])
			if err != nil {
				return err
			}
			fields := c.app.Processor.ExtractFields(doc).Sorted()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), fields)
			}
			for _, name := range fields {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a JSON array")
	return cmd
}

func newValidateCmd(c *cli) *cobra.Command {
	var dataFile string
	cmd := &cobra.Command{
		Use:   "validate <template.docx>",
		Short: "Check placeholder names and, with --data, which placeholders have no value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c.app.Templates.Open(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			valid, invalid := c.app.Processor.ValidateFields(doc)
			fmt.Fprintf(out, "%d valid field(s)\n", len(valid))
			for _, finding := range invalid {
				fmt.Fprintf(out, "  - %s: %s\n", finding.Field, finding.Reason)
			}

			if dataFile == "" {
				return nil
			}
			data, err := readReportData(dataFile)
			if err != nil {
				return err
			}
			model, err := c.app.LoadModel(args[0], data)
			if err != nil {
				return err
			}
			missing, empty := c.app.Processor.CheckRequiredFields(c.app.Processor.ExtractFields(doc), model.FieldMapping())
			printFindings(out, report.Findings{Missing: missing, Empty: empty})
			return nil
		},
	}
	cmd.Flags().StringVar(&dataFile, "data", "", "report data file (JSON or YAML)")
	return cmd
}

func newClassifyCmd(c *cli) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "classify <scores.json>",
		Short: "Classify raw test scores and print the augmented result set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scores, err := readScores(args[0])
			if err != nil {
				return err
			}

			results, err := c.app.Classifier.Classify(scores)
			if err != nil {
				if strict {
					return err
				}
				c.app.Logger.WithError(err).Warn("Some scores left unclassified")
				var classErr *domain.ClassificationError
				if !errors.As(err, &classErr) || classErr.Panic != nil {
					results = scores
				}
			}
			return writeJSON(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when an instrument cannot be classified")
	return cmd
}

func newSummaryCmd(c *cli) *cobra.Command {
	var classify bool
	cmd := &cobra.Command{
		Use:   "summary <scores.json>",
		Short: "Print percentiles and classifications grouped by category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scores, err := readScores(args[0])
			if err != nil {
				return err
			}
			if classify {
				scores = c.app.Classifier.ClassifyResults(scores)
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.app.Summary.BuildSummaryText(scores))
			return nil
		},
	}
	cmd.Flags().BoolVar(&classify, "classify", false, "classify the scores first")
	return cmd
}

func newGenerateCmd(c *cli) *cobra.Command {
	var (
		outputDir string
		assumeYes bool
	)
	cmd := &cobra.Command{
		Use:   "generate <template.docx> <data.json>",
		Short: "Fill a template with report data and save the report",
		Long: `Fill a template with the patient, respondent, psychologist, test and
conclusion data of a JSON or YAML file. Raw test scores are classified first.
When placeholders are malformed, missing or empty you are asked whether to
continue; --yes continues without asking.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readReportData(args[1])
			if err != nil {
				return err
			}
			model, err := c.app.LoadModel(args[0], data)
			if err != nil {
				return err
			}
			if outputDir == "" {
				if err := c.manager.EnsureOutputDir(); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}

			result, err := c.app.Generator.Generate(cmd.Context(), model, report.GenerateOptions{
				OutputDir: outputDir,
				Confirm: func(findings report.Findings) bool {
					printFindings(cmd.ErrOrStderr(), findings)
					if assumeYes {
						return true
					}
					return confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), "Continuar mesmo assim? Os campos vazios ficarão em branco. [s/N] ")
				},
			})
			if errors.Is(err, domain.ErrGenerationCancelled) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Geração cancelada.")
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Path)
			return nil
		},
	}
	cmd.Flags().StringVar(&outputDir, "to", "", "directory for this report (default output.dir)")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "continue without asking when fields are missing")
	return cmd
}

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the report tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.manager.EnsureOutputDir(); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			srv, err := c.app.MCPServer()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Start(ctx)
		},
	}
}

func newSetupCmd(c *cli) *cobra.Command {
	var (
		configPath string
		binaryPath string
	)
	setupCmd := &cobra.Command{
		Use:   "setup",
		Short: "Register psyreport with desktop MCP clients",
	}
	setupCmd.PersistentFlags().StringVar(&configPath, "client-config", "", "client configuration file (default Claude Desktop location)")

	claudeCmd := &cobra.Command{
		Use:   "claude-desktop",
		Short: "Add or update the psyreport entry in Claude Desktop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := c.app.Config
			written, err := setup.ConfigureClaudeDesktop(setup.Options{
				ConfigPath:   configPath,
				BinaryPath:   binaryPath,
				OutputDir:    cfg.Output.Dir,
				TablesDir:    cfg.Tables.Dir,
				FieldsConfig: cfg.Templates.FieldsConfig,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configured %s in %s\nRestart Claude Desktop to load the server.\n", setup.ServerName, written)
			return nil
		},
	}
	claudeCmd.Flags().StringVar(&binaryPath, "binary", "", "path to the psyreport binary (default: search PATH)")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether psyreport is registered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := setup.GetStatus(configPath)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), status)
		},
	}

	setupCmd.AddCommand(claudeCmd, statusCmd)
	return setupCmd
}

// readReportData reads a JSON or YAML report data file
func readReportData(path string) (report.ReportData, error) {
	var data report.ReportData
	raw, err := os.ReadFile(path)
	if err != nil {
		return data, fmt.Errorf("failed to read data file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("failed to parse data file %s: %w", path, err)
	}
	return data, nil
}

// readScores reads a flat JSON or YAML score file
func readScores(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scores file: %w", err)
	}
	scores := make(map[string]any)
	if err := yaml.Unmarshal(raw, &scores); err != nil {
		return nil, fmt.Errorf("failed to parse scores file %s: %w", path, err)
	}
	return scores, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func printFindings(w io.Writer, findings report.Findings) {
	if len(findings.Invalid) > 0 {
		fmt.Fprintln(w, "Campos inválidos:")
		for _, f := range findings.Invalid {
			fmt.Fprintf(w, "  - %s: %s\n", f.Field, f.Reason)
		}
	}
	if len(findings.Missing) > 0 {
		fmt.Fprintf(w, "Campos faltando: %s\n", strings.Join(findings.Missing, ", "))
	}
	if len(findings.Empty) > 0 {
		fmt.Fprintf(w, "Campos vazios: %s\n", strings.Join(findings.Empty, ", "))
	}
}

// confirm asks a yes/no question; anything but an explicit yes declines
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprint(out, question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "s", "sim", "y", "yes":
		return true
	}
	return false
}
