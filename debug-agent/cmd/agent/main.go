package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/config"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/graph"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/server"
)

var (
	configPath string
	indexPath  string
	queryText  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agent",
	Short: "Self-correcting Python debugger",
	Long: `agent indexes a Python codebase and answers error reports with a fix
that has passed a static check, retrying with the checker output when it has not.`,
	SilenceUsage: true,
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the code index from a directory",
	RunE:  runIndex,
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Ask for a fix for an error report",
	Long: `Ask for a fix for an error report.

Examples:
  agent query -q "NameError: name 'total' is not defined in cart.py"`,
	RunE: runQuery,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default $"+config.EnvConfig+")")
	indexCmd.Flags().StringVar(&indexPath, "path", "", "folder to index (default ingest.target_dir)")
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "error report to debug")
	queryCmd.MarkFlagRequired("query")

	rootCmd.AddCommand(indexCmd, queryCmd, serveCmd)
}

// loadConfig reads .env first so its values reach the DEBUGGER_* lookup.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	path := configPath
	if path == "" {
		path = os.Getenv(config.EnvConfig)
	}
	return config.Load(path)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if indexPath != "" {
		cfg.Ingest.TargetDir = indexPath
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.ingester.Run(cmd.Context())
	if err != nil {
		return err
	}
	if !report.Indexed {
		fmt.Printf("No source files found in %s, index unchanged.\n", cfg.Ingest.TargetDir)
		return nil
	}
	fmt.Printf("Indexing complete: %d files, %d chunks, %d skipped.\n", report.Files, report.Chunks, report.Skipped)
	return nil
}

func runQuery(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.engine.Invoke(cmd.Context(), queryText)
	if err != nil {
		return err
	}

	printResult(cmd.OutOrStdout(), res)
	return nil
}

func printResult(w io.Writer, res *graph.Result) {
	fmt.Fprintln(w, "\n=== FIX ===")
	fmt.Fprintln(w, res.Answer)
	fmt.Fprintf(w, "\niterations: %d\n", res.Iterations)
	if res.Validated {
		fmt.Fprintln(w, "validated: yes")
		return
	}
	fmt.Fprintln(w, "validated: no (max retries reached)")
	fmt.Fprintln(w, "last error:", res.LastError)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := server.Options{
		Port:           cfg.Server.Port,
		RateLimit:      cfg.Server.RateLimit,
		Burst:          cfg.Server.Burst,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Checks:         a.checks,
		Registerer:     a.registry,
		Gatherer:       a.registry,
		Logger:         a.logger,
	}
	if a.history != nil {
		opts.History = a.history
	}

	srv := server.New(a.engine, a.ingester, opts)
	if err := srv.Run(ctx); err != nil {
		a.logger.Error("server failed", zap.Error(err))
		return err
	}
	return nil
}
