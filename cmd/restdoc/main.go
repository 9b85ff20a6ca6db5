package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yourorg/restdoc/internal/config"
	"github.com/yourorg/restdoc/internal/generator"
	"github.com/yourorg/restdoc/internal/gosrc"
	"github.com/yourorg/restdoc/internal/logging"
	"github.com/yourorg/restdoc/internal/manifest"
	"github.com/yourorg/restdoc/internal/registry"
	"github.com/yourorg/restdoc/internal/server"
	"github.com/yourorg/restdoc/internal/store"
	"github.com/yourorg/restdoc/pkg/types"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globals are the persistent flags shared by every command.
type globals struct {
	cfgPath string
	verbose bool
}

func (g *globals) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(g.cfgPath)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.Log.Level
	if g.verbose {
		level = "debug"
	}
	return cfg, logging.New(logging.Options{Level: level, JSON: cfg.Log.JSON}), nil
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:           "restdoc",
		Short:         "REST API documentation generator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.cfgPath, "config", "", "config file path")
	root.PersistentFlags().BoolVar(&g.verbose, "verbose", false, "enable debug logging")

	root.AddCommand(newInitCmd(g))
	root.AddCommand(newGenerateCmd(g))
	root.AddCommand(newServeCmd(g))
	root.AddCommand(newListCmd(g))
	root.AddCommand(newShowCmd(g))
	root.AddCommand(newDeleteCmd(g))
	root.AddCommand(newClearCacheCmd(g))

	return root
}

func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		return nil, err
	}
	return store.NewSQLiteStore(cfg.Store.Path)
}

func newInitCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default config and create the run database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := g.cfgPath
			if cfgFile == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				cfgFile = p
			}
			if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) {
				cfg := &config.Config{}
				cfg.SetDefaults()
				if err := config.Write(cfgFile, cfg); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "created", cfgFile)
			} else if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "exists", cfgFile)
			} else {
				return err
			}

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "database ready", cfg.Store.Path)
			return nil
		},
	}
}

func newGenerateCmd(g *globals) *cobra.Command {
	var (
		manifestPath string
		sourceDir    string
		patterns     []string
		outDir       string
		formats      []string
		noStore      bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate documentation from a manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			if outDir != "" {
				cfg.Output.Dir = outDir
			}
			if len(formats) > 0 {
				cfg.Output.Formats = formats
			}
			if err := cfg.ValidateLLM(); err != nil {
				return err
			}

			m, err := manifest.Load(manifestPath)
			if err != nil {
				return err
			}
			var extra []registry.Provider
			if sourceDir != "" || len(patterns) > 0 {
				p, err := gosrc.Load(cmd.Context(), gosrc.Options{Dir: sourceDir, Patterns: patterns, Logger: logger})
				if err != nil {
					return err
				}
				logger.Debug("go source loaded", "dir", sourceDir, "types", len(p.Names()))
				extra = append(extra, p)
			}
			src, err := generator.ManifestSource(filepath.Base(manifestPath), m, extra...)
			if err != nil {
				return err
			}

			var st store.Store
			if !noStore {
				s, err := openStore(cfg)
				if err != nil {
					return err
				}
				defer s.Close()
				st = s
			}

			progress := func(stage string) {
				logger.Info(stage)
			}
			out, err := generator.NewPipeline(cfg, st, logger).Run(cmd.Context(), src, progress)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if out.Run != nil {
				fmt.Fprintf(w, "run %s: %s (%d operations, %d degraded)\n", out.Run.ID, statusColor(out.Run.Status), out.Run.OperationCount, out.Run.DegradedCount)
			}
			for _, f := range out.Files {
				fmt.Fprintln(w, "wrote", f)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "manifest file (YAML or JSON)")
	cmd.Flags().StringVar(&sourceDir, "source", "", "Go module directory providing additional types")
	cmd.Flags().StringSliceVar(&patterns, "packages", nil, "Go package patterns to load (default ./...)")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (overrides output.dir)")
	cmd.Flags().StringSliceVar(&formats, "format", nil, "output formats: markdown, openapi, html, json")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "do not record the run")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}

func newServeCmd(g *globals) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the preview server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()
			srv, err := server.New(cfg, s, logger)
			if err != nil {
				return err
			}
			return srv.ListenAndServe(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "server host")
	cmd.Flags().IntVar(&port, "port", 3000, "server port")
	return cmd
}

func newListCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.load()
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()
			runs, err := s.ListRuns()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tTITLE\tVERSION\tOPS\tDEGRADED\tCREATED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n", r.ID, statusColor(r.Status), r.Title, r.Version, r.OperationCount, r.DegradedCount, r.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
}

func newShowCmd(g *globals) *cobra.Command {
	var runID string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a recorded run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.load()
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()
			run, err := s.GetRun(runID)
			if err != nil {
				return err
			}
			ops, err := s.GetOperations(runID)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if asJSON {
				data, err := generator.MarshalJSON(generator.Rebuild(run, ops))
				if err != nil {
					return err
				}
				_, err = w.Write(data)
				return err
			}
			printRun(w, run)
			for _, op := range ops {
				mark := ""
				if op.Degraded {
					mark = color.YellowString(" (degraded: %s)", strings.Join(op.Doc.Problems, "; "))
				}
				fmt.Fprintf(w, "  %-7s %s  %s%s\n", op.Method, op.URI, op.Name, mark)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the documentation model as JSON")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}

func printRun(w io.Writer, run *types.Run) {
	fmt.Fprintf(w, "%s %s (%s)\n", color.New(color.Bold).Sprint(run.Title), run.Version, run.Source)
	fmt.Fprintf(w, "run %s: %s, %d operations, %d degraded\n", run.ID, statusColor(run.Status), run.OperationCount, run.DegradedCount)
	if run.ErrorMsg != "" {
		fmt.Fprintln(w, color.RedString(run.ErrorMsg))
	}
}

func newDeleteCmd(g *globals) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a recorded run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.load()
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.DeleteRun(runID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", runID)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}

func newClearCacheCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Drop cached LLM examples",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.load()
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.ClearExampleCache(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "example cache cleared")
			return nil
		},
	}
}

func statusColor(status string) string {
	switch status {
	case store.StatusDone:
		return color.GreenString(status)
	case store.StatusDegraded:
		return color.YellowString(status)
	case store.StatusFailed:
		return color.RedString(status)
	default:
		return color.CyanString(status)
	}
}
