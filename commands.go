package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hpoextend/internal/config"
	"hpoextend/internal/database"
	"hpoextend/internal/database/graph"
	"hpoextend/internal/database/relational"
	"hpoextend/internal/engine"
	"hpoextend/internal/logging"
	"hpoextend/internal/mcpserver"
	"hpoextend/internal/ontology"
	"hpoextend/internal/output"
	"hpoextend/ui/console"
	"hpoextend/ui/tui"
)

// options are the flags shared by every command. A flag only overrides the
// config file when it was set on the command line.
type options struct {
	configPath string
	logLevel   string
	root       string
	lf         bool
	report     bool
	duckdbPath string
	neo4jURI   string
}

func (o *options) register(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVarP(&o.configPath, "config", "c", "", "config file path (YAML)")
	f.StringVar(&o.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	f.StringVar(&o.root, "root", "", "category root term (default HP:0000118)")
	f.BoolVar(&o.lf, "lf", false, "terminate output rows with \\n instead of \\r\\n")
	f.BoolVar(&o.report, "report", false, "print a run report to stderr")
	f.StringVar(&o.duckdbPath, "duckdb", "", "store the ontology and run in this DuckDB file")
	f.StringVar(&o.neo4jURI, "neo4j-uri", "", "push the ontology and run to this Neo4j server")
}

// resolve loads the config file and environment, then applies set flags.
func (o *options) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg = cfg.WithLogLevel(o.logLevel)
	}
	if flags.Changed("root") {
		cfg = cfg.WithCategoryRoot(o.root)
	}
	if flags.Changed("lf") {
		cfg = cfg.WithCRLF(!o.lf)
	}
	if flags.Changed("report") {
		cfg = cfg.WithReport(o.report)
	}
	if flags.Changed("duckdb") {
		cfg = cfg.WithDuckDBPath(o.duckdbPath)
	}
	if flags.Changed("neo4j-uri") {
		cfg = cfg.WithNeo4jURI(o.neo4jURI)
	}
	return cfg, cfg.Validate()
}

func (o *options) setup(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfg, err := o.resolve(cmd)
	if err != nil {
		return cfg, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

func checksConfig(cfg config.Config) engine.Config {
	checks := engine.DefaultConfig()
	checks.DroppedPct = engine.Thresholds{
		Warning:  cfg.Checks.DroppedWarnPct,
		Critical: cfg.Checks.DroppedCritPct,
	}
	return checks
}

func runExtend(cmd *cobra.Command, opts *options, oboPath, annotationsPath, outPath string) error {
	cfg, logger, err := opts.setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	ctx := cmd.Context()

	payload, err := output.RunPipeline(ctx, output.PipelineRequest{
		OntologyPath:    oboPath,
		AnnotationsPath: annotationsPath,
		OutputPath:      outPath,
		CategoryRoot:    cfg.Ontology.CategoryRoot,
		LF:              !cfg.Output.CRLF,
		KeepRows:        cfg.DuckDBEnabled(),
		Checks:          checksConfig(cfg),
	}, logger)
	if err != nil {
		return err
	}

	if cfg.Output.Report {
		console.Print(cmd.ErrOrStderr(), output.BuildReport(payload))
	}

	if cfg.DuckDBEnabled() || cfg.Neo4jEnabled() {
		st, err := openStores(ctx, cfg, logger)
		if err != nil {
			return err
		}
		exporter, err := database.NewExporter(st.runRepository(), st.graphClient(), logger)
		if err != nil {
			_ = st.close(ctx)
			return err
		}
		exportErr := exporter.Export(ctx, payload)
		if err := errors.Join(exportErr, exporter.Close(ctx)); err != nil {
			return err
		}
	}

	logger.Info("run complete",
		zap.String("run_id", payload.RunID),
		zap.Int("lines", payload.Stats.Lines),
		zap.Int("written", payload.Stats.Written),
		zap.Int("dropped", payload.Stats.Dropped),
		zap.Int("severity", payload.Verdict.SeverityLevel))
	return nil
}

// stores holds whichever databases the config enables.
type stores struct {
	repo  *relational.Repo
	neo4j *graph.Neo4jClient
}

func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stores, error) {
	st := &stores{}
	if cfg.DuckDBEnabled() {
		repo, err := relational.Open(ctx, cfg.DuckDB.Path,
			relational.WithThreads(cfg.DuckDB.Threads),
			relational.WithMemoryLimit(cfg.DuckDB.MemoryLimitGB))
		if err != nil {
			return nil, fmt.Errorf("open duckdb: %w", err)
		}
		st.repo = repo
		logger.Debug("duckdb opened", zap.String("path", cfg.DuckDB.Path))
	}
	if cfg.Neo4jEnabled() {
		client, err := graph.NewNeo4jClient(cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database, cfg.Neo4j.Timeout)
		if err != nil {
			_ = st.close(ctx)
			return nil, fmt.Errorf("open neo4j: %w", err)
		}
		st.neo4j = client
		logger.Debug("neo4j connected", zap.String("uri", cfg.Neo4j.URI))
	}
	return st, nil
}

// The accessors below return untyped nils so callers can test the
// interfaces against nil.

func (s *stores) runRepository() relational.RunRepository {
	if s.repo == nil {
		return nil
	}
	return s.repo
}

func (s *stores) runReader() relational.RunReader {
	if s.repo == nil {
		return nil
	}
	return s.repo
}

func (s *stores) graphClient() graph.GraphClient {
	if s.neo4j == nil {
		return nil
	}
	return s.neo4j
}

func (s *stores) close(ctx context.Context) error {
	var errs []error
	if s.repo != nil {
		errs = append(errs, s.repo.Close())
	}
	if s.neo4j != nil {
		errs = append(errs, s.neo4j.Close(ctx))
	}
	return errors.Join(errs...)
}

func newNamesCmd(opts *options) *cobra.Command {
	var under string

	cmd := &cobra.Command{
		Use:   "names <hp.obo>",
		Short: "Print the name of each term id read from stdin",
		Long: `names reads one term id per line from stdin and prints "<id> <name>".
Blank lines are skipped. Alt ids are accepted and echoed as given. An
unknown id stops the command with an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			g, err := ontology.Load(args[0])
			if err != nil {
				return fmt.Errorf("load ontology: %w", err)
			}
			if under != "" {
				if g, err = g.FilterToDescendants(under); err != nil {
					return err
				}
				logger.Debug("restricted to subtree", zap.String("root", under), zap.Int("terms", g.Len()))
			}
			return printNames(cmd, g)
		},
	}
	cmd.Flags().StringVar(&under, "under", "", "only resolve ids inside the subtree of this term")
	return cmd
}

func printNames(cmd *cobra.Command, g *ontology.Graph) error {
	w := bufio.NewWriter(cmd.OutOrStdout())
	defer w.Flush()

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id == "" {
			continue
		}
		t, err := g.Lookup(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s %s\n", id, t.Name)
	}
	return scanner.Err()
}

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve <hp.obo>",
		Short: "Serve the ontology over MCP on stdio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			ctx := cmd.Context()

			g, err := ontology.Load(args[0])
			if err != nil {
				return fmt.Errorf("load ontology: %w", err)
			}

			st, err := openStores(ctx, cfg, logger)
			if err != nil {
				return err
			}

			srv, err := mcpserver.NewServer(mcpserver.Config{
				ServerName:    cfg.MCP.ServerName,
				ServerVersion: cfg.MCP.ServerVersion,
				CategoryRoot:  cfg.Ontology.CategoryRoot,
			}, g, st.runReader(), st.graphClient(), logger)
			if err != nil {
				_ = st.close(ctx)
				return err
			}
			defer func() {
				if err := srv.Close(context.Background()); err != nil {
					logger.Warn("closing stores", zap.Error(err))
				}
			}()
			return srv.Start(ctx)
		},
	}
}

func newBrowseCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "browse <hp.obo>",
		Short: "Browse the ontology in an interactive terminal UI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			path := args[0]
			return tui.Start(func() (*ontology.Graph, error) {
				return ontology.Load(path)
			}, cfg.Ontology.CategoryRoot, checksConfig(cfg))
		},
	}
}
