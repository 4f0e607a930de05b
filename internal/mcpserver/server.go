package mcpserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"hpoextend/internal/annotation"
	"hpoextend/internal/database/graph"
	"hpoextend/internal/database/relational"
	"hpoextend/internal/ontology"
)

// Server exposes a loaded ontology over MCP.
type Server struct {
	mcpServer   *mcp.Server
	graph       *ontology.Graph
	extender    *annotation.Extender
	runs        relational.RunReader // optional
	neo4jClient graph.GraphClient    // optional
	logger      *zap.Logger
}

// Config holds configuration for the MCP server.
type Config struct {
	ServerName    string
	ServerVersion string
	CategoryRoot  string
}

var (
	errNoDuckDB = errors.New("no DuckDB database configured")
	errNoNeo4j  = errors.New("no Neo4j database configured")
)

// NewServer creates a new MCP server over g. runs and gc may be nil; the
// tools backed by them then report that the store is not configured.
func NewServer(cfg Config, g *ontology.Graph, runs relational.RunReader, gc graph.GraphClient, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ext, err := annotation.NewExtender(g, cfg.CategoryRoot,
		annotation.WithLogger(logger),
		annotation.WithLF(true))
	if err != nil {
		return nil, err
	}

	impl := &mcp.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}

	s := &Server{
		mcpServer:   mcp.NewServer(impl, nil),
		graph:       g,
		extender:    ext,
		runs:        runs,
		neo4jClient: gc,
		logger:      logger,
	}
	s.registerTools()
	return s, nil
}

// TermRef is the short form of a term used in lists.
type TermRef struct {
	ID   string `json:"id" jsonschema:"term identifier, e.g. HP:0000118"`
	Name string `json:"name" jsonschema:"term name"`
}

func refs(terms []*ontology.Term) []TermRef {
	out := make([]TermRef, 0, len(terms))
	for _, t := range terms {
		out = append(out, TermRef{ID: t.ID, Name: t.Name})
	}
	return out
}

// TermArgs is the input of every single-term tool.
type TermArgs struct {
	ID string `json:"id" jsonschema:"term identifier or alt id, e.g. HP:0001250"`
}

// LookupTermResult describes one term and its direct neighbours.
type LookupTermResult struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	AltIDs   []string  `json:"alt_ids"`
	Parents  []TermRef `json:"parents"`
	Children []TermRef `json:"children"`
}

// TermsResult wraps a list of terms.
type TermsResult struct {
	Terms []TermRef `json:"terms"`
}

// ExtendRecordArgs defines the input for extend_record tool.
type ExtendRecordArgs struct {
	Line string `json:"line" jsonschema:"one tab-separated annotation line; the term id is the fifth field"`
}

// ExtendRecordResult holds the CSV rows the line expands to.
type ExtendRecordResult struct {
	Rows []string `json:"rows" jsonschema:"CSV rows, one per matching category; empty when none match"`
}

// QueryGraphArgs defines the input for query_graph tool.
type QueryGraphArgs struct {
	Cypher string `json:"cypher" jsonschema:"Cypher query to execute"`
}

// QueryGraphResult wraps graph query results.
type QueryGraphResult struct {
	Data []map[string]any `json:"data" jsonschema:"query results"`
}

// CategoryCountsArgs defines the input for get_category_counts tool.
type CategoryCountsArgs struct {
	RunID string `json:"run_id,omitempty" jsonschema:"run to report on; latest run when empty"`
}

// CategoryCountsResult wraps per-category row counts.
type CategoryCountsResult struct {
	Counts []relational.CategoryCount `json:"counts"`
}

// RecentRunsArgs defines the input for get_recent_runs tool.
type RecentRunsArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"number of runs to return"`
}

// RecentRunsResult wraps run summaries.
type RecentRunsResult struct {
	Runs []relational.RunSummary `json:"runs"`
}

// registerTools registers all available MCP tools.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "lookup_term",
		Description: "Look up an ontology term by id or alt id. Returns its name, alt ids, direct parents and direct children.",
	}, s.handleLookupTerm)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_ancestors",
		Description: "List every ancestor of a term (transitive is_a closure, the term itself excluded), ordered by id.",
	}, s.handleGetAncestors)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_children",
		Description: "List the direct children of a term, ordered by id.",
	}, s.handleGetChildren)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_categories",
		Description: "List the top-level categories a term falls under. A category term is its own category.",
	}, s.handleGetCategories)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "extend_record",
		Description: "Extend one tab-separated annotation line with term name and category columns, exactly as the CLI would write it.",
	}, s.handleExtendRecord)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "query_graph",
		Description: "Execute a read-only Cypher query on the Neo4j mirror of the ontology. Nodes: Term {id, name, alt_ids, depth, is_root}, Run {run_id, written, dropped}. Relationships: (Term)-[:IS_A]->(Term), (Run)-[:CLASSIFIED {rows}]->(Term).",
	}, s.handleQueryGraph)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_category_counts",
		Description: "Count the rows a stored run wrote per category, busiest first. Requires the DuckDB store.",
	}, s.handleGetCategoryCounts)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_recent_runs",
		Description: "List recent annotation runs stored in DuckDB with their line counts and verdicts.",
	}, s.handleGetRecentRuns)
}

func (s *Server) handleLookupTerm(ctx context.Context, _ *mcp.CallToolRequest, args TermArgs) (*mcp.CallToolResult, LookupTermResult, error) {
	t, err := s.graph.Lookup(strings.TrimSpace(args.ID))
	if err != nil {
		return nil, LookupTermResult{}, err
	}
	parents, err := t.Parents()
	if err != nil {
		return nil, LookupTermResult{}, err
	}

	alt := t.AltIDs
	if alt == nil {
		alt = []string{}
	}
	return nil, LookupTermResult{
		ID:       t.ID,
		Name:     t.Name,
		AltIDs:   alt,
		Parents:  refs(parents.Sorted()),
		Children: refs(t.Children().Sorted()),
	}, nil
}

func (s *Server) handleGetAncestors(ctx context.Context, _ *mcp.CallToolRequest, args TermArgs) (*mcp.CallToolResult, TermsResult, error) {
	anc, err := s.graph.Ancestors(strings.TrimSpace(args.ID))
	if err != nil {
		return nil, TermsResult{}, err
	}
	return nil, TermsResult{Terms: refs(anc.Sorted())}, nil
}

func (s *Server) handleGetChildren(ctx context.Context, _ *mcp.CallToolRequest, args TermArgs) (*mcp.CallToolResult, TermsResult, error) {
	kids, err := s.graph.Children(strings.TrimSpace(args.ID))
	if err != nil {
		return nil, TermsResult{}, err
	}
	return nil, TermsResult{Terms: refs(kids.Sorted())}, nil
}

func (s *Server) handleGetCategories(ctx context.Context, _ *mcp.CallToolRequest, args TermArgs) (*mcp.CallToolResult, TermsResult, error) {
	_, cats, err := s.extender.Classify(strings.TrimSpace(args.ID))
	if err != nil {
		return nil, TermsResult{}, err
	}
	return nil, TermsResult{Terms: refs(cats)}, nil
}

func (s *Server) handleExtendRecord(ctx context.Context, _ *mcp.CallToolRequest, args ExtendRecordArgs) (*mcp.CallToolResult, ExtendRecordResult, error) {
	var buf bytes.Buffer
	if _, err := s.extender.Run(strings.NewReader(args.Line), &buf); err != nil {
		return nil, ExtendRecordResult{}, err
	}

	rows := []string{}
	for _, line := range strings.Split(buf.String(), "\n") {
		if line != "" {
			rows = append(rows, line)
		}
	}
	return nil, ExtendRecordResult{Rows: rows}, nil
}

// handleQueryGraph executes Cypher queries.
func (s *Server) handleQueryGraph(ctx context.Context, _ *mcp.CallToolRequest, args QueryGraphArgs) (*mcp.CallToolResult, QueryGraphResult, error) {
	if s.neo4jClient == nil {
		return nil, QueryGraphResult{}, errNoNeo4j
	}
	result, err := s.neo4jClient.ExecuteCypher(ctx, args.Cypher)
	if err != nil {
		return nil, QueryGraphResult{}, fmt.Errorf("cypher query failed: %w", err)
	}
	return nil, QueryGraphResult{Data: result}, nil
}

func (s *Server) handleGetCategoryCounts(ctx context.Context, _ *mcp.CallToolRequest, args CategoryCountsArgs) (*mcp.CallToolResult, CategoryCountsResult, error) {
	if s.runs == nil {
		return nil, CategoryCountsResult{}, errNoDuckDB
	}
	counts, err := s.runs.QueryCategoryCounts(ctx, args.RunID)
	if err != nil {
		return nil, CategoryCountsResult{}, fmt.Errorf("failed to query category counts: %w", err)
	}
	return nil, CategoryCountsResult{Counts: counts}, nil
}

func (s *Server) handleGetRecentRuns(ctx context.Context, _ *mcp.CallToolRequest, args RecentRunsArgs) (*mcp.CallToolResult, RecentRunsResult, error) {
	if s.runs == nil {
		return nil, RecentRunsResult{}, errNoDuckDB
	}
	limit := args.Limit
	if limit == 0 {
		limit = 10
	}
	runs, err := s.runs.QueryRuns(ctx, limit)
	if err != nil {
		return nil, RecentRunsResult{}, fmt.Errorf("failed to query runs: %w", err)
	}
	return nil, RecentRunsResult{Runs: runs}, nil
}

// Start starts the MCP server using stdio transport.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio",
		zap.Int("terms", s.graph.Len()),
		zap.String("category_root", s.extender.Root().ID),
		zap.Bool("duckdb", s.runs != nil),
		zap.Bool("neo4j", s.neo4jClient != nil))
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// Close releases the stores the server was given.
func (s *Server) Close(ctx context.Context) error {
	var errs []error
	if c, ok := s.runs.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if s.neo4jClient != nil {
		errs = append(errs, s.neo4jClient.Close(ctx))
	}
	return errors.Join(errs...)
}
