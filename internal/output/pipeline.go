package output

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hpoextend/internal/annotation"
	"hpoextend/internal/engine"
	"hpoextend/internal/ontology"
)

// PipelineRequest names the inputs of one extension run.
type PipelineRequest struct {
	OntologyPath    string
	AnnotationsPath string
	OutputPath      string
	CategoryRoot    string
	LF              bool // \n row terminators instead of \r\n
	KeepRows        bool // collect written rows into the payload for export
	Checks          engine.Config
}

// PipelinePayload represents the final data object ready for persistence.
// The Exporter pulls this from the Output layer to push to DuckDB and Neo4j.
type PipelinePayload struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Request    PipelineRequest

	Graph    *ontology.Graph
	Extender *annotation.Extender
	Stats    annotation.Stats
	Rows     []annotation.Row

	Summary engine.Summary
	Results []engine.CheckResult
	Verdict engine.Verdict
}

// RunPipeline executes the full run: Load -> Extend -> Evaluate -> Bundle.
// The graph is fully built before the first annotation line is read. A
// failed run still returns the payload gathered so far alongside the error.
func RunPipeline(ctx context.Context, req PipelineRequest, logger *zap.Logger) (*PipelinePayload, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &PipelinePayload{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Request:   req,
	}

	// 1. Load ontology
	g, err := ontology.Load(req.OntologyPath)
	if err != nil {
		return p, fmt.Errorf("load ontology: %w", err)
	}
	p.Graph = g
	if n := len(g.Roots()); n != 1 {
		logger.Warn("ontology does not have exactly one root", zap.Int("roots", n))
	}
	logger.Info("ontology loaded",
		zap.String("path", req.OntologyPath),
		zap.String("data_version", g.DataVersion),
		zap.Int("terms", g.Len()),
		zap.Int("obsolete_skipped", g.SkippedObsolete))

	if err := ctx.Err(); err != nil {
		return p, err
	}

	// 2. Extend annotations
	opts := []annotation.Option{
		annotation.WithLogger(logger),
		annotation.WithLF(req.LF),
	}
	if req.KeepRows {
		opts = append(opts, annotation.WithRowHook(func(r annotation.Row) error {
			p.Rows = append(p.Rows, r)
			return nil
		}))
	}
	ext, err := annotation.NewExtender(g, req.CategoryRoot, opts...)
	if err != nil {
		return p, err
	}
	p.Extender = ext

	in, err := os.Open(req.AnnotationsPath)
	if err != nil {
		return p, fmt.Errorf("open annotations: %w", err)
	}
	defer in.Close()

	out, err := os.Create(req.OutputPath)
	if err != nil {
		return p, fmt.Errorf("create output: %w", err)
	}

	p.Stats, err = ext.Run(in, out)
	if cerr := out.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close output: %w", cerr)
	}
	p.FinishedAt = time.Now()
	if err != nil {
		return p, err
	}

	// 3. Evaluate the run
	p.Summary = engine.Summarize(g, ext, p.Stats)
	p.Results = engine.Evaluate(p.Summary, req.Checks)
	p.Verdict = engine.Assess(p.Results)

	logger.Info("annotations extended",
		zap.String("run_id", p.RunID),
		zap.Int("lines", p.Stats.Lines),
		zap.Int("written", p.Stats.Written),
		zap.Int("dropped", p.Stats.Dropped),
		zap.Duration("took", p.FinishedAt.Sub(p.StartedAt)))

	return p, nil
}
