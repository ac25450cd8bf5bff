// Package project orchestrates one full parse: Source Classifier → L2
// Parsers (fanned out across files) → Element Enricher → Project Index →
// Alias Resolver → Call Graph Builder + Endpoint/Call-site Extractor →
// Full-Stack Tracer, grounded on analyzer.AnalyzeDir/analyzePackages's
// walk-and-collect orchestration pattern, generalized from sequential to
// bounded concurrent fan-out.
package project

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/corelens/tracecore/callgraph"
	"github.com/corelens/tracecore/classify"
	"github.com/corelens/tracecore/config"
	"github.com/corelens/tracecore/endpoint"
	"github.com/corelens/tracecore/enrich"
	"github.com/corelens/tracecore/index"
	"github.com/corelens/tracecore/internal/errs"
	"github.com/corelens/tracecore/internal/xlog"
	"github.com/corelens/tracecore/model"
	"github.com/corelens/tracecore/parser/markup"
	"github.com/corelens/tracecore/parser/script"
	"github.com/corelens/tracecore/parser/webscript"
	"github.com/corelens/tracecore/resolve"
	"github.com/corelens/tracecore/trace"
)

// File is one input to a parse: a project-relative path and its raw bytes.
type File struct {
	Path  string
	Bytes []byte
}

// Result is everything a completed parse produces: the committed Project
// plus the derived index, alias map, call graph, endpoint/call-site sets,
// and full-stack traces.
type Result struct {
	Project   *model.Project
	Index     *index.Index
	Aliases   model.AliasMap
	CallGraph *model.CallGraph
	Endpoints []model.Endpoint
	CallSites []model.CallSite
	Workflows []*model.WorkflowTrace
}

// Parse runs the full pipeline over files. Non-fatal per-file problems
// (unreadable files, recoverable parse errors) are collected and returned
// alongside a successful Result; a non-nil error means no Project was
// committed at all — cancellation, or an InvariantViolation raised during
// enrichment or indexing — matching §7's "a project commit must not occur"
// rule.
func Parse(ctx context.Context, name string, files []File, cfg *config.Config, log xlog.Logger) (*Result, []error, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = xlog.Nop
	}

	records, problems, err := parseFiles(ctx, files, cfg)
	if err != nil {
		return nil, problems, err
	}

	for _, rec := range records {
		if err := enrich.File(rec); err != nil {
			return nil, problems, err
		}
	}

	proj := &model.Project{Name: name, Files: records}

	idx, err := index.Build(proj)
	if err != nil {
		return nil, problems, err
	}

	aliases := resolve.Build(idx, log)
	graph := callgraph.Build(idx, aliases)
	endpoints := endpoint.Endpoints(idx, cfg)
	callSites := endpoint.CallSites(idx)
	workflows := trace.Build(idx, graph, endpoints, callSites)

	return &Result{
		Project:   proj,
		Index:     idx,
		Aliases:   aliases,
		CallGraph: graph,
		Endpoints: endpoints,
		CallSites: callSites,
		Workflows: workflows,
	}, problems, nil
}

// parseFiles classifies and parses every file, fanning parsing out across
// a bounded pool of goroutines (parsers share no mutable state, per §5).
// On context cancellation, already-finished FileRecords are discarded and
// a non-nil error is returned — there is no partial Project.
func parseFiles(ctx context.Context, files []File, cfg *config.Config) ([]*model.FileRecord, []error, error) {
	classifier := classify.New(cfg)
	kind := make([]config.ParserKind, len(files))
	for i, f := range files {
		kind[i] = classifier.Identity(f.Path)
	}

	results := make([]*model.FileRecord, len(files))
	var (
		problems   []error
		problemsMu sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit())

	for i, f := range files {
		i, f := i, f
		k := kind[i]
		if k == classify.Skip {
			continue
		}
		g.Go(func() error {
			if !utf8.Valid(f.Bytes) {
				problemsMu.Lock()
				problems = append(problems, &errs.FileUnreadable{Path: f.Path, Err: fmt.Errorf("not valid UTF-8")})
				problemsMu.Unlock()
				return nil
			}
			rec, perr := parseOne(gctx, f, k)
			if perr != nil {
				problemsMu.Lock()
				problems = append(problems, perr)
				problemsMu.Unlock()
				return nil
			}
			results[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, problems, err
	}
	if err := ctx.Err(); err != nil {
		return nil, problems, err
	}

	out := make([]*model.FileRecord, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, problems, nil
}

func parseOne(ctx context.Context, f File, kind config.ParserKind) (*model.FileRecord, error) {
	var (
		elements []*model.Element
		err      error
		tag      model.LanguageTag
	)

	switch kind {
	case config.ParserScript:
		elements, err = script.New().Parse(ctx, f.Bytes)
		tag = model.LanguageScript
	case config.ParserWebScript:
		elements, err = webscript.New().Parse(ctx, f.Bytes)
		tag = model.LanguageWebScript
	case config.ParserMarkup:
		elements, err = markup.New().Parse(ctx, f.Bytes)
		tag = model.LanguageMarkup
	default:
		return nil, &errs.ParserUnavailable{ParserKind: string(kind), Err: fmt.Errorf("unknown parser kind")}
	}
	if err != nil {
		return nil, &errs.ParserError{Path: f.Path, Err: err}
	}

	content := string(f.Bytes)
	return &model.FileRecord{
		Path:        f.Path,
		LanguageTag: tag,
		Checksum:    model.Checksum(f.Bytes),
		LineCount:   lineCount(content),
		Content:     content,
		Elements:    elements,
	}, nil
}

func lineCount(content string) int {
	if content == "" {
		return 0
	}
	n := 1
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			n++
		}
	}
	return n
}

func fanOutLimit() int {
	return 8
}
