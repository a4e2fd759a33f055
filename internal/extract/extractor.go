package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hargalist/internal"
	"hargalist/internal/config"
	"hargalist/internal/llm"
)

// ErrNoRows marks a cascade that exhausted every method without producing a
// single usable row.
var ErrNoRows = errors.New("no extraction method produced rows")

type Result struct {
	Rows          []internal.RawRow
	SupplierGuess string
	Completeness  float64
	TokensUsed    int64
}

type Extractor interface {
	Method() internal.ExtractionMethod
	Extract(ctx context.Context, doc internal.Document) (Result, error)
}

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetryable
	OutcomeFatal
)

// StepResult records one cascade attempt so the decision trail survives into
// upload metadata.
type StepResult struct {
	Method  internal.ExtractionMethod
	Outcome Outcome
	Rows    int
	Reason  string
}

type Cascade struct {
	cfg    config.Config
	vision VisionClient
}

// VisionClient is the slice of the LLM client the AI-backed extractors use.
type VisionClient interface {
	Complete(ctx context.Context, model string, messages []llm.Message) (string, llm.Usage, error)
}

func NewCascade(cfg config.Config, vision VisionClient) *Cascade {
	return &Cascade{cfg: cfg, vision: vision}
}

// ExtractorsFor orders extraction methods from cheapest to most speculative
// for one document kind.
func (c *Cascade) ExtractorsFor(kind internal.DocKind) []Extractor {
	switch kind {
	case internal.KindSpreadsheet:
		return []Extractor{
			&SpreadsheetExtractor{},
			&SpreadsheetAltExtractor{},
		}
	case internal.KindCSV:
		return []Extractor{&CSVExtractor{}}
	case internal.KindHTML:
		return []Extractor{&HTMLExtractor{}}
	case internal.KindText:
		out := []Extractor{&TextExtractor{}}
		if c.vision != nil {
			out = append(out, &LLMDocumentExtractor{cfg: c.cfg, client: c.vision})
		}
		return out
	case internal.KindPDF:
		out := []Extractor{
			&PDFTextExtractor{},
			&PDFTableExtractor{},
		}
		if c.vision != nil {
			out = append(out,
				&VisionExtractor{cfg: c.cfg, client: c.vision},
				&LLMDocumentExtractor{cfg: c.cfg, client: c.vision},
			)
		}
		return out
	case internal.KindImage:
		if c.vision == nil {
			return nil
		}
		return []Extractor{&VisionExtractor{cfg: c.cfg, client: c.vision}}
	default:
		return nil
	}
}

// Run walks the cascade for one document. Each step runs under a hard
// wall-clock timeout; a hung or failed step never blocks the next one. The
// first result clearing the row threshold wins; otherwise the best non-empty
// result after exhaustion does.
func (c *Cascade) Run(ctx context.Context, doc internal.Document) (Result, internal.ExtractionMethod, []StepResult, error) {
	kind := Classify(doc.Filename, doc.Mime)

	if kind == internal.KindEmail {
		return c.runEmail(ctx, doc)
	}

	extractors := c.ExtractorsFor(kind)
	if len(extractors) == 0 {
		return Result{}, "", nil, fmt.Errorf("unsupported document type: %s (%s)", doc.Mime, doc.Filename)
	}

	steps := make([]StepResult, 0, len(extractors))
	var best Result
	var bestMethod internal.ExtractionMethod
	var tokens int64

	for _, ex := range extractors {
		if err := ctx.Err(); err != nil {
			return Result{}, "", steps, err
		}

		res, err := c.runStep(ctx, ex, doc)
		tokens += res.TokensUsed

		if err != nil {
			outcome := OutcomeRetryable
			if errors.Is(err, context.Canceled) {
				return Result{}, "", steps, err
			}
			steps = append(steps, StepResult{Method: ex.Method(), Outcome: outcome, Reason: err.Error()})
			continue
		}

		steps = append(steps, StepResult{Method: ex.Method(), Outcome: OutcomeSuccess, Rows: len(res.Rows)})

		if len(res.Rows) > len(best.Rows) {
			best = res
			bestMethod = ex.Method()
		}
		if c.accepts(res) {
			best = res
			best.TokensUsed = tokens
			return best, ex.Method(), steps, nil
		}
	}

	if len(best.Rows) > 0 {
		best.TokensUsed = tokens
		return best, bestMethod, steps, nil
	}
	return Result{TokensUsed: tokens}, "", steps, fmt.Errorf("%w after %d attempts", ErrNoRows, len(steps))
}

func (c *Cascade) accepts(res Result) bool {
	if len(res.Rows) == 0 {
		return false
	}
	minRows := c.cfg.MinRows
	if minRows <= 0 {
		minRows = 10
	}
	if len(res.Rows) >= minRows {
		return true
	}
	return res.Completeness >= c.cfg.MinCompleteness && res.Completeness > 0
}

// runStep enforces the per-method wall-clock timeout. The extractor receives
// a context that expires with it so renderers and HTTP calls shut down
// instead of leaking.
func (c *Cascade) runStep(ctx context.Context, ex Extractor, doc internal.Document) (Result, error) {
	timeout := c.cfg.StepTimeout()
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type stepOut struct {
		res Result
		err error
	}
	done := make(chan stepOut, 1)
	go func() {
		res, err := ex.Extract(stepCtx, doc)
		done <- stepOut{res: res, err: err}
	}()

	select {
	case out := <-done:
		return out.res, out.err
	case <-stepCtx.Done():
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, fmt.Errorf("method %s timed out after %s", ex.Method(), timeout)
	}
}

func (c *Cascade) runEmail(ctx context.Context, doc internal.Document) (Result, internal.ExtractionMethod, []StepResult, error) {
	inner, supplierGuess, err := UnwrapEmail(doc.Bytes)
	if err != nil {
		return Result{}, "", nil, fmt.Errorf("unwrap email: %w", err)
	}
	if len(inner) == 0 {
		return Result{}, "", nil, errors.New("email has no price-list attachments")
	}

	merged := Result{SupplierGuess: supplierGuess}
	steps := []StepResult{}
	var firstMethod internal.ExtractionMethod

	for _, innerDoc := range inner {
		res, method, innerSteps, err := c.Run(ctx, innerDoc)
		steps = append(steps, innerSteps...)
		merged.TokensUsed += res.TokensUsed
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, "", steps, ctx.Err()
			}
			continue
		}
		if firstMethod == "" {
			firstMethod = method
		}
		offset := len(merged.Rows)
		for i := range res.Rows {
			res.Rows[i].Line = offset + i + 1
		}
		merged.Rows = append(merged.Rows, res.Rows...)
		if res.SupplierGuess != "" && merged.SupplierGuess == "" {
			merged.SupplierGuess = res.SupplierGuess
		}
		if res.Completeness > merged.Completeness {
			merged.Completeness = res.Completeness
		}
	}

	if len(merged.Rows) == 0 {
		return Result{TokensUsed: merged.TokensUsed}, "", steps, fmt.Errorf("%w in email attachments", ErrNoRows)
	}
	return merged, firstMethod, steps, nil
}
