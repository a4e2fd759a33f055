package normalize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"hargalist/internal"
	"hargalist/internal/config"
	"hargalist/internal/llm"
	"hargalist/internal/util"
)

// Completer is the slice of the LLM client the normalizer needs; tests
// substitute a canned implementation.
type Completer interface {
	Complete(ctx context.Context, model string, messages []llm.Message) (string, llm.Usage, error)
}

type Normalizer struct {
	cfg config.Config
	llm Completer
}

type Stats struct {
	TokensUsed int64
	LLMCalls   int
	Errors     []string
}

func NewNormalizer(cfg config.Config, completer Completer) *Normalizer {
	return &Normalizer{cfg: cfg, llm: completer}
}

// Normalize maps raw rows to canonical rows. The result always has exactly
// one entry per input row, in input order: rule-resolved rows are filled
// directly, the rest go to the LLM in batches over a small worker pool, and
// rows the LLM cannot improve are returned with low confidence rather than
// dropped. Batches write to disjoint output indexes, so workers never touch
// the same row.
func (n *Normalizer) Normalize(ctx context.Context, rows []internal.RawRow) ([]internal.NormalizedRow, Stats, error) {
	out := make([]internal.NormalizedRow, len(rows))
	stats := Stats{}
	pending := make([]int, 0)

	for i, raw := range rows {
		norm, resolved := applyRules(raw)
		out[i] = norm
		if !resolved {
			pending = append(pending, i)
		}
	}

	if len(pending) == 0 || n.llm == nil {
		return out, stats, nil
	}
	if err := ctx.Err(); err != nil {
		return out, stats, err
	}

	batchSize := n.cfg.LLMBatchSize
	if batchSize <= 0 {
		batchSize = 30
	}
	var batches [][]int
	for start := 0; start < len(pending); start += batchSize {
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batches = append(batches, pending[start:end])
	}

	workers := n.cfg.LLMMaxWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > len(batches) {
		workers = len(batches)
	}

	jobs := make(chan []int)
	var wg sync.WaitGroup
	var mu sync.Mutex
	stopped := false

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range jobs {
				mu.Lock()
				skip := stopped
				mu.Unlock()
				if skip || ctx.Err() != nil {
					continue
				}

				local := Stats{}
				err := n.normalizeBatch(ctx, rows, batch, out, &local)

				mu.Lock()
				stats.TokensUsed += local.TokensUsed
				stats.LLMCalls += local.LLMCalls
				if err != nil {
					// Batch failure degrades to the rule output; rows stay
					// in place with low confidence.
					stats.Errors = append(stats.Errors, fmt.Sprintf("normalize rows %d-%d: %v", batch[0], batch[len(batch)-1], err))
					if errors.Is(err, llm.ErrQuota) {
						stopped = true
					}
				}
				mu.Unlock()
			}
		}()
	}

	for _, batch := range batches {
		jobs <- batch
	}
	close(jobs)
	wg.Wait()

	return out, stats, nil
}

// applyRules fills a NormalizedRow from the deterministic tables. The second
// return value reports whether the name was confidently resolved.
func applyRules(raw internal.RawRow) (internal.NormalizedRow, bool) {
	unit := ResolveUnit(raw.Unit)

	price := raw.Price
	// "8k" in the price cell is already scaled by ParsePrice; only a bare
	// number next to a thousands marker in the unit column needs the scale.
	if unit.Thousands && !util.HasThousandsSuffix(raw.PriceRaw) {
		price *= 1000
	}

	norm := internal.NormalizedRow{
		Raw:       raw,
		StdUnit:   unit.StdUnit,
		Quantity:  unit.Quantity,
		UnitPrice: price,
		Category:  internal.CategoryOther,
	}

	if raw.Category != "" {
		norm.Category = GuessCategory(raw.Category)
	}

	name := ResolveName(raw.Name)
	if name.Resolved {
		norm.StdName = name.StdName
		if norm.Category == internal.CategoryOther {
			norm.Category = name.Category
		}
		switch {
		case unit.Known || raw.Unit == "":
			norm.Confidence = 100
		default:
			// Name is certain but the unit token is ambiguous.
			norm.Confidence = 70
			norm.StdUnit = util.NormalizeKey(raw.Unit)
		}
		return norm, true
	}

	// Unresolved: pass the raw name through so the row survives even if the
	// LLM fallback fails entirely.
	norm.StdName = util.TitleWords(util.NormalizeKey(raw.Name))
	if !unit.Known && raw.Unit != "" {
		norm.StdUnit = util.NormalizeKey(raw.Unit)
	}
	norm.Confidence = 40
	return norm, false
}

type llmRowRequest struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Unit     string `json:"unit,omitempty"`
	Category string `json:"category,omitempty"`
}

type llmRowResponse struct {
	Index      int     `json:"index"`
	Name       string  `json:"name"`
	Unit       string  `json:"unit"`
	Quantity   float64 `json:"quantity"`
	Category   string  `json:"category"`
	Confidence int     `json:"confidence"`
}

func (n *Normalizer) normalizeBatch(ctx context.Context, rows []internal.RawRow, indexes []int, out []internal.NormalizedRow, stats *Stats) error {
	reqRows := make([]llmRowRequest, 0, len(indexes))
	for _, i := range indexes {
		reqRows = append(reqRows, llmRowRequest{
			Index:    i,
			Name:     rows[i].Name,
			Unit:     rows[i].Unit,
			Category: rows[i].Category,
		})
	}
	payload, err := json.Marshal(reqRows)
	if err != nil {
		return err
	}

	prompt := buildBatchPrompt(string(payload))
	content, usage, err := n.llm.Complete(ctx, n.cfg.LLMModel, []llm.Message{llm.TextMessage(prompt)})
	stats.LLMCalls++
	stats.TokensUsed += usage.TotalTokens
	if err != nil {
		return err
	}

	var resp []llmRowResponse
	if err := json.Unmarshal([]byte(llm.StripJSON(content)), &resp); err != nil {
		return fmt.Errorf("parse normalization response: %w", err)
	}

	valid := map[int]struct{}{}
	for _, i := range indexes {
		valid[i] = struct{}{}
	}
	for _, r := range resp {
		if _, ok := valid[r.Index]; !ok {
			continue
		}
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		row := &out[r.Index]
		row.StdName = util.TitleWords(r.Name)
		if unit := ResolveUnit(r.Unit); unit.Known && !unit.Thousands {
			row.StdUnit = unit.StdUnit
			if unit.Quantity != nil {
				row.Quantity = unit.Quantity
			}
		} else if r.Unit != "" {
			row.StdUnit = util.NormalizeKey(r.Unit)
		}
		if r.Quantity > 0 {
			row.Quantity = util.FloatPtr(r.Quantity)
		}
		row.Category = GuessCategory(r.Category)
		row.Confidence = clampLLMConfidence(r.Confidence)
	}
	return nil
}

func clampLLMConfidence(v int) int {
	if v <= 0 {
		return 80
	}
	if v > 99 {
		return 99
	}
	if v < 30 {
		return 30
	}
	return v
}

func buildBatchPrompt(rowsJSON string) string {
	var b strings.Builder
	b.WriteString("You normalize Indonesian/English food supplier price-list rows.\n")
	b.WriteString("For each input row return canonical English values.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- name: English, \"<Main noun> <Descriptor>\" word order (\"Cheese Mozzarella\", not \"Mozzarella Cheese\"); drop brand names and packaging words.\n")
	b.WriteString("- unit: one of kg, g, mg, l, ml, pcs, bunch, sheet, pack, box, bottle, can, sack, dozen; empty if unknown. A bare \"k\"/\"rb\"/\"ribu\" is a thousands price marker, not a unit: leave unit empty.\n")
	b.WriteString("- quantity: numeric prefix of the unit if present (\"250ml\" -> unit \"ml\", quantity 250), else 0.\n")
	b.WriteString("- category: one of ")
	for i, c := range internal.Categories {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(c))
	}
	b.WriteString(".\n")
	b.WriteString("- confidence: 0-99, your certainty in the translation.\n\n")
	b.WriteString("Reply with ONLY a JSON array, one object per input row, keeping each row's \"index\" unchanged: ")
	b.WriteString(`[{"index":0,"name":"...","unit":"...","quantity":0,"category":"...","confidence":90}]`)
	b.WriteString("\n\nInput rows:\n")
	b.WriteString(rowsJSON)
	return b.String()
}
