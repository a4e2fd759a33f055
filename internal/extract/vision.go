package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"strings"

	"github.com/gen2brain/go-fitz"

	"hargalist/internal"
	"hargalist/internal/config"
	"hargalist/internal/llm"
	"hargalist/internal/util"
)

const visionPrompt = `You are reading a supplier price list from Indonesia. Extract every product row you can see.
Return ONLY a JSON array, no prose, no code fences. Each element:
{"name":"product name as written","unit":"unit as written or empty","price":"price as written","category":"category as written or empty"}
Rules:
- One element per product row. Never invent rows that are not visible.
- Keep Indonesian names as written, do not translate.
- Copy prices exactly including separators and suffixes like "k" or "rb".
- Skip headers, totals, footers and contact details.
If the image contains no price list, return [].`

// visionRow is the row shape the vision and document prompts ask for.
type visionRow struct {
	Name     string `json:"name"`
	Unit     string `json:"unit"`
	Price    string `json:"price"`
	Category string `json:"category"`
}

// VisionExtractor sends page images to a vision model. PDFs are rendered to
// JPEG page by page; images go through as-is.
type VisionExtractor struct {
	cfg    config.Config
	client VisionClient
}

func (e *VisionExtractor) Method() internal.ExtractionMethod { return internal.MethodVisionOCR }

func (e *VisionExtractor) Extract(ctx context.Context, doc internal.Document) (Result, error) {
	pages, err := e.pageImages(ctx, doc)
	if err != nil {
		return Result{}, err
	}

	res := Result{}
	line := 0
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		content, usage, err := e.client.Complete(ctx, e.cfg.LLMVisionModel, []llm.Message{
			llm.VisionMessage(visionPrompt, page, "image/jpeg"),
		})
		res.TokensUsed += usage.TotalTokens
		if err != nil {
			if len(res.Rows) > 0 {
				break // keep what earlier pages yielded
			}
			return res, fmt.Errorf("vision model: %w", err)
		}
		rows, err := parseVisionRows(content, line)
		if err != nil {
			continue
		}
		if len(rows) > 0 {
			line = rows[len(rows)-1].Line
			res.Rows = append(res.Rows, rows...)
		}
	}
	if len(res.Rows) == 0 {
		return res, ErrNoRows
	}
	res.SupplierGuess = SupplierFromFilename(doc.Filename)
	res.Completeness = completeness(res.Rows)
	return res, nil
}

func (e *VisionExtractor) pageImages(ctx context.Context, doc internal.Document) ([][]byte, error) {
	if Classify(doc.Filename, doc.Mime) == internal.KindImage {
		return [][]byte{doc.Bytes}, nil
	}

	fz, err := fitz.NewFromMemory(doc.Bytes)
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	defer fz.Close()

	maxPages := e.cfg.MaxVisionPages
	if maxPages <= 0 {
		maxPages = 20
	}
	n := fz.NumPage()
	if n > maxPages {
		n = maxPages
	}

	pages := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := fz.Image(i)
		if err != nil {
			continue
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			continue
		}
		pages = append(pages, buf.Bytes())
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("pdf produced no renderable pages")
	}
	return pages, nil
}

func parseVisionRows(content string, startLine int) ([]internal.RawRow, error) {
	var parsed []visionRow
	if err := json.Unmarshal([]byte(llm.StripJSON(content)), &parsed); err != nil {
		return nil, fmt.Errorf("decode vision rows: %w", err)
	}

	line := startLine
	out := make([]internal.RawRow, 0, len(parsed))
	for _, vr := range parsed {
		name := strings.TrimSpace(vr.Name)
		if name == "" {
			continue
		}
		line++
		rr := internal.RawRow{
			Line:     line,
			Name:     name,
			Unit:     strings.TrimSpace(vr.Unit),
			PriceRaw: strings.TrimSpace(vr.Price),
			Category: strings.TrimSpace(vr.Category),
		}
		if p, ok := util.ParsePrice(rr.PriceRaw); ok {
			rr.Price = p
		}
		out = append(out, rr)
	}
	return out, nil
}
