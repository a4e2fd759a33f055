package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"hargalist/internal"
	"hargalist/internal/config"
	"hargalist/internal/llm"
)

const documentPrompt = `You are reading the raw text of a supplier price list from Indonesia. The layout may be broken: columns merged, rows split across lines.
Reconstruct the product rows and return ONLY a JSON array, no prose, no code fences. Each element:
{"name":"product name as written","unit":"unit as written or empty","price":"price as written","category":"category as written or empty"}
Rules:
- One element per product. Never invent products that do not appear in the text.
- Keep Indonesian names as written, do not translate.
- Copy prices exactly including separators and suffixes like "k" or "rb".
- Skip headers, totals, footers and contact details.
If the text contains no price list, return [].

Document text:
`

// maxDocumentChars bounds the prompt so a long catalogue does not blow the
// context window. Rows past the cut are lost; the vision step runs first
// and usually wins on such documents.
const maxDocumentChars = 60000

// LLMDocumentExtractor is the last resort: ship the whole text layer to the
// model and let it reconstruct the rows.
type LLMDocumentExtractor struct {
	cfg    config.Config
	client VisionClient
}

func (e *LLMDocumentExtractor) Method() internal.ExtractionMethod { return internal.MethodLLMDocument }

func (e *LLMDocumentExtractor) Extract(ctx context.Context, doc internal.Document) (Result, error) {
	text, err := documentText(doc)
	if err != nil {
		return Result{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, fmt.Errorf("document has no text layer")
	}
	if len(text) > maxDocumentChars {
		text = text[:maxDocumentChars]
	}

	content, usage, err := e.client.Complete(ctx, e.cfg.LLMModel, []llm.Message{
		llm.TextMessage(documentPrompt + text),
	})
	res := Result{TokensUsed: usage.TotalTokens}
	if err != nil {
		return res, fmt.Errorf("document model: %w", err)
	}

	rows, err := parseVisionRows(content, 0)
	if err != nil {
		return res, err
	}
	if len(rows) == 0 {
		return res, ErrNoRows
	}
	res.Rows = rows
	res.SupplierGuess = SupplierFromText(text)
	if res.SupplierGuess == "" {
		res.SupplierGuess = SupplierFromFilename(doc.Filename)
	}
	res.Completeness = completeness(rows)
	return res, nil
}

func documentText(doc internal.Document) (string, error) {
	switch Classify(doc.Filename, doc.Mime) {
	case internal.KindPDF:
		r, err := pdf.NewReader(bytes.NewReader(doc.Bytes), int64(len(doc.Bytes)))
		if err != nil {
			return "", fmt.Errorf("open pdf: %w", err)
		}
		var sb strings.Builder
		for i := 1; i <= r.NumPage(); i++ {
			p := r.Page(i)
			if p.V.IsNull() {
				continue
			}
			text, err := p.GetPlainText(nil)
			if err != nil {
				continue
			}
			sb.WriteString(text)
			sb.WriteString("\n")
		}
		return sb.String(), nil
	default:
		return string(doc.Bytes), nil
	}
}
