package extract

import (
	"context"
	"errors"
	"testing"

	"hargalist/internal/llm"
)

type stubVisionClient struct {
	model    string
	response string
	err      error
}

func (s *stubVisionClient) Complete(_ context.Context, model string, _ []llm.Message) (string, llm.Usage, error) {
	s.model = model
	return s.response, llm.Usage{TotalTokens: 42}, s.err
}

func TestVisionExtractorUsesConfiguredModel(t *testing.T) {
	cfg := testConfig()
	cfg.LLMVisionModel = "vendor/vision-large"
	client := &stubVisionClient{
		response: `[{"name":"Wortel","unit":"kg","price":"8.000","category":""}]`,
	}
	e := &VisionExtractor{cfg: cfg, client: client}

	res, err := e.Extract(context.Background(), doc("foto_harga.jpg", []byte{0xff, 0xd8}))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if client.model != "vendor/vision-large" {
		t.Fatalf("model = %q", client.model)
	}
	if len(res.Rows) != 1 || res.Rows[0].Name != "Wortel" || res.Rows[0].Price != 8000 {
		t.Fatalf("rows = %+v", res.Rows)
	}
	if res.TokensUsed != 42 {
		t.Fatalf("tokens = %d", res.TokensUsed)
	}
}

func TestVisionExtractorEmptyImageYieldsNoRows(t *testing.T) {
	client := &stubVisionClient{response: `[]`}
	e := &VisionExtractor{cfg: testConfig(), client: client}

	_, err := e.Extract(context.Background(), doc("blank.png", []byte{0x89}))
	if !errors.Is(err, ErrNoRows) {
		t.Fatalf("err = %v", err)
	}
}
