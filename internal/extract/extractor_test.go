package extract

import (
	"context"
	"strings"
	"testing"
	"time"

	"hargalist/internal"
	"hargalist/internal/config"
)

func doc(filename string, data []byte) internal.Document {
	return internal.Document{Filename: filename, Bytes: data}
}

func testConfig() config.Config {
	return config.Config{
		StepTimeoutMs:   2000,
		MinRows:         3,
		MinCompleteness: 0.7,
		MaxVisionPages:  2,
	}
}

type stubExtractor struct {
	method internal.ExtractionMethod
	res    Result
	err    error
	delay  time.Duration
}

func (s *stubExtractor) Method() internal.ExtractionMethod { return s.method }

func (s *stubExtractor) Extract(ctx context.Context, _ internal.Document) (Result, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	return s.res, s.err
}

func TestRunStepTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.StepTimeoutMs = 50
	c := NewCascade(cfg, nil)

	slow := &stubExtractor{method: internal.MethodPDFText, delay: 5 * time.Second}
	_, err := c.runStep(context.Background(), slow, doc("x.pdf", nil))
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("err = %v", err)
	}
}

func TestCascadeAccepts(t *testing.T) {
	c := NewCascade(testConfig(), nil)

	rows := func(n int, priced int) []internal.RawRow {
		out := make([]internal.RawRow, n)
		for i := range out {
			out[i] = internal.RawRow{Line: i + 1, Name: "x"}
			if i < priced {
				out[i].Price = 1000
			}
		}
		return out
	}

	if !c.accepts(Result{Rows: rows(3, 0)}) {
		t.Fatal("row threshold should accept")
	}
	if c.accepts(Result{Rows: rows(2, 0)}) {
		t.Fatal("sparse low-completeness result should not be accepted")
	}
	if !c.accepts(Result{Rows: rows(2, 2), Completeness: 1}) {
		t.Fatal("small but complete result should be accepted")
	}
	if c.accepts(Result{}) {
		t.Fatal("empty result should never be accepted")
	}
}

func TestCascadeRunHTML(t *testing.T) {
	html := `<html><body>
<table>
<tr><th>Nama Barang</th><th>Satuan</th><th>Harga</th></tr>
<tr><td>Wortel</td><td>kg</td><td>8.000</td></tr>
<tr><td>Apel Fuji</td><td>kg</td><td>25.000</td></tr>
<tr><td>Bayam</td><td>ikat</td><td>3.500</td></tr>
</table></body></html>`

	c := NewCascade(testConfig(), nil)
	res, method, steps, err := c.Run(context.Background(), internal.Document{
		Filename: "harga.html", Mime: "text/html", Bytes: []byte(html),
	})
	if err != nil {
		t.Fatal(err)
	}
	if method != internal.MethodHTMLTable {
		t.Fatalf("method = %q", method)
	}
	if len(res.Rows) != 3 {
		t.Fatalf("len=%d", len(res.Rows))
	}
	if len(steps) != 1 || steps[0].Outcome != OutcomeSuccess {
		t.Fatalf("steps = %+v", steps)
	}
}

func TestCascadeNoFabricatedRows(t *testing.T) {
	c := NewCascade(testConfig(), nil)
	res, _, _, err := c.Run(context.Background(), internal.Document{
		Filename: "empty.html", Mime: "text/html", Bytes: []byte("<html><body><p>hello</p></body></html>"),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(res.Rows) != 0 {
		t.Fatalf("rows fabricated: %+v", res.Rows)
	}
}

func TestCascadeUnsupportedKind(t *testing.T) {
	c := NewCascade(testConfig(), nil)
	_, _, _, err := c.Run(context.Background(), internal.Document{
		Filename: "a.zip", Mime: "application/zip",
	})
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("err = %v", err)
	}
}
