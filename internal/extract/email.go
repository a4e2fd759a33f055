package extract

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/jhillyerd/enmime"

	"hargalist/internal"
)

var fromDisplayName = regexp.MustCompile(`^\s*"?([^"<]+?)"?\s*<`)

// UnwrapEmail opens an RFC822 message and returns the documents worth
// extracting from: every attachment with a supported extension, plus the
// HTML body when it carries a table, plus the plain-text body as a PDF-style
// line source when nothing else exists. The second return is a supplier
// guess from the From header display name.
func UnwrapEmail(raw []byte) ([]internal.Document, string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, "", err
	}

	var docs []internal.Document
	for _, att := range append(env.Attachments, env.Inlines...) {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = "attachment"
		}
		kind := Classify(filename, att.ContentType)
		if kind == internal.KindUnknown || kind == internal.KindEmail {
			continue
		}
		docs = append(docs, internal.Document{
			Filename: filename,
			Mime:     att.ContentType,
			Bytes:    att.Content,
		})
	}

	if len(docs) == 0 && env.HTML != "" && strings.Contains(strings.ToLower(env.HTML), "<table") {
		docs = append(docs, internal.Document{
			Filename: "body.html",
			Mime:     "text/html",
			Bytes:    []byte(env.HTML),
		})
	}
	if len(docs) == 0 && strings.TrimSpace(env.Text) != "" {
		docs = append(docs, internal.Document{
			Filename: "body.txt",
			Mime:     "text/plain",
			Bytes:    []byte(env.Text),
		})
	}

	return docs, supplierFromHeaders(env), nil
}

func supplierFromHeaders(env *enmime.Envelope) string {
	from := env.GetHeader("From")
	if m := fromDisplayName.FindStringSubmatch(from); m != nil {
		name := strings.TrimSpace(m[1])
		if name != "" && !strings.Contains(name, "@") {
			return name
		}
	}
	return SupplierFromText(env.GetHeader("Subject"))
}
