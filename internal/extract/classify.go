package extract

import (
	"path/filepath"
	"regexp"
	"strings"

	"hargalist/internal"
	"hargalist/internal/util"
)

// Classify routes a document to an extraction family by mime type, falling
// back to the filename extension when the transport lied or sent
// application/octet-stream.
func Classify(filename, mime string) internal.DocKind {
	m := strings.ToLower(strings.TrimSpace(mime))
	if i := strings.Index(m, ";"); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}

	switch m {
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel",
		"application/x-xlsx":
		return internal.KindSpreadsheet
	case "application/pdf":
		return internal.KindPDF
	case "text/csv", "application/csv":
		return internal.KindCSV
	case "text/html":
		return internal.KindHTML
	case "text/plain":
		return internal.KindText
	case "message/rfc822":
		return internal.KindEmail
	}
	if strings.HasPrefix(m, "image/") {
		return internal.KindImage
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls", ".xlsm":
		return internal.KindSpreadsheet
	case ".pdf":
		return internal.KindPDF
	case ".csv":
		return internal.KindCSV
	case ".html", ".htm":
		return internal.KindHTML
	case ".txt":
		return internal.KindText
	case ".eml":
		return internal.KindEmail
	case ".png", ".jpg", ".jpeg", ".webp", ".gif", ".bmp", ".tiff":
		return internal.KindImage
	}
	return internal.KindUnknown
}

var (
	fileNoiseWords = regexp.MustCompile(`(?i)\b(price\s*list|pricelist|daftar\s*harga|harga|quotation|penawaran|list|update|final|new|rev(isi)?|copy|img|image|scan|photo|foto|wa)\b`)
	fileDatePart   = regexp.MustCompile(`\b\d{1,4}[-_./]\d{1,2}([-_./]\d{1,4})?\b|\b(20\d{2})\b`)
	companyPrefix  = regexp.MustCompile(`(?i)\b(PT|CV|UD|Toko|Supplier)\.?\s+([A-Za-z][A-Za-z0-9&' ]{2,40})`)
)

// SupplierFromFilename guesses the supplier name from an upload's filename:
// "PriceList_Sumber_Rejeki_2026-01.xlsx" -> "Sumber Rejeki".
func SupplierFromFilename(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)
	base = fileNoiseWords.ReplaceAllString(base, " ")
	base = fileDatePart.ReplaceAllString(base, " ")
	// digit-only tokens are dates and sequence numbers, never names
	kept := make([]string, 0, 4)
	for _, tok := range strings.Fields(base) {
		if strings.IndexFunc(tok, func(r rune) bool { return r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' }) < 0 {
			continue
		}
		kept = append(kept, tok)
	}
	base = strings.Join(kept, " ")
	if len([]rune(base)) < 3 {
		return ""
	}
	return util.TitleWords(base)
}

// SupplierFromText scans document text for an Indonesian company prefix
// ("PT Sumber Rejeki", "CV Maju Jaya").
func SupplierFromText(text string) string {
	m := companyPrefix.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	name := util.NormalizeSpaces(m[1] + " " + m[2])
	return util.TitleWords(name)
}
