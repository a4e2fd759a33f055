package extract

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"hargalist/internal"
)

func mkEmail(from, subject string, attachName string, attachMime string, attachBody []byte, textBody string) []byte {
	var sb strings.Builder
	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("To: purchasing@example.com\r\n")
	sb.WriteString("Subject: " + subject + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString(`Content-Type: multipart/mixed; boundary="BOUNDARY"` + "\r\n\r\n")

	sb.WriteString("--BOUNDARY\r\n")
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	sb.WriteString(textBody + "\r\n")

	if attachName != "" {
		sb.WriteString("--BOUNDARY\r\n")
		sb.WriteString("Content-Type: " + attachMime + `; name="` + attachName + `"` + "\r\n")
		sb.WriteString("Content-Transfer-Encoding: base64\r\n")
		sb.WriteString(`Content-Disposition: attachment; filename="` + attachName + `"` + "\r\n\r\n")
		sb.WriteString(base64.StdEncoding.EncodeToString(attachBody) + "\r\n")
	}
	sb.WriteString("--BOUNDARY--\r\n")
	return []byte(sb.String())
}

func TestUnwrapEmailAttachment(t *testing.T) {
	csvBody := []byte("Nama,Satuan,Harga\nWortel,kg,8.000\n")
	raw := mkEmail(`"CV Maju Jaya" <sales@majujaya.co.id>`, "Harga minggu ini", "harga.csv", "text/csv", csvBody, "Terlampir daftar harga.")

	docs, supplier, err := UnwrapEmail(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("docs=%d", len(docs))
	}
	if docs[0].Filename != "harga.csv" {
		t.Fatalf("filename = %q", docs[0].Filename)
	}
	if supplier != "CV Maju Jaya" {
		t.Fatalf("supplier = %q", supplier)
	}
}

func TestUnwrapEmailBodyFallback(t *testing.T) {
	raw := mkEmail("sales@majujaya.co.id", "harga", "", "", nil,
		"Wortel Lokal kg 8.000\nApel Fuji kg 25.000")

	docs, _, err := UnwrapEmail(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Mime != "text/plain" {
		t.Fatalf("docs = %+v", docs)
	}
}

func TestCascadeRunEmail(t *testing.T) {
	csvBody := []byte("Nama,Satuan,Harga\nWortel,kg,8.000\nApel Fuji,kg,25.000\nBayam,ikat,3.500\n")
	raw := mkEmail(`"CV Maju Jaya" <sales@majujaya.co.id>`, "Harga", "harga.csv", "text/csv", csvBody, "Terlampir.")

	c := NewCascade(testConfig(), nil)
	res, method, _, err := c.Run(context.Background(), internal.Document{
		Filename: "msg.eml", Mime: "message/rfc822", Bytes: raw,
	})
	if err != nil {
		t.Fatal(err)
	}
	if method != internal.MethodCSV {
		t.Fatalf("method = %q", method)
	}
	if len(res.Rows) != 3 {
		t.Fatalf("len=%d", len(res.Rows))
	}
	if res.SupplierGuess != "CV Maju Jaya" {
		t.Fatalf("supplier = %q", res.SupplierGuess)
	}
}
