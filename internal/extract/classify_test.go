package extract

import (
	"testing"

	"hargalist/internal"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		mime     string
		want     internal.DocKind
	}{
		{"xlsx by mime", "harga.bin", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", internal.KindSpreadsheet},
		{"xlsx by ext", "daftar_harga.xlsx", "application/octet-stream", internal.KindSpreadsheet},
		{"pdf with charset", "list.pdf", "application/pdf; charset=binary", internal.KindPDF},
		{"csv", "harga.csv", "text/csv", internal.KindCSV},
		{"image", "foto.jpg", "image/jpeg", internal.KindImage},
		{"image by ext", "scan.png", "", internal.KindImage},
		{"html", "price.html", "", internal.KindHTML},
		{"email", "msg.eml", "message/rfc822", internal.KindEmail},
		{"plain text", "harga.txt", "text/plain", internal.KindText},
		{"unknown", "data.zip", "application/zip", internal.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.filename, tt.mime); got != tt.want {
				t.Fatalf("Classify(%q, %q) = %q, want %q", tt.filename, tt.mime, got, tt.want)
			}
		})
	}
}

func TestSupplierFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"PriceList_Sumber_Rejeki_2026-01.xlsx", "Sumber Rejeki"},
		{"daftar-harga-maju-jaya.pdf", "Maju Jaya"},
		{"harga update 15-08-2026 final.csv", ""},
		{"IMG_2045.jpg", ""},
	}
	for _, tt := range tests {
		if got := SupplierFromFilename(tt.filename); got != tt.want {
			t.Fatalf("SupplierFromFilename(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestSupplierFromText(t *testing.T) {
	got := SupplierFromText("Daftar Harga\nPT Sumber Rejeki Abadi\nJl. Melati 4")
	if got != "Pt Sumber Rejeki Abadi" {
		t.Fatalf("got %q", got)
	}
	if SupplierFromText("no company here") != "" {
		t.Fatal("expected empty guess")
	}
}
