package extract

import "testing"

func TestLineToRow(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		ok    bool
		want  string
		unit  string
		price float64
	}{
		{"name unit price", "Wortel Lokal kg 8.000", true, "Wortel Lokal", "kg", 8000},
		{"rupiah prefix", "Telur Ayam tray Rp 52.000", true, "Telur Ayam", "tray", 52000},
		{"thousands marker", "Bayam ikat 3.5 rb", true, "Bayam", "ikat", 3500},
		{"numbered line", "1. Wortel kg 8.000", true, "Wortel", "kg", 8000},
		{"no price", "Hormat kami", false, "", "", 0},
		{"contact noise", "Telp: 021-555123", false, "", "", 0},
		{"quantity unit", "Minyak Goreng 250ml 7.500", true, "Minyak Goreng", "250ml", 7500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, ok := lineToRow(1, tt.line)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v (row %+v)", ok, tt.ok, row)
			}
			if !ok {
				return
			}
			if row.Name != tt.want || row.Unit != tt.unit || row.Price != tt.price {
				t.Fatalf("row = %+v", row)
			}
		})
	}
}

func TestIsPDFNoise(t *testing.T) {
	noisy := []string{
		"Daftar Harga Agustus",
		"Telp: 021-555123",
		"Terima kasih atas kepercayaannya",
		"------",
	}
	for _, line := range noisy {
		if !isPDFNoise(line) {
			t.Fatalf("%q should be noise", line)
		}
	}
	if isPDFNoise("Wortel Lokal kg 8.000") {
		t.Fatal("product line flagged as noise")
	}
}
