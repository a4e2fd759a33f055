package extract

import (
	"bytes"
	"context"
	"testing"

	"github.com/xuri/excelize/v2"
)

func mkXLSX(rows [][]any) []byte {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	buf := bytes.NewBuffer(nil)
	_, _ = f.WriteTo(buf)
	return buf.Bytes()
}

func TestSpreadsheetExtract(t *testing.T) {
	blob := mkXLSX([][]any{
		{"PT Sumber Rejeki"},
		{"Nama Barang", "Satuan", "Harga"},
		{"Wortel Lokal", "kg", "8.000"},
		{"Apel Fuji", "kg", 25000},
		{"Telur Ayam", "tray", "Rp 52.000"},
	})

	ex := &SpreadsheetExtractor{}
	res, err := ex.Extract(context.Background(), doc("harga.xlsx", blob))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 3 {
		t.Fatalf("len=%d", len(res.Rows))
	}
	if res.Rows[0].Name != "Wortel Lokal" || res.Rows[0].Unit != "kg" || res.Rows[0].Price != 8000 {
		t.Fatalf("row0 = %+v", res.Rows[0])
	}
	if res.Rows[2].Price != 52000 {
		t.Fatalf("row2 price = %v", res.Rows[2].Price)
	}
	if res.SupplierGuess != "Pt Sumber Rejeki" {
		t.Fatalf("supplier = %q", res.SupplierGuess)
	}
	if res.Completeness != 1 {
		t.Fatalf("completeness = %v", res.Completeness)
	}
}

func TestSpreadsheetHeaderless(t *testing.T) {
	blob := mkXLSX([][]any{
		{"Wortel Lokal", "kg", "8.000"},
		{"Apel Fuji", "kg", "25.000"},
		{"Telur Ayam", "tray", "52.000"},
		{"Bayam", "ikat", "3.500"},
	})

	ex := &SpreadsheetExtractor{}
	res, err := ex.Extract(context.Background(), doc("harga.xlsx", blob))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 4 {
		t.Fatalf("len=%d", len(res.Rows))
	}
	if res.Rows[3].Name != "Bayam" || res.Rows[3].Price != 3500 {
		t.Fatalf("row3 = %+v", res.Rows[3])
	}
}

func TestSpreadsheetUnparsablePriceKept(t *testing.T) {
	blob := mkXLSX([][]any{
		{"Nama", "Harga"},
		{"Wortel", "call us"},
		{"Apel", "25.000"},
	})

	ex := &SpreadsheetExtractor{}
	res, err := ex.Extract(context.Background(), doc("x.xlsx", blob))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("len=%d", len(res.Rows))
	}
	if res.Rows[0].Price != 0 || res.Rows[0].PriceRaw != "call us" {
		t.Fatalf("row0 = %+v", res.Rows[0])
	}
	if res.Completeness != 0.5 {
		t.Fatalf("completeness = %v", res.Completeness)
	}
}

func TestSpreadsheetNoRows(t *testing.T) {
	blob := mkXLSX([][]any{{"Catatan rapat"}, {"tidak ada harga"}})
	ex := &SpreadsheetExtractor{}
	if _, err := ex.Extract(context.Background(), doc("notes.xlsx", blob)); err == nil {
		t.Fatal("expected error for sheet without price table")
	}
}
