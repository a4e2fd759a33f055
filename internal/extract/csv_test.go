package extract

import (
	"context"
	"testing"
)

func TestCSVExtract(t *testing.T) {
	data := []byte("Nama Barang,Satuan,Harga\nWortel Lokal,kg,8.000\nApel Fuji,kg,25.000\nTelur Ayam,tray,52.000\n")
	ex := &CSVExtractor{}
	res, err := ex.Extract(context.Background(), doc("harga.csv", data))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 3 {
		t.Fatalf("len=%d", len(res.Rows))
	}
	if res.Rows[1].Name != "Apel Fuji" || res.Rows[1].Price != 25000 {
		t.Fatalf("row1 = %+v", res.Rows[1])
	}
}

func TestCSVSemicolonDelimited(t *testing.T) {
	data := []byte("Nama;Satuan;Harga\nWortel;kg;8.000\nApel;kg;25.000\nBayam;ikat;3.500\n")
	ex := &CSVExtractor{}
	res, err := ex.Extract(context.Background(), doc("harga.csv", data))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 3 {
		t.Fatalf("len=%d", len(res.Rows))
	}
	if res.Rows[0].Unit != "kg" {
		t.Fatalf("row0 = %+v", res.Rows[0])
	}
}

func TestCSVContactListRejected(t *testing.T) {
	data := []byte("Nama,Telepon,Email\nBudi,0812345678,budi@example.com\nSari,0813334444,sari@example.com\n")
	ex := &CSVExtractor{}
	_, err := ex.Extract(context.Background(), doc("kontak.csv", data))
	if err == nil {
		t.Fatal("expected contact list to produce no rows")
	}
}
