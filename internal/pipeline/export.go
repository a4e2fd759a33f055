package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"hargalist/internal"
	"hargalist/internal/storage"
)

// ExportRow is one line of the consolidated price report.
type ExportRow struct {
	ProductID   int64
	DisplayName string
	Category    string
	StdUnit     string
	Supplier    string
	Amount      float64
	ValidFrom   string
	UploadID    string
}

// BuildExportRows joins the active prices with their products and
// suppliers, per supplier when one is given.
func BuildExportRows(db *storage.DB, supplierID *int64) ([]ExportRow, error) {
	prices, err := db.ListActivePrices(supplierID)
	if err != nil {
		return nil, err
	}

	productList, err := db.ListProducts()
	if err != nil {
		return nil, err
	}
	products := map[int64]internal.ProductRecord{}
	for _, p := range productList {
		products[p.ID] = p
	}

	supplierList, err := db.ListSuppliers()
	if err != nil {
		return nil, err
	}
	suppliers := map[int64]internal.SupplierRecord{}
	for _, s := range supplierList {
		suppliers[s.ID] = s
	}

	out := make([]ExportRow, 0, len(prices))
	for _, price := range prices {
		row := ExportRow{
			ProductID: price.ProductID,
			Amount:    price.Amount,
			ValidFrom: price.ValidFrom,
		}
		if p, ok := products[price.ProductID]; ok {
			row.DisplayName = p.DisplayName
			row.Category = string(p.Category)
			if p.StdUnit != nil {
				row.StdUnit = *p.StdUnit
			}
		}
		if s, ok := suppliers[price.SupplierID]; ok {
			row.Supplier = s.Name
		}
		if price.UploadID != nil {
			row.UploadID = *price.UploadID
		}
		out = append(out, row)
	}
	return out, nil
}

// ExportPricesToXLSX writes the consolidated price report.
func ExportPricesToXLSX(rows []ExportRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"product_id", "product", "category", "unit", "supplier", "price_idr", "valid_from", "upload_id",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}
		set(1, row.ProductID)
		set(2, row.DisplayName)
		set(3, row.Category)
		set(4, row.StdUnit)
		set(5, row.Supplier)
		set(6, row.Amount)
		set(7, row.ValidFrom)
		set(8, row.UploadID)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}
