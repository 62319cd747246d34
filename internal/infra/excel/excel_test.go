package excel

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/yasfei/inventory-autoflex/internal/domain/materials"
	"github.com/yasfei/inventory-autoflex/internal/domain/production"
	"github.com/yasfei/inventory-autoflex/internal/domain/products"
)

func TestExportThenParseStock(t *testing.T) {
	data, err := ExportRawMaterials([]materials.RawMaterial{
		{ID: 1, Code: "C-1", Name: "Cocoa", QuantityInStock: 50},
		{ID: 2, Code: "S-1", Name: "Sugar", QuantityInStock: 7},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	rows, err := ParseStock(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].RawMaterialID != 1 || rows[0].Qty != 50 || rows[0].Row != 2 {
		t.Errorf("unexpected first row %+v", rows[0])
	}
	if rows[1].RawMaterialID != 2 || rows[1].Qty != 7 {
		t.Errorf("unexpected second row %+v", rows[1])
	}
}

func editedFile(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetRow(sheet, "A1", &stockHeader); err != nil {
		t.Fatal(err)
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseStockErrors(t *testing.T) {
	tests := []struct {
		name string
		rows [][]interface{}
		want string
	}{
		{"no data", nil, "no data rows"},
		{"bad id", [][]interface{}{{"x", "C", "Cocoa", 1}}, "row 2: invalid raw_material_id"},
		{"negative qty", [][]interface{}{{1, "C", "Cocoa", -5}}, "row 2: invalid quantity_in_stock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStock(editedFile(t, tt.rows))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParseStockEmptyQtyIsZero(t *testing.T) {
	rows, err := ParseStock(editedFile(t, [][]interface{}{{3, "C", "Cocoa", ""}}))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 1 || rows[0].Qty != 0 {
		t.Errorf("expected qty 0, got %+v", rows)
	}
}

func TestParseStockRejectsGarbage(t *testing.T) {
	if _, err := ParseStock([]byte("not a spreadsheet")); err == nil {
		t.Errorf("expected error for non-xlsx input")
	}
}

func TestExportPlan(t *testing.T) {
	plan := production.Plan([]products.Product{
		{ID: 1, Code: "P1", Name: "Bar", Value: decimal.NewFromInt(10), RawMaterials: []products.BOMLine{{RawMaterialID: 1, RequiredQuantity: 2}}},
		{ID: 2, Code: "P2", Name: "Empty", Value: decimal.NewFromInt(3)},
	}, map[int64]int64{1: 9})

	data, err := ExportPlan(plan)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("production")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 2 products + total, got %d rows", len(rows))
	}
	if rows[1][4] != "4" || rows[1][5] != "40" {
		t.Errorf("unexpected producible row %v", rows[1])
	}
	if rows[2][5] != "blocked" {
		t.Errorf("expected blocked marker, got %v", rows[2])
	}
	if rows[3][2] != "TOTAL" || rows[3][5] != "40" {
		t.Errorf("unexpected total row %v", rows[3])
	}
}
