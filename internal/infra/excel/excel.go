package excel

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/yasfei/inventory-autoflex/internal/domain/materials"
	"github.com/yasfei/inventory-autoflex/internal/domain/production"
)

var stockHeader = []interface{}{
	"raw_material_id",
	"code",
	"name",
	"quantity_in_stock", // текущий остаток; можно заменить фактическим
}

// StockRow: строка файла остатков после разбора.
type StockRow struct {
	Row           int
	RawMaterialID int64
	Qty           int64
}

func ExportRawMaterials(items []materials.RawMaterial) ([]byte, error) {
	rows := make([][]interface{}, 0, len(items))
	for _, m := range items {
		rows = append(rows, []interface{}{m.ID, m.Code, m.Name, m.QuantityInStock})
	}
	return write("raw_materials", stockHeader, rows)
}

// ParseStock читает файл, выгруженный ExportRawMaterials (возможно,
// отредактированный). Пустое qty = 0.
func ParseStock(data []byte) ([]StockRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("file has no data rows")
	}
	if len(rows[0]) < len(stockHeader) {
		return nil, fmt.Errorf("expected at least %d columns (raw_material_id ... quantity_in_stock)", len(stockHeader))
	}

	out := make([]StockRow, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(row[0]), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("row %d: invalid raw_material_id %q", i+1, row[0])
		}

		var qty int64
		if len(row) > 3 {
			if s := strings.TrimSpace(row[3]); s != "" {
				qty, err = strconv.ParseInt(s, 10, 64)
				if err != nil || qty < 0 {
					return nil, fmt.Errorf("row %d: invalid quantity_in_stock %q, use a non-negative integer", i+1, s)
				}
			}
		}
		out = append(out, StockRow{Row: i + 1, RawMaterialID: id, Qty: qty})
	}
	return out, nil
}

func ExportPlan(plan production.PlanResult) ([]byte, error) {
	header := []interface{}{"product_id", "code", "name", "unit_value", "max_quantity", "total_value"}
	rows := make([][]interface{}, 0, len(plan.Producible)+len(plan.Blocked)+1)
	for _, l := range plan.Producible {
		rows = append(rows, []interface{}{l.ID, l.Code, l.Name, l.Value.InexactFloat64(), l.MaxQuantity, l.TotalValue.InexactFloat64()})
	}
	for _, p := range plan.Blocked {
		rows = append(rows, []interface{}{p.ID, p.Code, p.Name, p.Value.InexactFloat64(), 0, "blocked"})
	}
	rows = append(rows, []interface{}{"", "", "TOTAL", "", "", plan.TotalValue.InexactFloat64()})
	return write("production", header, rows)
}

func write(sheetName string, header []interface{}, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(sheet, sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &r); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}
	return buf.Bytes(), nil
}
