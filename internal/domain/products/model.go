package products

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yasfei/inventory-autoflex/internal/domain/validation"
)

func init() {
	// value/totalValue уходят в JSON числом, как ждёт фронт
	decimal.MarshalJSONWithoutQuotes = true
}

var (
	ErrNotFound            = validation.New(validation.KindNotFound, "", "Product not found")
	ErrAssociationNotFound = validation.New(validation.KindNotFound, "", "Association not found")
	ErrDuplicateCode       = validation.New(validation.KindDuplicateCode, "code", "Product code already exists")
	ErrUnknownReference    = validation.New(validation.KindUnknownReference, "rawMaterials", "Raw material does not exist")
	ErrDuplicateLine       = validation.New(validation.KindDuplicateReference, "rawMaterialId", "Raw material is already associated with this product")
)

// BOMLine: сколько сырья нужно на единицу продукта.
type BOMLine struct {
	RawMaterialID    int64 `json:"rawMaterialId"`
	RequiredQuantity int64 `json:"requiredQuantity"`
}

type Product struct {
	ID           int64           `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Value        decimal.Decimal `json:"value"`
	RawMaterials []BOMLine       `json:"rawMaterials"`
	CreatedAt    time.Time       `json:"-"`
}

func (p Product) HasProduction() bool { return len(p.RawMaterials) > 0 }

type Input struct {
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Value        decimal.Decimal `json:"value"`
	RawMaterials []BOMLine       `json:"rawMaterials"`
}

func (in Input) Normalize() Input {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	if in.RawMaterials == nil {
		in.RawMaterials = []BOMLine{}
	}
	return in
}

// Validate проверяет поля формы и строки BOM. Повторяющийся rawMaterialId
// в одном продукте отклоняется, а не перезаписывается.
func (in Input) Validate() validation.Fields {
	errs := validation.Fields{}
	in = in.Normalize()
	if in.Code == "" {
		errs.Add(validation.KindMissingField, "code", "Code is required")
	}
	if in.Name == "" {
		errs.Add(validation.KindMissingField, "name", "Name is required")
	}
	if !in.Value.IsPositive() {
		errs.Add(validation.KindNonPositiveQuantity, "value", "Value must be greater than zero")
	}

	seen := make(map[int64]struct{}, len(in.RawMaterials))
	for i, line := range in.RawMaterials {
		field := fmt.Sprintf("rawMaterials[%d]", i)
		if line.RawMaterialID <= 0 {
			errs.Add(validation.KindMissingField, field+".rawMaterialId", "Select a raw material")
			continue
		}
		if line.RequiredQuantity <= 0 {
			errs.Add(validation.KindNonPositiveQuantity, field+".requiredQuantity", "Quantity must be greater than zero")
		}
		if _, dup := seen[line.RawMaterialID]; dup {
			errs.Add(validation.KindDuplicateReference, field+".rawMaterialId",
				fmt.Sprintf("Raw material %d is listed more than once", line.RawMaterialID))
		}
		seen[line.RawMaterialID] = struct{}{}
	}
	return errs
}

// Input возвращает данные продукта в виде тела запроса на изменение.
func (p Product) Input() Input {
	lines := make([]BOMLine, len(p.RawMaterials))
	copy(lines, p.RawMaterials)
	return Input{Code: p.Code, Name: p.Name, Value: p.Value, RawMaterials: lines}
}

// Association: строка BOM в том виде, в каком её отдаёт
// GET /products/{id}/raw-materials.
type Association struct {
	ID               int64  `json:"id"`
	ProductID        int64  `json:"productId"`
	ProductName      string `json:"productName,omitempty"`
	RawMaterialID    int64  `json:"rawMaterialId"`
	RawMaterialName  string `json:"rawMaterialName"`
	RequiredQuantity int64  `json:"requiredQuantity"`
}

func IDs(items []Product) []int64 {
	out := make([]int64, 0, len(items))
	for _, p := range items {
		out = append(out, p.ID)
	}
	return out
}
