package materials

import (
	"strings"
	"time"

	"github.com/yasfei/inventory-autoflex/internal/domain/validation"
)

var (
	ErrNotFound      = validation.New(validation.KindNotFound, "", "Raw material not found")
	ErrDuplicateCode = validation.New(validation.KindDuplicateCode, "code", "Raw material code already exists")
)

type RawMaterial struct {
	ID              int64     `json:"id"`
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	QuantityInStock int64     `json:"quantityInStock"`
	CreatedAt       time.Time `json:"-"`
}

// Input: тело запроса на создание/изменение (полная замена полей).
type Input struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	QuantityInStock int64  `json:"quantityInStock"`
}

func (in Input) Normalize() Input {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	return in
}

func (in Input) Validate() validation.Fields {
	errs := validation.Fields{}
	in = in.Normalize()
	if in.Code == "" {
		errs.Add(validation.KindMissingField, "code", "Code is required")
	}
	if in.Name == "" {
		errs.Add(validation.KindMissingField, "name", "Name is required")
	}
	if in.QuantityInStock <= 0 {
		errs.Add(validation.KindNonPositiveQuantity, "quantity", "Quantity must be greater than zero")
	}
	return errs
}

// StockMap строит карту остатков {rawMaterialId: quantityInStock}.
func StockMap(items []RawMaterial) map[int64]int64 {
	out := make(map[int64]int64, len(items))
	for _, m := range items {
		out[m.ID] = m.QuantityInStock
	}
	return out
}

// IDs возвращает идентификаторы в исходном порядке.
func IDs(items []RawMaterial) []int64 {
	out := make([]int64, 0, len(items))
	for _, m := range items {
		out = append(out, m.ID)
	}
	return out
}
