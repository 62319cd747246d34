// Package associations проверяет строку BOM (продукт, сырьё, количество)
// перед тем как принять её.
package associations

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yasfei/inventory-autoflex/internal/domain/validation"
)

// Candidate: данные формы как есть, значения могут быть пустыми строками.
type Candidate struct {
	ProductID     string `json:"productId"`
	RawMaterialID string `json:"rawMaterialId"`
	Quantity      string `json:"quantity"`
}

type Association struct {
	ProductID     int64 `json:"productId"`
	RawMaterialID int64 `json:"rawMaterialId"`
	Quantity      int64 `json:"quantity"`
}

// Known: множества существующих идентификаторов.
type Known struct {
	Products     map[int64]struct{}
	RawMaterials map[int64]struct{}
}

func NewKnown(productIDs, rawMaterialIDs []int64) Known {
	k := Known{
		Products:     make(map[int64]struct{}, len(productIDs)),
		RawMaterials: make(map[int64]struct{}, len(rawMaterialIDs)),
	}
	for _, id := range productIDs {
		k.Products[id] = struct{}{}
	}
	for _, id := range rawMaterialIDs {
		k.RawMaterials[id] = struct{}{}
	}
	return k
}

func (k Known) hasProduct(id int64) bool {
	_, ok := k.Products[id]
	return ok
}

func (k Known) hasRawMaterial(id int64) bool {
	_, ok := k.RawMaterials[id]
	return ok
}

// Validate возвращает нормализованную запись либо validation.Fields.
// Пустые поля проверяются первыми; ссылки и количество проверяются
// вместе, чтобы вернуть все ошибки сразу.
func Validate(c Candidate, known Known) (Association, error) {
	productID := strings.TrimSpace(c.ProductID)
	rawMaterialID := strings.TrimSpace(c.RawMaterialID)
	quantity := strings.TrimSpace(c.Quantity)

	errs := validation.Fields{}
	if productID == "" {
		errs.Add(validation.KindMissingField, "productId", "Product is required")
	}
	if rawMaterialID == "" {
		errs.Add(validation.KindMissingField, "rawMaterialId", "Raw material is required")
	}
	if quantity == "" {
		errs.Add(validation.KindMissingField, "quantity", "Quantity is required")
	}
	if !errs.Empty() {
		return Association{}, errs
	}

	var a Association
	var err error
	if a.ProductID, err = strconv.ParseInt(productID, 10, 64); err != nil || !known.hasProduct(a.ProductID) {
		errs.Add(validation.KindUnknownReference, "productId", "Product does not exist")
	}
	if a.RawMaterialID, err = strconv.ParseInt(rawMaterialID, 10, 64); err != nil || !known.hasRawMaterial(a.RawMaterialID) {
		errs.Add(validation.KindUnknownReference, "rawMaterialId", "Raw material does not exist")
	}
	a.Quantity = parseQuantity(quantity, errs)

	if !errs.Empty() {
		return Association{}, errs
	}
	return a, nil
}

var maxQuantity = decimal.NewFromInt(math.MaxInt64)

// parseQuantity принимает любое числовое представление (2, 2.0, 1e1).
// Дробное или нечисловое значение: отдельная ошибка, не NonPositiveQuantity.
func parseQuantity(s string, errs validation.Fields) int64 {
	q, err := decimal.NewFromString(s)
	switch {
	case err != nil:
		errs.Add(validation.KindInvalidValue, "quantity", "Quantity must be a number")
	case !q.IsPositive():
		errs.Add(validation.KindNonPositiveQuantity, "quantity", "Quantity must be greater than zero")
	case !q.IsInteger() || q.GreaterThan(maxQuantity):
		errs.Add(validation.KindInvalidValue, "quantity", "Quantity must be a whole number")
	default:
		return q.IntPart()
	}
	return 0
}
