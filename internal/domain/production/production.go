// Package production считает, сколько единиц продукта можно выпустить
// из текущих остатков сырья.
package production

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/yasfei/inventory-autoflex/internal/domain/products"
)

type Result struct {
	MaxQuantity int64           `json:"maxQuantity"`
	TotalValue  decimal.Decimal `json:"totalValue"`
}

// Compute: минимум floor(stock/required) по строкам BOM.
// Пустой BOM => 0 (продукт заблокирован). Отсутствующий остаток = 0.
// required <= 0 даёт отношение 0. Строки с одним и тем же сырьём
// считаются независимо против одного и того же остатка.
func Compute(p products.Product, stock map[int64]int64) Result {
	maxQty := maxQuantity(p.RawMaterials, stock)
	return Result{
		MaxQuantity: maxQty,
		TotalValue:  p.Value.Mul(decimal.NewFromInt(maxQty)),
	}
}

func maxQuantity(lines []products.BOMLine, stock map[int64]int64) int64 {
	if len(lines) == 0 {
		return 0
	}
	var out int64 = -1
	for _, l := range lines {
		ratio := lineRatio(l, stock)
		if out < 0 || ratio < out {
			out = ratio
		}
		if out == 0 {
			break
		}
	}
	return out
}

func lineRatio(l products.BOMLine, stock map[int64]int64) int64 {
	if l.RequiredQuantity <= 0 {
		return 0
	}
	available := stock[l.RawMaterialID]
	if available <= 0 {
		return 0
	}
	return available / l.RequiredQuantity
}

// Line: продукт с рассчитанными производными полями.
type Line struct {
	products.Product
	HasProduction bool            `json:"hasProduction"`
	MaxQuantity   int64           `json:"maxQuantity"`
	TotalValue    decimal.Decimal `json:"totalValue"`
}

type PlanResult struct {
	Producible []Line             `json:"producible"`
	Blocked    []products.Product `json:"blocked"`
	TotalValue decimal.Decimal    `json:"totalValue"`
}

// Plan делит продукты на производимые (по убыванию общей стоимости)
// и заблокированные (без сырья), плюс итог по всем.
func Plan(items []products.Product, stock map[int64]int64) PlanResult {
	res := PlanResult{
		Producible: []Line{},
		Blocked:    []products.Product{},
		TotalValue: decimal.Zero,
	}
	for _, p := range items {
		if !p.HasProduction() {
			res.Blocked = append(res.Blocked, p)
			continue
		}
		line := lineFor(p, stock)
		res.Producible = append(res.Producible, line)
		res.TotalValue = res.TotalValue.Add(line.TotalValue)
	}
	sort.SliceStable(res.Producible, func(i, j int) bool {
		return res.Producible[i].TotalValue.GreaterThan(res.Producible[j].TotalValue)
	})
	return res
}

// Catalog: все продукты по убыванию цены единицы.
func Catalog(items []products.Product, stock map[int64]int64) []Line {
	out := make([]Line, 0, len(items))
	for _, p := range items {
		out = append(out, lineFor(p, stock))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value.GreaterThan(out[j].Value)
	})
	return out
}

func lineFor(p products.Product, stock map[int64]int64) Line {
	r := Compute(p, stock)
	return Line{
		Product:       p,
		HasProduction: p.HasProduction(),
		MaxQuantity:   r.MaxQuantity,
		TotalValue:    r.TotalValue,
	}
}
