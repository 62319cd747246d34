package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yasfei/inventory-autoflex/internal/domain/materials"
	"github.com/yasfei/inventory-autoflex/internal/domain/production"
	"github.com/yasfei/inventory-autoflex/internal/domain/products"
	"github.com/yasfei/inventory-autoflex/internal/infra/excel"
)

func (h *Handler) snapshot(ctx context.Context) ([]products.Product, map[int64]int64, error) {
	ps, err := h.products.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	ms, err := h.materials.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	return ps, materials.StockMap(ms), nil
}

// production: по умолчанию план выпуска, при ?view=catalog все продукты по цене.
func (h *Handler) production(c *gin.Context) {
	ps, stock, err := h.snapshot(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if c.Query("view") == "catalog" {
		c.JSON(http.StatusOK, production.Catalog(ps, stock))
		return
	}
	c.JSON(http.StatusOK, production.Plan(ps, stock))
}

func (h *Handler) exportProduction(c *gin.Context) {
	ps, stock, err := h.snapshot(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	data, err := excel.ExportPlan(production.Plan(ps, stock))
	if err != nil {
		h.fail(c, err)
		return
	}
	name := fmt.Sprintf("production_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, data)
}
