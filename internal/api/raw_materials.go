package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yasfei/inventory-autoflex/internal/domain/materials"
	"github.com/yasfei/inventory-autoflex/internal/domain/validation"
	"github.com/yasfei/inventory-autoflex/internal/infra/excel"
	"github.com/yasfei/inventory-autoflex/internal/infra/metrics"
	"github.com/yasfei/inventory-autoflex/internal/infra/notify"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxImportSize   = 10 << 20
)

func (h *Handler) listRawMaterials(c *gin.Context) {
	items, err := h.materials.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) getRawMaterial(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	m, err := h.materials.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) createRawMaterial(c *gin.Context) {
	var in materials.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badBody(c, err)
		return
	}
	if errs := in.Validate(); !errs.Empty() {
		h.fail(c, errs)
		return
	}

	m, err := h.materials.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.InfoContext(c.Request.Context(), "raw material created", "id", m.ID, "code", m.Code, "qty", m.QuantityInStock)
	h.afterStockWrite(c.Request.Context(), *m)
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) updateRawMaterial(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var in materials.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badBody(c, err)
		return
	}
	if errs := in.Validate(); !errs.Empty() {
		h.fail(c, errs)
		return
	}

	m, err := h.materials.Update(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.InfoContext(c.Request.Context(), "raw material updated", "id", m.ID, "qty", m.QuantityInStock)
	h.afterStockWrite(c.Request.Context(), *m)
	c.JSON(http.StatusOK, m)
}

func (h *Handler) deleteRawMaterial(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.materials.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.log.InfoContext(c.Request.Context(), "raw material deleted", "id", id)
	c.Status(http.StatusNoContent)
}

func (h *Handler) listMovements(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if _, err := h.materials.GetByID(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	items, err := h.movements.ListByMaterial(c.Request.Context(), id, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) exportRawMaterials(c *gin.Context) {
	items, err := h.materials.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	data, err := excel.ExportRawMaterials(items)
	if err != nil {
		h.fail(c, err)
		return
	}
	name := fmt.Sprintf("raw_materials_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// importRawMaterials подгоняет остатки под файл. Все строки проверяются
// заранее и применяются одной транзакцией.
func (h *Handler) importRawMaterials(c *gin.Context) {
	ctx := c.Request.Context()
	data, err := readUpload(c)
	if err != nil {
		badBody(c, err)
		return
	}

	rows, err := excel.ParseStock(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": validation.KindInvalidValue})
		return
	}

	current, err := h.materials.List(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	stock := materials.StockMap(current)
	for _, r := range rows {
		if _, ok := stock[r.RawMaterialID]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("row %d: raw material %d not found", r.Row, r.RawMaterialID),
				"kind":  validation.KindUnknownReference,
			})
			return
		}
	}

	var levels []materials.StockLevel
	var received, writtenOff int64
	for _, r := range rows {
		delta := r.Qty - stock[r.RawMaterialID]
		switch {
		case delta == 0:
			continue
		case delta > 0:
			received += delta
		default:
			writtenOff += -delta
		}
		levels = append(levels, materials.StockLevel{ID: r.RawMaterialID, Qty: r.Qty})
		stock[r.RawMaterialID] = r.Qty
	}

	if len(levels) > 0 {
		if _, err := h.materials.SetStocks(ctx, levels, "import_xlsx"); err != nil {
			h.fail(c, fmt.Errorf("import not applied: %w", err))
			return
		}
	}
	updated := len(levels)

	h.log.InfoContext(ctx, "raw material stock imported", "rows", len(rows), "updated", updated,
		"received", received, "written_off", writtenOff)
	h.refreshLowStock(ctx)
	c.JSON(http.StatusOK, gin.H{
		"rows":       len(rows),
		"updated":    updated,
		"received":   received,
		"writtenOff": writtenOff,
	})
}

func readUpload(c *gin.Context) ([]byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, err
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		return io.ReadAll(io.LimitReader(f, maxImportSize))
	}
	return io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize))
}

// afterStockWrite предупреждает, если остаток опустился до порога.
func (h *Handler) afterStockWrite(ctx context.Context, m materials.RawMaterial) {
	if h.opts.LowThreshold > 0 && m.QuantityInStock <= h.opts.LowThreshold {
		h.notifier.Notify(ctx, notify.LevelWarning,
			fmt.Sprintf("Raw material %s (%s) is running low: %d left", m.Name, m.Code, m.QuantityInStock))
	}
	h.refreshLowStock(ctx)
}

func (h *Handler) refreshLowStock(ctx context.Context) {
	if h.opts.LowThreshold <= 0 {
		return
	}
	items, err := h.materials.List(ctx)
	if err != nil {
		h.log.WarnContext(ctx, "low stock gauge not refreshed", "err", err)
		return
	}
	low := 0
	for _, m := range items {
		if m.QuantityInStock <= h.opts.LowThreshold {
			low++
		}
	}
	metrics.SetLowStock(low)
}
