package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yasfei/inventory-autoflex/internal/domain/products"
)

func (h *Handler) listProducts(c *gin.Context) {
	items, err := h.products.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	p, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) createProduct(c *gin.Context) {
	var in products.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badBody(c, err)
		return
	}
	if errs := in.Validate(); !errs.Empty() {
		h.fail(c, errs)
		return
	}

	p, err := h.products.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.InfoContext(c.Request.Context(), "product created", "id", p.ID, "code", p.Code)
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var in products.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badBody(c, err)
		return
	}
	if errs := in.Validate(); !errs.Empty() {
		h.fail(c, errs)
		return
	}

	p, err := h.products.Update(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.InfoContext(c.Request.Context(), "product updated", "id", p.ID, "bom_lines", len(p.RawMaterials))
	c.JSON(http.StatusOK, p)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.log.InfoContext(c.Request.Context(), "product deleted", "id", id)
	c.Status(http.StatusNoContent)
}
