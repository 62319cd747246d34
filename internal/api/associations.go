package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yasfei/inventory-autoflex/internal/domain/associations"
	"github.com/yasfei/inventory-autoflex/internal/domain/materials"
	"github.com/yasfei/inventory-autoflex/internal/domain/products"
)

// formValue принимает и число, и строку: формы шлют значения селектов строками.
type formValue string

func (v *formValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = formValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*v = formValue(n.String())
	return nil
}

type associationBody struct {
	ProductID     formValue `json:"productId"`
	RawMaterialID formValue `json:"rawMaterialId"`
	Quantity      formValue `json:"quantity"`
}

func (b associationBody) candidate() associations.Candidate {
	return associations.Candidate{
		ProductID:     strings.TrimSpace(string(b.ProductID)),
		RawMaterialID: strings.TrimSpace(string(b.RawMaterialID)),
		Quantity:      strings.TrimSpace(string(b.Quantity)),
	}
}

func (h *Handler) listProductAssociations(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	items, err := h.products.ListAssociations(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) listAllAssociations(c *gin.Context) {
	items, err := h.products.ListAllAssociations(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// validAssociation читает тело и проверяет ссылки по текущему состоянию базы.
func (h *Handler) validAssociation(c *gin.Context) (associations.Association, bool) {
	var body associationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badBody(c, err)
		return associations.Association{}, false
	}

	ctx := c.Request.Context()
	ps, err := h.products.List(ctx)
	if err != nil {
		h.fail(c, err)
		return associations.Association{}, false
	}
	ms, err := h.materials.List(ctx)
	if err != nil {
		h.fail(c, err)
		return associations.Association{}, false
	}

	a, err := associations.Validate(body.candidate(), associations.NewKnown(products.IDs(ps), materials.IDs(ms)))
	if err != nil {
		h.fail(c, err)
		return associations.Association{}, false
	}
	return a, true
}

func (h *Handler) createAssociation(c *gin.Context) {
	a, ok := h.validAssociation(c)
	if !ok {
		return
	}
	created, err := h.products.CreateAssociation(c.Request.Context(), a.ProductID, a.RawMaterialID, a.Quantity)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.InfoContext(c.Request.Context(), "association created",
		"id", created.ID, "product_id", a.ProductID, "raw_material_id", a.RawMaterialID)
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) updateAssociation(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	a, ok := h.validAssociation(c)
	if !ok {
		return
	}
	updated, err := h.products.UpdateAssociation(c.Request.Context(), id, a.ProductID, a.RawMaterialID, a.Quantity)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) deleteAssociation(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.products.DeleteAssociation(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
