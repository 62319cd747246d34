package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yasfei/inventory-autoflex/internal/domain/inventory"
	"github.com/yasfei/inventory-autoflex/internal/domain/materials"
	"github.com/yasfei/inventory-autoflex/internal/domain/products"
	"github.com/yasfei/inventory-autoflex/internal/domain/validation"
	"github.com/yasfei/inventory-autoflex/internal/infra/logger"
	"github.com/yasfei/inventory-autoflex/internal/infra/metrics"
	"github.com/yasfei/inventory-autoflex/internal/infra/notify"
)

type MaterialRepo interface {
	List(ctx context.Context) ([]materials.RawMaterial, error)
	GetByID(ctx context.Context, id int64) (*materials.RawMaterial, error)
	Create(ctx context.Context, in materials.Input) (*materials.RawMaterial, error)
	Update(ctx context.Context, id int64, in materials.Input) (*materials.RawMaterial, error)
	SetStocks(ctx context.Context, levels []materials.StockLevel, note string) ([]materials.RawMaterial, error)
	Delete(ctx context.Context, id int64) error
}

type ProductRepo interface {
	List(ctx context.Context) ([]products.Product, error)
	GetByID(ctx context.Context, id int64) (*products.Product, error)
	Create(ctx context.Context, in products.Input) (*products.Product, error)
	Update(ctx context.Context, id int64, in products.Input) (*products.Product, error)
	Delete(ctx context.Context, id int64) error

	ListAssociations(ctx context.Context, productID int64) ([]products.Association, error)
	ListAllAssociations(ctx context.Context) ([]products.Association, error)
	CreateAssociation(ctx context.Context, productID, rawMaterialID, qty int64) (*products.Association, error)
	UpdateAssociation(ctx context.Context, id, productID, rawMaterialID, qty int64) (*products.Association, error)
	DeleteAssociation(ctx context.Context, id int64) error
}

type MovementRepo interface {
	ListByMaterial(ctx context.Context, rawMaterialID int64, limit int) ([]inventory.Movement, error)
}

type Options struct {
	CORSOrigins  []string
	LowThreshold int64
}

type Handler struct {
	log       *slog.Logger
	materials MaterialRepo
	products  ProductRepo
	movements MovementRepo
	notifier  notify.Notifier
	opts      Options
}

func New(log *slog.Logger, materialsRepo MaterialRepo, productsRepo ProductRepo,
	movementsRepo MovementRepo, notifier notify.Notifier, opts Options) *Handler {

	if notifier == nil {
		notifier = notify.NewLog(log)
	}
	return &Handler{
		log: log, materials: materialsRepo, products: productsRepo,
		movements: movementsRepo, notifier: notifier, opts: opts,
	}
}

// Router собирает все маршруты REST API.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.Requests(h.log), metrics.Middleware())

	if len(h.opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: h.opts.CORSOrigins,
			AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Content-Type"},
		}))
	}

	prod := r.Group("/products")
	{
		prod.GET("", h.listProducts)
		prod.POST("", h.createProduct)
		prod.GET("/raw-materials", h.listAllAssociations)
		prod.GET("/:id", h.getProduct)
		prod.PUT("/:id", h.updateProduct)
		prod.DELETE("/:id", h.deleteProduct)
		prod.GET("/:id/raw-materials", h.listProductAssociations)
	}

	assoc := r.Group("/associations")
	{
		assoc.POST("", h.createAssociation)
		assoc.PUT("/:id", h.updateAssociation)
		assoc.DELETE("/:id", h.deleteAssociation)
	}

	raw := r.Group("/raw-materials")
	{
		raw.GET("", h.listRawMaterials)
		raw.POST("", h.createRawMaterial)
		raw.GET("/export", h.exportRawMaterials)
		raw.POST("/import", h.importRawMaterials)
		raw.GET("/:id", h.getRawMaterial)
		raw.PUT("/:id", h.updateRawMaterial)
		raw.DELETE("/:id", h.deleteRawMaterial)
		raw.GET("/:id/movements", h.listMovements)
	}

	r.GET("/production", h.production)
	r.GET("/production/export", h.exportProduction)

	return r
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}

// fail переводит доменную ошибку в HTTP-ответ.
func (h *Handler) fail(c *gin.Context, err error) {
	var fields validation.Fields
	var ve *validation.Error

	switch {
	case errors.As(err, &fields):
		kind := validation.KindOf(fields)
		metrics.ValidationFailed(string(kind))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "kind": kind, "fields": fields.Messages()})
	case errors.As(err, &ve):
		switch ve.Kind {
		case validation.KindNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": ve.Message, "kind": ve.Kind})
		case validation.KindDuplicateCode:
			metrics.ValidationFailed(string(ve.Kind))
			c.JSON(http.StatusConflict, gin.H{"error": ve.Message, "kind": ve.Kind})
		default:
			metrics.ValidationFailed(string(ve.Kind))
			c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message, "kind": ve.Kind, "fields": gin.H{ve.Field: ve.Message}})
		}
	default:
		h.log.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

func badBody(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": fmt.Sprintf("Invalid request body: %v", err),
		"kind":  validation.KindInvalidValue,
	})
}
