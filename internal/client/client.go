// Package client: типизированный клиент REST API склада.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yasfei/inventory-autoflex/internal/domain/associations"
	"github.com/yasfei/inventory-autoflex/internal/domain/inventory"
	"github.com/yasfei/inventory-autoflex/internal/domain/materials"
	"github.com/yasfei/inventory-autoflex/internal/domain/production"
	"github.com/yasfei/inventory-autoflex/internal/domain/products"
	"github.com/yasfei/inventory-autoflex/internal/domain/validation"
)

// Failure: неуспешный ответ сервера или сбой транспорта.
type Failure struct {
	Kind    validation.Kind
	Status  int // 0 при сетевой ошибке
	Message string
	Fields  map[string]string
	cause   error
}

func (f *Failure) Error() string {
	if f.Status == 0 {
		return fmt.Sprintf("request failed: %s", f.Message)
	}
	return fmt.Sprintf("%d %s: %s", f.Status, f.Kind, f.Message)
}

// Unwrap отдаёт доменную ошибку (для validation.KindOf) и исходную причину.
func (f *Failure) Unwrap() []error {
	out := []error{validation.New(f.Kind, "", f.Message)}
	if f.cause != nil {
		out = append(out, f.cause)
	}
	return out
}

// FieldErrors возвращает ошибки полей в виде validation.Fields.
func (f *Failure) FieldErrors() validation.Fields {
	errs := validation.Fields{}
	for field, msg := range f.Fields {
		errs.Add(f.Kind, field, msg)
	}
	return errs
}

type Client struct {
	base string
	http *http.Client
}

// New: при hc == nil используется клиент с таймаутом по умолчанию.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) ListProducts(ctx context.Context) ([]products.Product, error) {
	var out []products.Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*products.Product, error) {
	var out products.Product
	if err := c.do(ctx, http.MethodGet, "/products/"+itoa(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProduct(ctx context.Context, in products.Input) (*products.Product, error) {
	var out products.Product
	if err := c.do(ctx, http.MethodPost, "/products", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, in products.Input) (*products.Product, error) {
	var out products.Product
	if err := c.do(ctx, http.MethodPut, "/products/"+itoa(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/products/"+itoa(id), nil, nil)
}

func (c *Client) ListRawMaterials(ctx context.Context) ([]materials.RawMaterial, error) {
	var out []materials.RawMaterial
	if err := c.do(ctx, http.MethodGet, "/raw-materials", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateRawMaterial(ctx context.Context, in materials.Input) (*materials.RawMaterial, error) {
	var out materials.RawMaterial
	if err := c.do(ctx, http.MethodPost, "/raw-materials", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateRawMaterial(ctx context.Context, id int64, in materials.Input) (*materials.RawMaterial, error) {
	var out materials.RawMaterial
	if err := c.do(ctx, http.MethodPut, "/raw-materials/"+itoa(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteRawMaterial(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/raw-materials/"+itoa(id), nil, nil)
}

func (c *Client) ListMovements(ctx context.Context, rawMaterialID int64, limit int) ([]inventory.Movement, error) {
	var out []inventory.Movement
	path := fmt.Sprintf("/raw-materials/%d/movements?limit=%d", rawMaterialID, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListAssociations(ctx context.Context, productID int64) ([]products.Association, error) {
	var out []products.Association
	if err := c.do(ctx, http.MethodGet, "/products/"+itoa(productID)+"/raw-materials", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListAllAssociations(ctx context.Context) ([]products.Association, error) {
	var out []products.Association
	if err := c.do(ctx, http.MethodGet, "/products/raw-materials", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateAssociation(ctx context.Context, a associations.Association) (*products.Association, error) {
	var out products.Association
	if err := c.do(ctx, http.MethodPost, "/associations", a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateAssociation(ctx context.Context, id int64, a associations.Association) (*products.Association, error) {
	var out products.Association
	if err := c.do(ctx, http.MethodPut, "/associations/"+itoa(id), a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteAssociation(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/associations/"+itoa(id), nil, nil)
}

// Production: план выпуска, посчитанный сервером.
func (c *Client) Production(ctx context.Context) (*production.PlanResult, error) {
	var out production.PlanResult
	if err := c.do(ctx, http.MethodGet, "/production", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type errorBody struct {
	Error  string            `json:"error"`
	Kind   validation.Kind   `json:"kind"`
	Fields map[string]string `json:"fields"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Failure{Kind: validation.KindNetworkFailure, Message: err.Error(), cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return failureFrom(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func failureFrom(resp *http.Response) *Failure {
	f := &Failure{Status: resp.StatusCode}

	var eb errorBody
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(data, &eb); err == nil {
		f.Message = eb.Error
		f.Kind = eb.Kind
		f.Fields = eb.Fields
	}
	if f.Message == "" {
		f.Message = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusConflict:
		f.Kind = validation.KindDuplicateCode
	case http.StatusNotFound:
		f.Kind = validation.KindNotFound
	}
	if f.Kind == "" {
		if resp.StatusCode >= http.StatusInternalServerError {
			f.Kind = validation.KindInternal
		} else {
			f.Kind = validation.KindInvalidValue
		}
	}
	return f
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
