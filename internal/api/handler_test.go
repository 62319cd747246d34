package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/yasfei/inventory-autoflex/internal/domain/inventory"
	"github.com/yasfei/inventory-autoflex/internal/domain/materials"
	"github.com/yasfei/inventory-autoflex/internal/domain/products"
	"github.com/yasfei/inventory-autoflex/internal/infra/excel"
	"github.com/yasfei/inventory-autoflex/internal/infra/notify"
)

func init() { gin.SetMode(gin.TestMode) }

type memMaterials struct {
	items  []materials.RawMaterial
	nextID int64
	moves  []inventory.Movement
	failOn int64
}

func (m *memMaterials) List(context.Context) ([]materials.RawMaterial, error) {
	return append([]materials.RawMaterial{}, m.items...), nil
}

func (m *memMaterials) find(id int64) int {
	for i, it := range m.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (m *memMaterials) GetByID(_ context.Context, id int64) (*materials.RawMaterial, error) {
	i := m.find(id)
	if i < 0 {
		return nil, materials.ErrNotFound
	}
	out := m.items[i]
	return &out, nil
}

func (m *memMaterials) Create(_ context.Context, in materials.Input) (*materials.RawMaterial, error) {
	for _, it := range m.items {
		if it.Code == in.Code {
			return nil, materials.ErrDuplicateCode
		}
	}
	m.nextID++
	it := materials.RawMaterial{ID: m.nextID, Code: in.Code, Name: in.Name, QuantityInStock: in.QuantityInStock}
	m.items = append(m.items, it)
	return &it, nil
}

func (m *memMaterials) Update(_ context.Context, id int64, in materials.Input) (*materials.RawMaterial, error) {
	i := m.find(id)
	if i < 0 {
		return nil, materials.ErrNotFound
	}
	m.items[i] = materials.RawMaterial{ID: id, Code: in.Code, Name: in.Name, QuantityInStock: in.QuantityInStock}
	out := m.items[i]
	return &out, nil
}

// SetStocks применяет всё или ничего, как транзакция репозитория.
func (m *memMaterials) SetStocks(_ context.Context, levels []materials.StockLevel, note string) ([]materials.RawMaterial, error) {
	for _, l := range levels {
		if l.ID == m.failOn {
			return nil, errors.New("connection reset")
		}
		if m.find(l.ID) < 0 {
			return nil, materials.ErrNotFound
		}
	}
	out := make([]materials.RawMaterial, 0, len(levels))
	for _, l := range levels {
		i := m.find(l.ID)
		delta := l.Qty - m.items[i].QuantityInStock
		m.moves = append(m.moves, inventory.Movement{RawMaterialID: l.ID, Qty: delta, Type: inventory.TypeOf(delta), Note: note})
		m.items[i].QuantityInStock = l.Qty
		out = append(out, m.items[i])
	}
	return out, nil
}

func (m *memMaterials) Delete(_ context.Context, id int64) error {
	i := m.find(id)
	if i < 0 {
		return materials.ErrNotFound
	}
	m.items = append(m.items[:i], m.items[i+1:]...)
	return nil
}

func (m *memMaterials) ListByMaterial(_ context.Context, id int64, _ int) ([]inventory.Movement, error) {
	out := []inventory.Movement{}
	for _, mv := range m.moves {
		if mv.RawMaterialID == id {
			out = append(out, mv)
		}
	}
	return out, nil
}

type memProducts struct {
	items  []products.Product
	nextID int64
}

func (p *memProducts) List(context.Context) ([]products.Product, error) {
	return append([]products.Product{}, p.items...), nil
}

func (p *memProducts) find(id int64) int {
	for i, it := range p.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (p *memProducts) GetByID(_ context.Context, id int64) (*products.Product, error) {
	i := p.find(id)
	if i < 0 {
		return nil, products.ErrNotFound
	}
	out := p.items[i]
	return &out, nil
}

func (p *memProducts) Create(_ context.Context, in products.Input) (*products.Product, error) {
	in = in.Normalize()
	for _, it := range p.items {
		if it.Code == in.Code {
			return nil, products.ErrDuplicateCode
		}
	}
	p.nextID++
	it := products.Product{ID: p.nextID, Code: in.Code, Name: in.Name, Value: in.Value, RawMaterials: in.RawMaterials}
	p.items = append(p.items, it)
	return &it, nil
}

func (p *memProducts) Update(_ context.Context, id int64, in products.Input) (*products.Product, error) {
	in = in.Normalize()
	i := p.find(id)
	if i < 0 {
		return nil, products.ErrNotFound
	}
	for _, it := range p.items {
		if it.Code == in.Code && it.ID != id {
			return nil, products.ErrDuplicateCode
		}
	}
	p.items[i] = products.Product{ID: id, Code: in.Code, Name: in.Name, Value: in.Value, RawMaterials: in.RawMaterials}
	out := p.items[i]
	return &out, nil
}

func (p *memProducts) Delete(_ context.Context, id int64) error {
	i := p.find(id)
	if i < 0 {
		return products.ErrNotFound
	}
	p.items = append(p.items[:i], p.items[i+1:]...)
	return nil
}

func (p *memProducts) ListAssociations(ctx context.Context, id int64) ([]products.Association, error) {
	if p.find(id) < 0 {
		return nil, products.ErrNotFound
	}
	all, _ := p.ListAllAssociations(ctx)
	out := []products.Association{}
	for _, a := range all {
		if a.ProductID == id {
			out = append(out, a)
		}
	}
	return out, nil
}

// id ассоциации = productID*1000 + rawMaterialID.
func (p *memProducts) ListAllAssociations(context.Context) ([]products.Association, error) {
	out := []products.Association{}
	for _, it := range p.items {
		for _, l := range it.RawMaterials {
			out = append(out, products.Association{
				ID: it.ID*1000 + l.RawMaterialID, ProductID: it.ID, ProductName: it.Name,
				RawMaterialID: l.RawMaterialID, RequiredQuantity: l.RequiredQuantity,
			})
		}
	}
	return out, nil
}

func (p *memProducts) CreateAssociation(_ context.Context, productID, rawMaterialID, qty int64) (*products.Association, error) {
	i := p.find(productID)
	for _, l := range p.items[i].RawMaterials {
		if l.RawMaterialID == rawMaterialID {
			return nil, products.ErrDuplicateLine
		}
	}
	p.items[i].RawMaterials = append(p.items[i].RawMaterials, products.BOMLine{RawMaterialID: rawMaterialID, RequiredQuantity: qty})
	return &products.Association{ID: productID*1000 + rawMaterialID, ProductID: productID, RawMaterialID: rawMaterialID, RequiredQuantity: qty}, nil
}

func (p *memProducts) UpdateAssociation(ctx context.Context, id, productID, rawMaterialID, qty int64) (*products.Association, error) {
	if err := p.DeleteAssociation(ctx, id); err != nil {
		return nil, err
	}
	return p.CreateAssociation(ctx, productID, rawMaterialID, qty)
}

func (p *memProducts) DeleteAssociation(_ context.Context, id int64) error {
	i := p.find(id / 1000)
	if i < 0 {
		return products.ErrAssociationNotFound
	}
	bom := products.BOM(p.items[i].RawMaterials)
	if len(bom.RemoveLine(id%1000)) == len(bom) {
		return products.ErrAssociationNotFound
	}
	p.items[i].RawMaterials = bom.RemoveLine(id % 1000).Lines()
	return nil
}

type fixture struct {
	mats    *memMaterials
	prods   *memProducts
	notices *notify.Recorder
	router  http.Handler
}

func newFixture() *fixture {
	f := &fixture{mats: &memMaterials{}, prods: &memProducts{}, notices: &notify.Recorder{}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(log, f.mats, f.prods, f.mats, f.notices, Options{LowThreshold: 5})
	f.router = h.Router()
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestRawMaterialQuantityRule(t *testing.T) {
	tests := []struct {
		name   string
		qty    int64
		status int
	}{
		{name: "zero rejected", qty: 0, status: http.StatusBadRequest},
		{name: "one accepted", qty: 1, status: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			rec, body := f.do(t, http.MethodPost, "/raw-materials",
				gin.H{"code": "RM-1", "name": "Steel", "quantityInStock": tt.qty})
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body)
			}
			if tt.status == http.StatusBadRequest {
				fields, _ := body["fields"].(map[string]any)
				if fields["quantity"] != "Quantity must be greater than zero" {
					t.Errorf("unexpected fields %v", body["fields"])
				}
				if body["kind"] != "non_positive_quantity" {
					t.Errorf("unexpected kind %v", body["kind"])
				}
			}
		})
	}
}

func TestProductErrors(t *testing.T) {
	f := newFixture()
	valid := gin.H{"code": "P-1", "name": "Table", "value": 10}

	if rec, _ := f.do(t, http.MethodPost, "/products", valid); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}

	rec, body := f.do(t, http.MethodPost, "/products", valid)
	if rec.Code != http.StatusConflict || body["error"] != "Product code already exists" {
		t.Errorf("expected 409 with error text, got %d %v", rec.Code, body)
	}

	rec, body = f.do(t, http.MethodPost, "/products", gin.H{"code": " ", "name": "", "value": 0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	fields, _ := body["fields"].(map[string]any)
	for _, k := range []string{"code", "name", "value"} {
		if _, ok := fields[k]; !ok {
			t.Errorf("expected error for %s, got %v", k, fields)
		}
	}

	rec, _ = f.do(t, http.MethodPost, "/products", gin.H{
		"code": "P-2", "name": "Chair", "value": 5,
		"rawMaterials": []gin.H{{"rawMaterialId": 1, "requiredQuantity": 1}, {"rawMaterialId": 1, "requiredQuantity": 2}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate bom lines: expected 400, got %d", rec.Code)
	}

	if rec, _ := f.do(t, http.MethodGet, "/products/42", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec, _ := f.do(t, http.MethodDelete, "/products/abc", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", rec.Code)
	}
}

func TestAssociations(t *testing.T) {
	f := newFixture()
	f.do(t, http.MethodPost, "/raw-materials", gin.H{"code": "COCOA", "name": "Cocoa", "quantityInStock": 50})
	f.do(t, http.MethodPost, "/products", gin.H{"code": "CHOC", "name": "Chocolate", "value": 5000})

	tests := []struct {
		name   string
		body   gin.H
		status int
		kind   string
	}{
		{name: "zero quantity", body: gin.H{"productId": 1, "rawMaterialId": 1, "quantity": 0}, status: http.StatusBadRequest, kind: "non_positive_quantity"},
		{name: "missing field", body: gin.H{"productId": "1", "rawMaterialId": ""}, status: http.StatusBadRequest, kind: "missing_field"},
		{name: "unknown product", body: gin.H{"productId": 7, "rawMaterialId": 1, "quantity": 1}, status: http.StatusBadRequest, kind: "unknown_reference"},
		{name: "string values from a form", body: gin.H{"productId": "1", "rawMaterialId": "1", "quantity": "2"}, status: http.StatusCreated},
		{name: "duplicate line", body: gin.H{"productId": 1, "rawMaterialId": 1, "quantity": 3}, status: http.StatusBadRequest, kind: "duplicate_reference"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := f.do(t, http.MethodPost, "/associations", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body)
			}
			if tt.kind != "" && body["kind"] != tt.kind {
				t.Errorf("expected kind %s, got %v", tt.kind, body["kind"])
			}
		})
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/1/raw-materials", nil))
	var list []products.Association
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list) != 1 || list[0].RequiredQuantity != 2 {
		t.Fatalf("unexpected associations %s", rec.Body)
	}

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/production", nil))
	var plan struct {
		Producible []struct {
			ID          int64           `json:"id"`
			MaxQuantity int64           `json:"maxQuantity"`
			TotalValue  decimal.Decimal `json:"totalValue"`
		} `json:"producible"`
		TotalValue decimal.Decimal `json:"totalValue"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &plan); err != nil {
		t.Fatal(err)
	}
	if len(plan.Producible) != 1 || plan.Producible[0].MaxQuantity != 25 || !plan.TotalValue.Equal(decimal.NewFromInt(125000)) {
		t.Errorf("unexpected plan %s", rec.Body)
	}

	if rec, _ := f.do(t, http.MethodDelete, "/associations/1001", nil); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if rec, _ := f.do(t, http.MethodDelete, "/associations/1001", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestAssociationQuantityForms(t *testing.T) {
	f := newFixture()
	f.do(t, http.MethodPost, "/products", gin.H{"code": "CHOC", "name": "Chocolate", "value": 10})
	for _, code := range []string{"A", "B", "C"} {
		f.do(t, http.MethodPost, "/raw-materials", gin.H{"code": code, "name": code, "quantityInStock": 100})
	}

	tests := []struct {
		name    string
		body    gin.H
		status  int
		kind    string
		fields  []string
		wantQty int64
	}{
		{
			name:    "decimal notation",
			body:    gin.H{"productId": 1, "rawMaterialId": 1, "quantity": json.RawMessage("2.0")},
			status:  http.StatusCreated,
			wantQty: 2,
		},
		{
			name:    "exponent notation",
			body:    gin.H{"productId": 1, "rawMaterialId": 2, "quantity": json.RawMessage("1e1")},
			status:  http.StatusCreated,
			wantQty: 10,
		},
		{
			name:   "fraction",
			body:   gin.H{"productId": 1, "rawMaterialId": 3, "quantity": json.RawMessage("2.5")},
			status: http.StatusBadRequest,
			kind:   "invalid_value",
			fields: []string{"quantity"},
		},
		{
			name:   "unknown product and zero quantity",
			body:   gin.H{"productId": 99, "rawMaterialId": 3, "quantity": 0},
			status: http.StatusBadRequest,
			kind:   "unknown_reference",
			fields: []string{"productId", "quantity"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := f.do(t, http.MethodPost, "/associations", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body)
			}
			if tt.status == http.StatusCreated {
				if q, _ := body["requiredQuantity"].(float64); int64(q) != tt.wantQty {
					t.Errorf("expected quantity %d, got %v", tt.wantQty, body["requiredQuantity"])
				}
				return
			}
			if body["kind"] != tt.kind {
				t.Errorf("expected kind %s, got %v", tt.kind, body["kind"])
			}
			fields, _ := body["fields"].(map[string]any)
			if len(fields) != len(tt.fields) {
				t.Errorf("expected fields %v, got %v", tt.fields, fields)
			}
			for _, k := range tt.fields {
				if _, ok := fields[k]; !ok {
					t.Errorf("expected error for %s, got %v", k, fields)
				}
			}
		})
	}
}

// importStock отправляет xlsx с новыми остатками (по порядку id).
func importStock(t *testing.T, f *fixture, qty ...int64) *httptest.ResponseRecorder {
	t.Helper()
	items, _ := f.mats.List(context.Background())
	for i := range items {
		items[i].QuantityInStock = qty[i]
	}
	data, err := excel.ExportRawMaterials(items)
	if err != nil {
		t.Fatal(err)
	}

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, _ := mw.CreateFormFile("file", "stock.xlsx")
	_, _ = fw.Write(data)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/raw-materials/import", buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestImportRawMaterials(t *testing.T) {
	f := newFixture()
	f.do(t, http.MethodPost, "/raw-materials", gin.H{"code": "A", "name": "A", "quantityInStock": 10})
	f.do(t, http.MethodPost, "/raw-materials", gin.H{"code": "B", "name": "B", "quantityInStock": 10})

	rec := importStock(t, f, 25, 4)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	var sum struct {
		Updated    int   `json:"updated"`
		Received   int64 `json:"received"`
		WrittenOff int64 `json:"writtenOff"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &sum)
	if sum.Updated != 2 || sum.Received != 15 || sum.WrittenOff != 6 {
		t.Errorf("unexpected summary %+v", sum)
	}

	rec, _ = f.do(t, http.MethodGet, "/raw-materials/2/movements", nil)
	var moves []inventory.Movement
	_ = json.Unmarshal(rec.Body.Bytes(), &moves)
	if len(moves) != 1 || moves[0].Type != inventory.MoveOut || moves[0].Note != "import_xlsx" {
		t.Errorf("unexpected movements %s", rec.Body)
	}
}

func TestImportRawMaterialsAllOrNothing(t *testing.T) {
	f := newFixture()
	f.do(t, http.MethodPost, "/raw-materials", gin.H{"code": "A", "name": "A", "quantityInStock": 10})
	f.do(t, http.MethodPost, "/raw-materials", gin.H{"code": "B", "name": "B", "quantityInStock": 10})
	f.mats.failOn = 2

	rec := importStock(t, f, 25, 4)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", rec.Code, rec.Body)
	}
	items, _ := f.mats.List(context.Background())
	for _, m := range items {
		if m.QuantityInStock != 10 {
			t.Errorf("raw material %d changed to %d after a failed import", m.ID, m.QuantityInStock)
		}
	}
	if len(f.mats.moves) != 0 {
		t.Errorf("expected no movements, got %+v", f.mats.moves)
	}
}

func TestBadBodyKind(t *testing.T) {
	f := newFixture()
	rec, body := f.do(t, http.MethodPost, "/raw-materials", gin.H{"code": "A", "name": "A", "quantityInStock": "ten"})
	if rec.Code != http.StatusBadRequest || body["kind"] != "invalid_value" {
		t.Errorf("expected 400 invalid_value, got %d %v", rec.Code, body)
	}
}

func TestLowStockWarning(t *testing.T) {
	f := newFixture()
	f.do(t, http.MethodPost, "/raw-materials", gin.H{"code": "A", "name": "Glue", "quantityInStock": 3})
	if len(f.notices.Notices) != 1 || f.notices.Notices[0].Level != notify.LevelWarning {
		t.Errorf("expected a low stock warning, got %+v", f.notices.Notices)
	}
}
