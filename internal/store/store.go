package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/yasfei/inventory-autoflex/internal/client"
	"github.com/yasfei/inventory-autoflex/internal/domain/associations"
	"github.com/yasfei/inventory-autoflex/internal/domain/materials"
	"github.com/yasfei/inventory-autoflex/internal/domain/production"
	"github.com/yasfei/inventory-autoflex/internal/domain/products"
	"github.com/yasfei/inventory-autoflex/internal/domain/validation"
	"github.com/yasfei/inventory-autoflex/internal/infra/notify"
)

// API: та часть client.Client, которой пользуется Store.
type API interface {
	ListProducts(ctx context.Context) ([]products.Product, error)
	CreateProduct(ctx context.Context, in products.Input) (*products.Product, error)
	UpdateProduct(ctx context.Context, id int64, in products.Input) (*products.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	ListRawMaterials(ctx context.Context) ([]materials.RawMaterial, error)
	CreateRawMaterial(ctx context.Context, in materials.Input) (*materials.RawMaterial, error)
	UpdateRawMaterial(ctx context.Context, id int64, in materials.Input) (*materials.RawMaterial, error)
	DeleteRawMaterial(ctx context.Context, id int64) error

	CreateAssociation(ctx context.Context, a associations.Association) (*products.Association, error)
	UpdateAssociation(ctx context.Context, id int64, a associations.Association) (*products.Association, error)
	DeleteAssociation(ctx context.Context, id int64) error
}

// Outcome: результат операции. Значение, ошибки полей (до запроса)
// либо ошибка запроса.
type Outcome[T any] struct {
	Value  T
	Fields validation.Fields
	Err    error
}

func (o Outcome[T]) OK() bool { return o.Err == nil && o.Fields.Empty() }

// Kind: категория неудачи; пусто при успехе.
func (o Outcome[T]) Kind() validation.Kind {
	if !o.Fields.Empty() {
		return validation.KindOf(o.Fields)
	}
	if o.Err != nil {
		return validation.KindOf(o.Err)
	}
	return ""
}

type Store struct {
	api      API
	notifier notify.Notifier
	log      *slog.Logger

	mu    sync.Mutex
	state State
}

func New(api API, notifier notify.Notifier, log *slog.Logger) *Store {
	if notifier == nil {
		notifier = notify.NewLog(log)
	}
	return &Store{api: api, notifier: notifier, log: log, state: Initial()}
}

// State возвращает снимок; Reduce не меняет срезы, поэтому копия не нужна.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, a)
	return s.state
}

// Production: план выпуска по текущему состоянию.
func (s *Store) Production() production.PlanResult {
	st := s.State()
	return production.Plan(st.Products, materials.StockMap(st.RawMaterials))
}

func (s *Store) FetchProducts(ctx context.Context) Outcome[[]products.Product] {
	s.Dispatch(FetchStarted{Target: TargetProducts})
	items, err := s.api.ListProducts(ctx)
	if err != nil {
		s.fail(ctx, TargetProducts, err, "Failed to load products")
		return Outcome[[]products.Product]{Err: err}
	}
	s.Dispatch(ProductsFetched{Items: items})
	return Outcome[[]products.Product]{Value: items}
}

func (s *Store) FetchRawMaterials(ctx context.Context) Outcome[[]materials.RawMaterial] {
	s.Dispatch(FetchStarted{Target: TargetRawMaterials})
	items, err := s.api.ListRawMaterials(ctx)
	if err != nil {
		s.fail(ctx, TargetRawMaterials, err, "Failed to load raw materials")
		return Outcome[[]materials.RawMaterial]{Err: err}
	}
	s.Dispatch(RawMaterialsFetched{Items: items})
	return Outcome[[]materials.RawMaterial]{Value: items}
}

// Refresh подтягивает обе коллекции; первая ошибка возвращается.
func (s *Store) Refresh(ctx context.Context) error {
	if o := s.FetchRawMaterials(ctx); o.Err != nil {
		return o.Err
	}
	return s.FetchProducts(ctx).Err
}

func (s *Store) CreateProduct(ctx context.Context, in products.Input) Outcome[products.Product] {
	in = in.Normalize()
	if errs := in.Validate(); !errs.Empty() {
		return Outcome[products.Product]{Fields: errs}
	}
	p, err := s.api.CreateProduct(ctx, in)
	if err != nil {
		s.fail(ctx, "", err, "Error creating product")
		return Outcome[products.Product]{Err: err}
	}
	s.Dispatch(ProductCreated{Product: *p})
	s.notifier.Notify(ctx, notify.LevelSuccess, "Product created")
	return Outcome[products.Product]{Value: *p}
}

func (s *Store) UpdateProduct(ctx context.Context, id int64, in products.Input) Outcome[products.Product] {
	in = in.Normalize()
	if errs := in.Validate(); !errs.Empty() {
		return Outcome[products.Product]{Fields: errs}
	}
	p, err := s.api.UpdateProduct(ctx, id, in)
	if err != nil {
		s.fail(ctx, "", err, "Error updating product")
		return Outcome[products.Product]{Err: err}
	}
	s.Dispatch(ProductUpdated{Product: *p})
	s.notifier.Notify(ctx, notify.LevelSuccess, "Product updated")
	return Outcome[products.Product]{Value: *p}
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) Outcome[int64] {
	if err := s.api.DeleteProduct(ctx, id); err != nil {
		s.fail(ctx, "", err, "Error deleting product")
		return Outcome[int64]{Err: err}
	}
	s.Dispatch(ProductDeleted{ID: id})
	s.notifier.Notify(ctx, notify.LevelSuccess, "Product deleted")
	return Outcome[int64]{Value: id}
}

func (s *Store) CreateRawMaterial(ctx context.Context, in materials.Input) Outcome[materials.RawMaterial] {
	in = in.Normalize()
	if errs := in.Validate(); !errs.Empty() {
		return Outcome[materials.RawMaterial]{Fields: errs}
	}
	m, err := s.api.CreateRawMaterial(ctx, in)
	if err != nil {
		s.fail(ctx, "", err, "Error creating raw material")
		return Outcome[materials.RawMaterial]{Err: err}
	}
	s.Dispatch(RawMaterialCreated{RawMaterial: *m})
	s.notifier.Notify(ctx, notify.LevelSuccess, "Raw material created")
	return Outcome[materials.RawMaterial]{Value: *m}
}

func (s *Store) UpdateRawMaterial(ctx context.Context, id int64, in materials.Input) Outcome[materials.RawMaterial] {
	in = in.Normalize()
	if errs := in.Validate(); !errs.Empty() {
		return Outcome[materials.RawMaterial]{Fields: errs}
	}
	m, err := s.api.UpdateRawMaterial(ctx, id, in)
	if err != nil {
		s.fail(ctx, "", err, "Error updating raw material")
		return Outcome[materials.RawMaterial]{Err: err}
	}
	s.Dispatch(RawMaterialUpdated{RawMaterial: *m})
	s.notifier.Notify(ctx, notify.LevelSuccess, "Raw material updated")
	return Outcome[materials.RawMaterial]{Value: *m}
}

// DeleteRawMaterial после удаления перечитывает продукты: строки BOM
// с этим сырьём удаляются сервером каскадно.
func (s *Store) DeleteRawMaterial(ctx context.Context, id int64) Outcome[int64] {
	if err := s.api.DeleteRawMaterial(ctx, id); err != nil {
		s.fail(ctx, "", err, "Error deleting raw material")
		return Outcome[int64]{Err: err}
	}
	s.Dispatch(RawMaterialDeleted{ID: id})
	s.notifier.Notify(ctx, notify.LevelSuccess, "Raw material deleted")
	s.FetchProducts(ctx)
	return Outcome[int64]{Value: id}
}

// SaveAssociation: при id == 0 создаёт строку, иначе заменяет строку id.
// Ссылки проверяются по текущему состоянию до запроса.
func (s *Store) SaveAssociation(ctx context.Context, id int64, c associations.Candidate) Outcome[products.Association] {
	st := s.State()
	known := associations.NewKnown(products.IDs(st.Products), materials.IDs(st.RawMaterials))
	a, err := associations.Validate(c, known)
	if err != nil {
		var errs validation.Fields
		if !errors.As(err, &errs) {
			errs = validation.Fields{}
			errs.Add(validation.KindOf(err), "", err.Error())
		}
		if errs.Has(validation.KindMissingField) {
			s.notifier.Notify(ctx, notify.LevelError, "Fill all fields")
		}
		return Outcome[products.Association]{Fields: errs}
	}

	var saved *products.Association
	verb := "created"
	if id == 0 {
		saved, err = s.api.CreateAssociation(ctx, a)
	} else {
		verb = "updated"
		saved, err = s.api.UpdateAssociation(ctx, id, a)
	}
	if err != nil {
		s.fail(ctx, "", err, "Error saving association")
		return Outcome[products.Association]{Err: err}
	}
	s.notifier.Notify(ctx, notify.LevelSuccess, "Association "+verb)
	s.FetchProducts(ctx)
	return Outcome[products.Association]{Value: *saved}
}

func (s *Store) DeleteAssociation(ctx context.Context, id int64) Outcome[int64] {
	if err := s.api.DeleteAssociation(ctx, id); err != nil {
		s.fail(ctx, "", err, "Error removing association")
		return Outcome[int64]{Err: err}
	}
	s.notifier.Notify(ctx, notify.LevelSuccess, "Association removed")
	s.FetchProducts(ctx)
	return Outcome[int64]{Value: id}
}

// fail фиксирует ошибку в состоянии и показывает уведомление.
// Для конфликта кода показывается текст сервера.
func (s *Store) fail(ctx context.Context, target Target, err error, fallback string) {
	msg := fallback
	var f *client.Failure
	if errors.As(err, &f) && f.Kind == validation.KindDuplicateCode && f.Message != "" {
		msg = f.Message
	}
	s.Dispatch(Failed{Target: target, Err: msg})
	s.log.WarnContext(ctx, "store operation failed", "msg", fallback, "kind", validation.KindOf(err), "err", err)
	s.notifier.Notify(ctx, notify.LevelError, msg)
}

// SetBOMLine добавляет сырьё в BOM продукта (или меняет количество,
// если строка уже есть) и сохраняет продукт целиком.
func (s *Store) SetBOMLine(ctx context.Context, productID, rawMaterialID, qty int64) Outcome[products.Product] {
	return s.editBOM(ctx, productID, func(b products.BOM) products.BOM { return b.AddLine(rawMaterialID, qty) })
}

func (s *Store) RemoveBOMLine(ctx context.Context, productID, rawMaterialID int64) Outcome[products.Product] {
	return s.editBOM(ctx, productID, func(b products.BOM) products.BOM { return b.RemoveLine(rawMaterialID) })
}

func (s *Store) editBOM(ctx context.Context, productID int64, edit func(products.BOM) products.BOM) Outcome[products.Product] {
	var in products.Input
	found := false
	for _, p := range s.State().Products {
		if p.ID == productID {
			in, found = p.Input(), true
			break
		}
	}
	if !found {
		return Outcome[products.Product]{Err: products.ErrNotFound}
	}
	in.RawMaterials = edit(products.BOM(in.RawMaterials)).Lines()
	return s.UpdateProduct(ctx, productID, in)
}
