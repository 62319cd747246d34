// Package store держит согласованную с сервером копию продуктов и сырья.
package store

import (
	"github.com/yasfei/inventory-autoflex/internal/domain/materials"
	"github.com/yasfei/inventory-autoflex/internal/domain/products"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

type Target string

const (
	TargetProducts     Target = "products"
	TargetRawMaterials Target = "rawMaterials"
)

type State struct {
	Products           []products.Product
	RawMaterials       []materials.RawMaterial
	ProductsStatus     Status
	RawMaterialsStatus Status
	Err                string
}

func Initial() State {
	return State{
		Products:           []products.Product{},
		RawMaterials:       []materials.RawMaterial{},
		ProductsStatus:     StatusIdle,
		RawMaterialsStatus: StatusIdle,
	}
}

type Action interface{ action() }

type (
	FetchStarted        struct{ Target Target }
	ProductsFetched     struct{ Items []products.Product }
	ProductCreated      struct{ Product products.Product }
	ProductUpdated      struct{ Product products.Product }
	ProductDeleted      struct{ ID int64 }
	RawMaterialsFetched struct{ Items []materials.RawMaterial }
	RawMaterialCreated  struct{ RawMaterial materials.RawMaterial }
	RawMaterialUpdated  struct{ RawMaterial materials.RawMaterial }
	RawMaterialDeleted  struct{ ID int64 }
	Failed              struct {
		Target Target
		Err    string
	}
	ClearError struct{}
)

func (FetchStarted) action() {}
func (ProductsFetched) action() {}
func (ProductCreated) action() {}
func (ProductUpdated) action() {}
func (ProductDeleted) action() {}
func (RawMaterialsFetched) action() {}
func (RawMaterialCreated) action() {}
func (RawMaterialUpdated) action() {}
func (RawMaterialDeleted) action() {}
func (Failed) action() {}
func (ClearError) action() {}

// Reduce возвращает новое состояние, не трогая срезы исходного.
// Создание добавляет в конец, обновление заменяет по id, удаление
// фильтрует по id. Ошибка не меняет коллекции.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case FetchStarted:
		s.setStatus(a.Target, StatusLoading)
	case ProductsFetched:
		s.Products = append([]products.Product{}, a.Items...)
		s.ProductsStatus = StatusSucceeded
	case ProductCreated:
		s.Products = appendCopy(s.Products, a.Product)
	case ProductUpdated:
		s.Products = replaceByID(s.Products, a.Product, func(p products.Product) int64 { return p.ID })
	case ProductDeleted:
		s.Products = removeByID(s.Products, a.ID, func(p products.Product) int64 { return p.ID })
	case RawMaterialsFetched:
		s.RawMaterials = append([]materials.RawMaterial{}, a.Items...)
		s.RawMaterialsStatus = StatusSucceeded
	case RawMaterialCreated:
		s.RawMaterials = appendCopy(s.RawMaterials, a.RawMaterial)
	case RawMaterialUpdated:
		s.RawMaterials = replaceByID(s.RawMaterials, a.RawMaterial, func(m materials.RawMaterial) int64 { return m.ID })
	case RawMaterialDeleted:
		s.RawMaterials = removeByID(s.RawMaterials, a.ID, func(m materials.RawMaterial) int64 { return m.ID })
	case Failed:
		s.setStatus(a.Target, StatusFailed)
		s.Err = a.Err
	case ClearError:
		s.Err = ""
	}
	return s
}

func (s *State) setStatus(t Target, st Status) {
	switch t {
	case TargetProducts:
		s.ProductsStatus = st
	case TargetRawMaterials:
		s.RawMaterialsStatus = st
	}
}

func appendCopy[T any](items []T, v T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, items...)
	return append(out, v)
}

// replaceByID: если элемента с таким id нет, коллекция не меняется.
func replaceByID[T any](items []T, v T, id func(T) int64) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := range out {
		if id(out[i]) == id(v) {
			out[i] = v
		}
	}
	return out
}

func removeByID[T any](items []T, target int64, id func(T) int64) []T {
	out := make([]T, 0, len(items))
	for _, v := range items {
		if id(v) != target {
			out = append(out, v)
		}
	}
	return out
}
