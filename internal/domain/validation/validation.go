package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Kind string

const (
	KindMissingField        Kind = "missing_field"
	KindNonPositiveQuantity Kind = "non_positive_quantity"
	KindUnknownReference    Kind = "unknown_reference"
	KindDuplicateReference  Kind = "duplicate_reference"
	KindInvalidValue        Kind = "invalid_value"
	KindDuplicateCode       Kind = "duplicate_code"
	KindNotFound            Kind = "not_found"
	KindNetworkFailure      Kind = "network_failure"
	KindInternal            Kind = "internal"
)

// Error: одна ошибка с привязкой к полю формы.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func New(kind Kind, field, msg string) *Error {
	return &Error{Kind: kind, Field: field, Message: msg}
}

// Fields собирает ошибки по полям, чтобы показать их все сразу.
type Fields map[string]*Error

func (f Fields) Add(kind Kind, field, msg string) {
	if _, ok := f[field]; ok {
		return
	}
	f[field] = New(kind, field, msg)
}

func (f Fields) Empty() bool { return len(f) == 0 }

// Messages возвращает карту вида {"code": "Code is required"}.
func (f Fields) Messages() map[string]string {
	out := make(map[string]string, len(f))
	for k, e := range f {
		out[k] = e.Message
	}
	return out
}

// Err возвращает nil, если ошибок нет.
func (f Fields) Err() error {
	if f.Empty() {
		return nil
	}
	return f
}

func (f Fields) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, f[k].Error())
	}
	return strings.Join(parts, "; ")
}

// Has сообщает, есть ли среди ошибок ошибка заданного вида.
func (f Fields) Has(kind Kind) bool {
	for _, e := range f {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// KindOf классифицирует произвольную ошибку.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var f Fields
	if errors.As(err, &f) {
		for _, k := range []Kind{KindMissingField, KindUnknownReference, KindNonPositiveQuantity, KindInvalidValue, KindDuplicateReference} {
			if f.Has(k) {
				return k
			}
		}
	}
	return KindInternal
}
