// Package docstore is a small document-store port: collections of JSON
// records addressed by id, with equality/range filters, one ordering field
// and a limit. The catalog sections and the preview entitlements live here.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

var ErrNotFound = errors.New("docstore: document not found")

// Record is one document. Values are what encoding/json produces:
// strings, float64, bool, nested maps and slices.
type Record map[string]any

type Op string

const (
	OpEqual          Op = "=="
	OpGreaterOrEqual Op = ">="
	OpLessOrEqual    Op = "<="
)

type Filter struct {
	Field string
	Op    Op
	Value any
}

type Order struct {
	Field string
	Desc  bool
}

type Store interface {
	Get(ctx context.Context, collection, id string) (Record, error)
	Put(ctx context.Context, collection, id string, rec Record) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, filters []Filter, order *Order, limit int) ([]Record, error)
}

// Eq is shorthand for the common equality filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: OpEqual, Value: value}
}

// matches reports whether rec passes every filter. Numbers are compared as
// float64 since that is how JSON round-trips them.
func matches(rec Record, filters []Filter) bool {
	for _, f := range filters {
		v, ok := rec[f.Field]
		if !ok {
			return false
		}
		switch f.Op {
		case OpEqual:
			if !looseEqual(v, f.Value) {
				return false
			}
		case OpGreaterOrEqual, OpLessOrEqual:
			cmp, ok := compare(v, f.Value)
			if !ok {
				return false
			}
			if f.Op == OpGreaterOrEqual && cmp < 0 {
				return false
			}
			if f.Op == OpLessOrEqual && cmp > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func looseEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
		return false
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func compare(a, b any) (int, bool) {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			}
			return 0, true
		}
		return 0, false
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case as < bs:
		return -1, true
	case as > bs:
		return 1, true
	}
	return 0, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	}
	return 0, false
}

// sortRecords orders in place by the given field, missing values last.
func sortRecords(recs []Record, order *Order) {
	if order == nil {
		return
	}
	sort.SliceStable(recs, func(i, j int) bool {
		vi, iok := recs[i][order.Field]
		vj, jok := recs[j][order.Field]
		if !iok || !jok {
			return iok && !jok
		}
		cmp, ok := compare(vi, vj)
		if !ok {
			return false
		}
		if order.Desc {
			return cmp > 0
		}
		return cmp < 0
	})
}
