// Package pgjson scans JSON produced by Postgres aggregate functions such as json_agg.
package pgjson

import (
	"database/sql/driver"
	"fmt"

	"github.com/goccy/go-json"
)

// List is a column holding a JSON array of T. SQL NULL and JSON null both
// scan to an empty list.
type List[T any] []T

// Strings is a list of strings stored or aggregated as a JSON array.
type Strings = List[string]

func (l *List[T]) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = List[T]{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("pgjson: cannot scan %T into a list", src)
	}

	out := List[T]{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("pgjson: %w", err)
	}
	if out == nil {
		out = List[T]{}
	}
	*l = out
	return nil
}

func (l List[T]) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]T(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
