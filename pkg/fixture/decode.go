package fixture

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Decode converts records into values of T. Fields are matched through
// yaml struct tags, and cells are resolved like plain YAML scalars, so
// "42" fills an int and "true" a bool. Empty cells leave the zero value.
// Cells such as "null" or "~" stay literal text in fields that accept a
// string and are null everywhere else.
func Decode[T any](records []Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for i, rec := range records {
		v, err := decodeRecord[T](rec)
		if err != nil {
			return nil, fmt.Errorf("decode record %d %s: %w", i+1, rec, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// LoadAs loads path with l (DefaultLoader when nil) and decodes the
// records into T.
func LoadAs[T any](ctx context.Context, l *Loader, path string, opts ...Option) ([]T, error) {
	if l == nil {
		l = DefaultLoader
	}
	records, err := l.Load(ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	out, err := Decode[T](records)
	if err != nil {
		return nil, &LoadError{Path: path, Resolved: l.Resolve(path), Err: err}
	}
	return out, nil
}

// nullText lists the non-empty spellings YAML resolves to null.
var nullText = map[string]bool{"~": true, "null": true, "Null": true, "NULL": true}

// decodeRecord retries each null-like cell as an explicit string and keeps
// the retry when T accepts it. Every attempt decodes into a fresh value.
func decodeRecord[T any](rec Record) (T, error) {
	var v T
	if err := rec.node(nil).Decode(&v); err != nil {
		return v, err
	}
	literal := make(map[int]bool)
	for i, value := range rec.values {
		if !nullText[value] {
			continue
		}
		literal[i] = true
		var w T
		if err := rec.node(literal).Decode(&w); err != nil {
			delete(literal, i)
			continue
		}
		v = w
	}
	return v, nil
}

// node builds a mapping of column to cell. Cells at the literal indices
// are tagged !!str, the rest are left for YAML to resolve.
func (r Record) node(literal map[int]bool) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i, c := range r.columns {
		value := &yaml.Node{Kind: yaml.ScalarNode, Value: r.values[i]}
		if literal[i] {
			value.Tag = "!!str"
		}
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c},
			value,
		)
	}
	return n
}
