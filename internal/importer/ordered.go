package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

// Object is a decoded JSON object that remembers the order of its keys.
// Row discovery and column matching both depend on document order.
type Object struct {
	Keys   []string
	Values map[string]any
}

func NewObject() *Object {
	return &Object{Values: make(map[string]any)}
}

// Set adds or overwrites key. A repeated key keeps its first position.
func (o *Object) Set(key string, value any) {
	if _, ok := o.Values[key]; !ok {
		o.Keys = append(o.Keys, key)
	}
	o.Values[key] = value
}

func (o *Object) Get(key string) (any, bool) {
	v, ok := o.Values[key]
	return v, ok
}

// Decode parses a JSON document. Objects become *Object, arrays []any,
// numbers float64; strings, booleans and null map as encoding/json does.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		obj := NewObject()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", keyTok)
			}
			value, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj.Set(key, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := make([]any, 0)
		for dec.More() {
			value, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}

// entries exposes the keys of an object-like value in iteration order.
// Plain maps have no order of their own and are walked sorted.
func entries(v any) ([]string, func(string) (any, bool), bool) {
	switch t := v.(type) {
	case *Object:
		return t.Keys, t.Get, true
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys, func(k string) (any, bool) {
			value, ok := t[k]
			return value, ok
		}, true
	case []any:
		keys := make([]string, len(t))
		for i := range t {
			keys[i] = fmt.Sprintf("%d", i)
		}
		return keys, func(k string) (any, bool) {
			for i := range t {
				if keys[i] == k {
					return t[i], true
				}
			}
			return nil, false
		}, true
	default:
		return nil, nil, false
	}
}
