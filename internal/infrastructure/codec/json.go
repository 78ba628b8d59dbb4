// Package codec implements ports.Codec.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/avatarctic/timecache/internal/core/domain/cacheerr"
)

// JSONContentType identifies version 1 of the JSON wire format.
const JSONContentType = "application/json;v=1"

// JSON encodes values with encoding/json. The zero value is ready to use.
type JSON struct{}

// NewJSON returns a JSON codec.
func NewJSON() JSON { return JSON{} }

// ContentType implements ports.Codec.ContentType.
func (JSON) ContentType() string { return JSONContentType }

// Encode implements ports.Codec.Encode.
func (JSON) Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return b, nil
}

// Decode implements ports.Codec.Decode. Object members the target does not
// declare, trailing data and a null for a non-nillable target are decode errors.
func (JSON) Decode(data []byte, v any) error {
	if err := strictUnmarshal(data, v); err != nil {
		return &cacheerr.DecodeError{Target: fmt.Sprintf("%T", v), Err: err}
	}
	return nil
}

func strictUnmarshal(data []byte, v any) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) && !nillable(v) {
		return errors.New("null value for non-nillable target")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("trailing data after JSON value")
	}
	return nil
}

// nillable reports whether the value v points at can hold null.
func nillable(v any) bool {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return false
	}
	switch rv.Elem().Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return true
	}
	return false
}

// EncodeFields encodes v and splits the resulting JSON object into its members.
// v must encode to a JSON object (a struct or a map with string keys).
func (c JSON) EncodeFields(v any) (map[string][]byte, error) {
	b, err := c.Encode(v)
	if err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil || raw == nil {
		return nil, cacheerr.InvalidArgument("%T does not encode to an object", v)
	}
	out := make(map[string][]byte, len(raw))
	for k, m := range raw {
		out[k] = []byte(m)
	}
	return out, nil
}

// DecodeFields rebuilds v from the members produced by EncodeFields, with the
// same strictness as Decode.
func (JSON) DecodeFields(fields map[string][]byte, v any) error {
	target := fmt.Sprintf("%T", v)
	raw := make(map[string]json.RawMessage, len(fields))
	for k, f := range fields {
		if !json.Valid(f) {
			return &cacheerr.DecodeError{Target: target, Err: fmt.Errorf("field %q is not valid JSON", k)}
		}
		raw[k] = json.RawMessage(f)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return &cacheerr.DecodeError{Target: target, Err: err}
	}
	if err := strictUnmarshal(b, v); err != nil {
		return &cacheerr.DecodeError{Target: target, Err: err}
	}
	return nil
}
