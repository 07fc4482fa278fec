// Package serde bridges JSON documents and RESP3 bulk strings so domain
// objects can be stored in and read back from the server without a
// hand-written codec per type.
package serde

import (
	"errors"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var ErrInvalidDocument = errors.New("payload is not a valid JSON document")

// Doc is a JSON document that can travel as a single bulk string. It
// implements protocol.BulkMarshaler and adapter.BulkUnmarshaler, so a
// *Doc works both as a request argument and as a response target.
type Doc struct {
	raw []byte
}

// NewDoc returns an empty document.
func NewDoc() *Doc {
	return &Doc{raw: []byte("{}")}
}

// FromJSON returns a document backed by the given JSON bytes.
func FromJSON(raw []byte) (*Doc, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidDocument
	}
	return &Doc{raw: raw}, nil
}

// Get resolves a gjson path inside the document.
func (d *Doc) Get(path string) gjson.Result {
	return gjson.GetBytes(d.raw, path)
}

// Set writes value at a gjson-style path, creating intermediate objects
// as needed.
func (d *Doc) Set(path string, value interface{}) (err error) {
	d.raw, err = sjson.SetBytes(d.raw, path, value)
	return err
}

// Delete removes the value at path.
func (d *Doc) Delete(path string) (err error) {
	d.raw, err = sjson.DeleteBytes(d.raw, path)
	return err
}

// JSON returns the raw document bytes.
func (d *Doc) JSON() []byte {
	if len(d.raw) == 0 {
		return []byte("{}")
	}
	return d.raw
}

// MarshalBulk frames the document as the payload of one bulk string.
func (d *Doc) MarshalBulk() ([]byte, error) {
	return d.JSON(), nil
}

// UnmarshalBulk replaces the document with the payload of a bulk string.
func (d *Doc) UnmarshalBulk(data []byte) error {
	if !gjson.ValidBytes(data) {
		return ErrInvalidDocument
	}
	d.raw = append(d.raw[:0], data...)
	return nil
}
