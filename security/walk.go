package security

import (
	"fmt"

	"github.com/seyaytua/manken/core"
	"github.com/seyaytua/manken/document"
)

// EncryptObject encrypts the strings and stream payloads of obj, the
// value of indirect object ref. Arrays, dictionaries and streams are
// modified in place; the returned object replaces obj.
func (h *Handler) EncryptObject(ref core.IndirectRef, obj core.Object) (core.Object, error) {
	return h.walk(ref, obj, h.encrypt, true)
}

// DecryptObject reverses EncryptObject. A string that cannot be
// decrypted is kept as stored and a stream is marked denied, so one bad
// value does not fail the whole object.
func (h *Handler) DecryptObject(ref core.IndirectRef, obj core.Object) (core.Object, error) {
	return h.walk(ref, obj, h.decrypt, false)
}

type cryptFunc func(method string, ref core.IndirectRef, data []byte) ([]byte, error)

func (h *Handler) walk(ref core.IndirectRef, obj core.Object, fn cryptFunc, strict bool) (core.Object, error) {
	switch v := obj.(type) {
	case core.String:
		out, err := fn(h.strMethod, ref, []byte(v))
		if err != nil {
			if !strict {
				return v, nil
			}
			return nil, fmt.Errorf("object %s: %w", ref, err)
		}
		return core.String(out), nil
	case core.Array:
		for i, elem := range v {
			out, err := h.walk(ref, elem, fn, strict)
			if err != nil {
				return nil, err
			}
			v[i] = out
		}
		return v, nil
	case core.Dict:
		for key, elem := range v {
			out, err := h.walk(ref, elem, fn, strict)
			if err != nil {
				return nil, err
			}
			v[key] = out
		}
		return v, nil
	case *core.Stream:
		if _, err := h.walk(ref, v.Dict, fn, strict); err != nil {
			return nil, err
		}
		if !h.encryptsPayload(v) {
			return v, nil
		}
		out, err := fn(h.stmMethod, ref, v.Data)
		if err != nil {
			if strict {
				return nil, fmt.Errorf("object %s: %w", ref, err)
			}
			v.Deny(fmt.Errorf("object %s: %w", ref, err))
			return v, nil
		}
		v.SetRaw(out)
		return v, nil
	}
	return obj, nil
}

// encryptsPayload reports whether the payload of s goes through the
// stream cipher.
func (h *Handler) encryptsPayload(s *core.Stream) bool {
	switch t, _ := s.Dict.GetName("Type"); t {
	case "XRef":
		return false
	case "Metadata":
		return h.encryptMetadata
	}
	return true
}

// EncryptDocument encrypts every object of doc in place. skip is the
// reference of the encryption dictionary, which stays in clear.
func (h *Handler) EncryptDocument(doc *document.Document, skip core.IndirectRef) error {
	for _, ref := range doc.Refs() {
		if ref == skip {
			continue
		}
		obj, err := doc.Get(ref)
		if err != nil {
			return err
		}
		out, err := h.EncryptObject(ref, obj)
		if err != nil {
			return err
		}
		doc.Set(ref, out)
	}
	return nil
}
