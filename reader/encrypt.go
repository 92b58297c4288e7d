package reader

import (
	"errors"
	"fmt"

	"github.com/seyaytua/manken/core"
	"github.com/seyaytua/manken/security"
)

// setupEncryption loads the /Encrypt dictionary and tries the configured
// password.
func (r *Reader) setupEncryption(cfg config) error {
	obj, ok := r.trailer["Encrypt"]
	if !ok {
		return nil
	}
	if ref, isRef := obj.(core.IndirectRef); isRef {
		raw, err := r.loadRaw(ref)
		if err != nil {
			return fmt.Errorf("failed to load encryption dictionary: %w", err)
		}
		r.encryptRef = ref
		obj = raw
	}
	dict, err := core.AsDict(obj)
	if err != nil {
		return fmt.Errorf("encryption dictionary: %w", err)
	}
	r.encrypt = dict

	if ids, ok := r.trailer.GetArray("ID"); ok && len(ids) > 0 {
		if id, ok := ids[0].(core.String); ok {
			r.fileID = []byte(id)
		}
	}

	err = r.Authorize(cfg.password)
	if err != nil && (cfg.requireAuth || !errors.Is(err, core.ErrAccessDenied)) {
		return err
	}
	return nil
}

// Locked reports whether the file is encrypted and no password has been
// accepted yet.
func (r *Reader) Locked() bool {
	return r.encrypt != nil && r.handler == nil
}

// Authorize tries password as user and owner password.
func (r *Reader) Authorize(password string) error {
	if r.encrypt == nil {
		return nil
	}
	h, err := security.Authenticate(r.encrypt, r.fileID, password)
	if err != nil {
		return err
	}
	r.handler = h
	// object streams were cached in their encrypted form
	r.objStreams = make(map[int]*core.ObjectStream)
	return nil
}

// Encrypt returns the encryption dictionary, or nil.
func (r *Reader) Encrypt() core.Dict {
	return r.encrypt
}

// decrypt applies the security handler to a freshly parsed object. In a
// locked file streams are denied and strings stay encrypted.
func (r *Reader) decrypt(ref core.IndirectRef, obj core.Object) core.Object {
	if r.encrypt == nil || ref == r.encryptRef {
		return obj
	}
	if r.handler == nil {
		if s, ok := obj.(*core.Stream); ok {
			if t, _ := s.Dict.GetName("Type"); t != "XRef" {
				s.Deny(core.ErrAccessDenied)
			}
		}
		return obj
	}
	out, err := r.handler.DecryptObject(ref, obj)
	if err != nil {
		// DecryptObject does not fail in lenient mode
		return obj
	}
	return out
}
