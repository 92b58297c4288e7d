package core

import (
	"errors"
	"fmt"

	"github.com/seyaytua/manken/internal/filters"
)

// Stream is a dictionary plus a payload. Data holds the bytes exactly as
// they appear between the stream keywords (after decryption, if the
// document was authorized).
type Stream struct {
	Dict Dict
	Data []byte

	decoded []byte
	denied  error
}

// NewStream creates a stream with the given dictionary and raw payload.
func NewStream(dict Dict, data []byte) *Stream {
	if dict == nil {
		dict = Dict{}
	}
	return &Stream{Dict: dict, Data: data}
}

func (s *Stream) Type() ObjectType { return ObjStream }
func (s *Stream) String() string {
	return fmt.Sprintf("stream %s (%d bytes)", s.Dict.String(), len(s.Data))
}

// Deny marks the payload as unreadable; Decode then returns err.
func (s *Stream) Deny(err error) {
	s.denied = err
	s.decoded = nil
}

// Denied returns the error set by Deny, or nil.
func (s *Stream) Denied() error {
	return s.denied
}

// Clone returns a deep copy of the stream.
func (s *Stream) Clone() *Stream {
	out := &Stream{Dict: s.Dict.Clone(), denied: s.denied}
	out.Data = append([]byte(nil), s.Data...)
	return out
}

// Filters returns the filter names in application order.
func (s *Stream) Filters() ([]string, error) {
	switch f := s.Dict["Filter"].(type) {
	case nil, Null:
		return nil, nil
	case Name:
		return []string{string(f)}, nil
	case Array:
		names := make([]string, 0, len(f))
		for i, elem := range f {
			n, ok := elem.(Name)
			if !ok {
				return nil, fmt.Errorf("filter %d: %w", i, &TypeError{Key: "Filter", Want: ObjName, Got: elem})
			}
			names = append(names, string(n))
		}
		return names, nil
	default:
		return nil, &TypeError{Key: "Filter", Want: ObjName, Got: f}
	}
}

// Decode runs the filter chain over Data and caches the result.
// An unknown filter yields a ParseError of kind UnsupportedFilter; the
// stream itself stays usable as an opaque payload.
func (s *Stream) Decode() ([]byte, error) {
	if s.denied != nil {
		return nil, s.denied
	}
	if s.decoded != nil {
		return s.decoded, nil
	}

	names, err := s.Filters()
	if err != nil {
		return nil, err
	}
	data := s.Data
	for i, name := range names {
		data, err = filters.Decode(name, data, s.params(i))
		if err != nil {
			if errors.Is(err, filters.ErrUnsupportedFilter) {
				return nil, NewParseError(UnsupportedFilter, -1, err)
			}
			return nil, fmt.Errorf("failed to apply %s: %w", name, err)
		}
	}
	s.decoded = data
	return data, nil
}

// SetRaw replaces the payload bytes as stored, keeping the filters.
func (s *Stream) SetRaw(data []byte) {
	s.Data = data
	s.decoded = nil
	s.Dict["Length"] = Int(len(data))
}

// SetDecoded replaces the payload with data stored unfiltered.
func (s *Stream) SetDecoded(data []byte) {
	s.Data = data
	s.decoded = data
	s.Dict.Delete("Filter")
	s.Dict.Delete("DecodeParms")
	s.Dict["Length"] = Int(len(data))
}

// Recompress replaces the payload with a Flate encoding of data.
func (s *Stream) Recompress(data []byte) error {
	name, raw, err := filters.Encode(data)
	if err != nil {
		return fmt.Errorf("failed to encode stream: %w", err)
	}
	s.Data = raw
	s.decoded = data
	s.Dict["Filter"] = Name(name)
	s.Dict.Delete("DecodeParms")
	s.Dict["Length"] = Int(len(raw))
	return nil
}

// params returns the decode parameters for the i-th filter.
func (s *Stream) params(i int) filters.Params {
	obj := s.Dict["DecodeParms"]
	if arr, ok := obj.(Array); ok {
		obj = arr.Get(i)
	}
	dict, ok := obj.(Dict)
	if !ok {
		return nil
	}
	params := make(filters.Params, len(dict))
	for k, v := range dict {
		switch val := v.(type) {
		case Int:
			params[k] = int(val)
		case Real:
			params[k] = float64(val)
		case Bool:
			params[k] = bool(val)
		case Name:
			params[k] = string(val)
		case String:
			params[k] = string(val)
		}
	}
	return params
}
