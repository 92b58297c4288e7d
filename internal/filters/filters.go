package filters

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFilter is returned by Decode for filters this package
// cannot decode.
var ErrUnsupportedFilter = errors.New("unsupported filter")

// Params holds decode parameters with PDF objects already converted to Go
// values (int, float64, bool, string).
type Params map[string]interface{}

// Int returns the integer parameter key, or def when absent or not numeric.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Bool returns the boolean parameter key, or def.
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// Canonical maps abbreviated filter names used in inline images to their
// full names. Unknown names are returned unchanged.
func Canonical(name string) string {
	switch name {
	case "Fl":
		return "FlateDecode"
	case "AHx":
		return "ASCIIHexDecode"
	case "A85":
		return "ASCII85Decode"
	case "RL":
		return "RunLengthDecode"
	case "CCF":
		return "CCITTFaxDecode"
	case "DCT":
		return "DCTDecode"
	case "LZW":
		return "LZWDecode"
	}
	return name
}

// Decode applies the named filter to data.
func Decode(name string, data []byte, params Params) ([]byte, error) {
	switch Canonical(name) {
	case "FlateDecode":
		return FlateDecode(data, params)
	case "ASCIIHexDecode":
		return ASCIIHexDecode(data)
	case "ASCII85Decode":
		return ASCII85Decode(data)
	case "RunLengthDecode":
		return RunLengthDecode(data)
	case "CCITTFaxDecode":
		return CCITTFaxDecode(data, params)
	case "DCTDecode", "JPXDecode":
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, name)
}

// Encode compresses data with the Flate filter and returns the filter name
// to record in the stream dictionary along with the payload.
func Encode(data []byte) (string, []byte, error) {
	raw, err := FlateEncode(data)
	if err != nil {
		return "", nil, err
	}
	return "FlateDecode", raw, nil
}
