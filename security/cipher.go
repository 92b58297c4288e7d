package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"errors"
	"fmt"
	"io"

	"github.com/seyaytua/manken/core"
)

// Crypt filter methods.
const (
	methodNone   = "None"
	methodRC4    = "V2"
	methodAES    = "AESV2"
	methodAES256 = "AESV3"
)

var errShortCiphertext = errors.New("AES ciphertext shorter than one block")

// objectKey derives the key for one object (algorithm 1). Revision 6
// uses the file key directly.
func (h *Handler) objectKey(ref core.IndirectRef, method string) []byte {
	if h.revision >= 5 {
		return h.key
	}
	n, g := ref.Number, ref.Generation
	md := md5.New()
	md.Write(h.key)
	md.Write([]byte{byte(n), byte(n >> 8), byte(n >> 16), byte(g), byte(g >> 8)})
	if method == methodAES {
		md.Write([]byte("sAlT"))
	}
	size := len(h.key) + 5
	if size > 16 {
		size = 16
	}
	return md.Sum(nil)[:size]
}

func (h *Handler) encrypt(method string, ref core.IndirectRef, data []byte) ([]byte, error) {
	switch method {
	case methodNone:
		return data, nil
	case methodRC4:
		out := append([]byte(nil), data...)
		rc4XOR(h.objectKey(ref, method), out)
		return out, nil
	case methodAES, methodAES256:
		return aesEncrypt(h.objectKey(ref, method), data, h.random)
	}
	return nil, fmt.Errorf("unsupported crypt filter method %s", method)
}

func (h *Handler) decrypt(method string, ref core.IndirectRef, data []byte) ([]byte, error) {
	switch method {
	case methodNone:
		return data, nil
	case methodRC4:
		out := append([]byte(nil), data...)
		rc4XOR(h.objectKey(ref, method), out)
		return out, nil
	case methodAES, methodAES256:
		return aesDecrypt(h.objectKey(ref, method), data)
	}
	return nil, fmt.Errorf("unsupported crypt filter method %s", method)
}

// aesEncrypt prefixes a random IV and pads with PKCS#7.
func aesEncrypt(key, data []byte, random io.Reader) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padLen := aes.BlockSize - len(data)%aes.BlockSize
	out := make([]byte, aes.BlockSize+len(data)+padLen)
	if _, err := io.ReadFull(random, out[:aes.BlockSize]); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}
	body := out[aes.BlockSize:]
	copy(body, data)
	for i := len(data); i < len(body); i++ {
		body[i] = byte(padLen)
	}
	cipher.NewCBCEncrypter(block, out[:aes.BlockSize]).CryptBlocks(body, body)
	return out, nil
}

// aesDecrypt reverses aesEncrypt. Invalid padding is left in place.
func aesDecrypt(key, data []byte) ([]byte, error) {
	if len(data) < aes.BlockSize {
		return nil, errShortCiphertext
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	iv, body := data[:aes.BlockSize], data[aes.BlockSize:]
	// drop a trailing partial block
	body = body[:len(body)-len(body)%aes.BlockSize]
	out := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, body)
	if n := len(out); n > 0 {
		p := int(out[n-1])
		if p >= 1 && p <= aes.BlockSize && p <= n {
			out = out[:n-p]
		}
	}
	return out, nil
}
