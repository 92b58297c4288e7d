package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
)

// fileKey derives the document key from a user password (algorithm 2).
func fileKey(pw, o []byte, p uint32, id []byte, r, n int, encryptMetadata bool) []byte {
	h := md5.New()
	h.Write(pad(pw))
	h.Write(o[:32])
	var pb [4]byte
	binary.LittleEndian.PutUint32(pb[:], p)
	h.Write(pb[:])
	h.Write(id)
	if r >= 4 && !encryptMetadata {
		h.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	}
	key := h.Sum(nil)
	if r >= 3 {
		for i := 0; i < 50; i++ {
			sum := md5.Sum(key[:n])
			key = sum[:]
		}
	} else {
		n = 5
	}
	return key[:n]
}

// ownerKey is the RC4 key derived from the owner password (algorithm 3,
// steps a to d).
func ownerKey(owner []byte, r, n int) []byte {
	sum := md5.Sum(pad(owner))
	key := sum[:]
	if r >= 3 {
		for i := 0; i < 50; i++ {
			sum = md5.Sum(key)
			key = sum[:]
		}
	} else {
		n = 5
	}
	return key[:n]
}

// ownerEntry computes /O (algorithm 3).
func ownerEntry(owner, user []byte, r, n int) []byte {
	key := ownerKey(owner, r, n)
	out := pad(user)
	rc4XOR(key, out)
	if r >= 3 {
		for i := 1; i <= 19; i++ {
			rc4XOR(xorKey(key, byte(i)), out)
		}
	}
	return out
}

// userEntry computes /U from the file key (algorithms 4 and 5).
func userEntry(key, id []byte, r int) []byte {
	if r == 2 {
		out := pad(nil)
		rc4XOR(key, out)
		return out
	}
	h := md5.New()
	h.Write(passwordPad)
	h.Write(id)
	out := h.Sum(nil)
	rc4XOR(key, out)
	for i := 1; i <= 19; i++ {
		rc4XOR(xorKey(key, byte(i)), out)
	}
	// the remaining 16 bytes are arbitrary
	return append(out, passwordPad[:16]...)
}

// userPasswordFromOwner recovers the padded user password from /O
// (algorithm 7, step b).
func userPasswordFromOwner(owner, o []byte, r, n int) []byte {
	key := ownerKey(owner, r, n)
	out := append([]byte(nil), o[:32]...)
	if r == 2 {
		rc4XOR(key, out)
		return out
	}
	for i := 19; i >= 0; i-- {
		rc4XOR(xorKey(key, byte(i)), out)
	}
	return out
}

func checkUser(u, computed []byte, r int) bool {
	if len(u) < 32 {
		return false
	}
	if r == 2 {
		return bytes.Equal(u[:32], computed)
	}
	return bytes.Equal(u[:16], computed[:16])
}

func rc4XOR(key, data []byte) {
	c, err := rc4.NewCipher(key)
	if err != nil {
		// key lengths are fixed by the revision and always valid
		panic(err)
	}
	c.XORKeyStream(data, data)
}

func xorKey(key []byte, v byte) []byte {
	out := make([]byte, len(key))
	for i, b := range key {
		out[i] = b ^ v
	}
	return out
}

// hashR6 is the revision 6 password hash (ISO 32000-2 algorithm 2.B).
// u is the 48-byte /U value when hashing an owner password, else nil.
func hashR6(pw, salt, u []byte) []byte {
	h := sha256.New()
	h.Write(pw)
	h.Write(salt)
	h.Write(u)
	k := h.Sum(nil)

	for i := 1; ; i++ {
		seq := make([]byte, 0, len(pw)+len(k)+len(u))
		seq = append(append(append(seq, pw...), k...), u...)
		k1 := bytes.Repeat(seq, 64)

		block, err := aes.NewCipher(k[:16])
		if err != nil {
			panic(err)
		}
		e := make([]byte, len(k1))
		cipher.NewCBCEncrypter(block, k[16:32]).CryptBlocks(e, k1)

		var mod int
		for _, b := range e[:16] {
			mod += int(b)
		}
		switch mod % 3 {
		case 0:
			sum := sha256.Sum256(e)
			k = sum[:]
		case 1:
			sum := sha512.Sum384(e)
			k = sum[:]
		case 2:
			sum := sha512.Sum512(e)
			k = sum[:]
		}

		if i >= 64 && int(e[len(e)-1]) <= i-32 {
			break
		}
	}
	return k[:32]
}

// aesNoPad runs AES-256-CBC with a zero IV over whole blocks, as used
// for /UE and /OE.
func aesNoPad(key, data []byte, encrypt bool) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	var iv [aes.BlockSize]byte
	out := make([]byte, len(data))
	if encrypt {
		cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(out, data)
	} else {
		cipher.NewCBCDecrypter(block, iv[:]).CryptBlocks(out, data)
	}
	return out, nil
}
