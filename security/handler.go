package security

import (
	"bytes"
	"crypto/aes"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/seyaytua/manken/core"
)

// Credentials are the passwords used to encrypt a document. An empty
// Owner means the owner password equals the user password.
type Credentials struct {
	User  string
	Owner string
}

// Empty reports whether no password was given.
func (c Credentials) Empty() bool {
	return c.User == "" && c.Owner == ""
}

// DefaultPermissions grants every operation (all bits set except the
// two reserved low bits).
const DefaultPermissions int32 = -4

// DefaultRevision is used by NewHandler unless WithRevision is given:
// 128-bit AES (V4, R4, AESV2).
const DefaultRevision = 4

type config struct {
	revision    int
	permissions int32
	random      io.Reader
}

// Option configures NewHandler.
type Option func(*config)

// WithRevision selects the security handler revision: 2 (RC4 40-bit),
// 3 (RC4 128-bit), 4 (AES 128-bit) or 6 (AES 256-bit).
func WithRevision(r int) Option {
	return func(c *config) { c.revision = r }
}

// WithPermissions sets the /P access flags.
func WithPermissions(p int32) Option {
	return func(c *config) { c.permissions = p }
}

// withRandom replaces the randomness source for keys, salts and IVs.
func withRandom(r io.Reader) Option {
	return func(c *config) { c.random = r }
}

// Handler encrypts and decrypts the strings and streams of one document.
type Handler struct {
	revision        int
	key             []byte
	stmMethod       string
	strMethod       string
	encryptMetadata bool
	random          io.Reader
}

// Revision returns the handler revision.
func (h *Handler) Revision() int { return h.revision }

// MinVersion returns the lowest PDF version that can carry the
// encryption scheme.
func (h *Handler) MinVersion() string {
	switch h.revision {
	case 2:
		return "1.1"
	case 3:
		return "1.4"
	case 4:
		return "1.6"
	}
	return "2.0"
}

// NewHandler derives a fresh file key for creds and returns the handler
// together with the /Encrypt dictionary describing it. fileID is the
// first element of the trailer /ID.
func NewHandler(creds Credentials, fileID []byte, opts ...Option) (*Handler, core.Dict, error) {
	cfg := config{revision: DefaultRevision, permissions: DefaultPermissions, random: rand.Reader}
	for _, opt := range opts {
		opt(&cfg)
	}
	owner := creds.Owner
	if owner == "" {
		owner = creds.User
	}

	switch cfg.revision {
	case 2, 3, 4:
		return newLegacy(cfg, creds.User, owner, fileID)
	case 6:
		return newAES256(cfg, creds.User, owner)
	}
	return nil, nil, fmt.Errorf("unsupported security handler revision %d", cfg.revision)
}

func newLegacy(cfg config, user, owner string, fileID []byte) (*Handler, core.Dict, error) {
	r := cfg.revision
	n := 16
	if r == 2 {
		n = 5
	}
	upw, opw := legacyPassword(user), legacyPassword(owner)
	o := ownerEntry(opw, upw, r, n)
	key := fileKey(upw, o, uint32(cfg.permissions), fileID, r, n, true)
	u := userEntry(key, fileID, r)

	h := &Handler{revision: r, key: key, encryptMetadata: true, random: cfg.random}
	dict := core.Dict{
		"Filter": core.Name("Standard"),
		"R":      core.Int(r),
		"Length": core.Int(n * 8),
		"O":      core.String(o),
		"U":      core.String(u),
		"P":      core.Int(cfg.permissions),
	}
	switch r {
	case 2:
		dict["V"] = core.Int(1)
		h.stmMethod, h.strMethod = methodRC4, methodRC4
	case 3:
		dict["V"] = core.Int(2)
		h.stmMethod, h.strMethod = methodRC4, methodRC4
	case 4:
		dict["V"] = core.Int(4)
		dict["CF"] = stdCF(methodAES, 16)
		dict["StmF"] = core.Name("StdCF")
		dict["StrF"] = core.Name("StdCF")
		h.stmMethod, h.strMethod = methodAES, methodAES
	}
	return h, dict, nil
}

func newAES256(cfg config, user, owner string) (*Handler, core.Dict, error) {
	random := make([]byte, 32+4*8+4)
	if _, err := io.ReadFull(cfg.random, random); err != nil {
		return nil, nil, fmt.Errorf("failed to generate file key: %w", err)
	}
	key := random[:32]
	uvs, uks, ovs, oks := random[32:40], random[40:48], random[48:56], random[56:64]
	upw, opw := modernPassword(user), modernPassword(owner)

	u := append(append(hashR6(upw, uvs, nil), uvs...), uks...)
	ue, err := aesNoPad(hashR6(upw, uks, nil), key, true)
	if err != nil {
		return nil, nil, err
	}
	o := append(append(hashR6(opw, ovs, u), ovs...), oks...)
	oe, err := aesNoPad(hashR6(opw, oks, u), key, true)
	if err != nil {
		return nil, nil, err
	}

	perms := make([]byte, 16)
	p := uint32(cfg.permissions)
	perms[0], perms[1], perms[2], perms[3] = byte(p), byte(p>>8), byte(p>>16), byte(p>>24)
	perms[4], perms[5], perms[6], perms[7] = 0xFF, 0xFF, 0xFF, 0xFF
	perms[8] = 'T'
	copy(perms[9:12], "adb")
	copy(perms[12:], random[64:68])
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	block.Encrypt(perms, perms)

	h := &Handler{
		revision:        6,
		key:             key,
		stmMethod:       methodAES256,
		strMethod:       methodAES256,
		encryptMetadata: true,
		random:          cfg.random,
	}
	dict := core.Dict{
		"Filter": core.Name("Standard"),
		"V":      core.Int(5),
		"R":      core.Int(6),
		"Length": core.Int(256),
		"CF":     stdCF(methodAES256, 32),
		"StmF":   core.Name("StdCF"),
		"StrF":   core.Name("StdCF"),
		"O":      core.String(o),
		"U":      core.String(u),
		"OE":     core.String(oe),
		"UE":     core.String(ue),
		"P":      core.Int(cfg.permissions),
		"Perms":  core.String(perms),
	}
	return h, dict, nil
}

func stdCF(method string, length int) core.Dict {
	return core.Dict{"StdCF": core.Dict{
		"CFM":       core.Name(method),
		"AuthEvent": core.Name("DocOpen"),
		"Length":    core.Int(length),
	}}
}

// Authenticate checks password against an /Encrypt dictionary, first as
// the user password and then as the owner password. A wrong password
// yields core.ErrAccessDenied.
func Authenticate(encrypt core.Dict, fileID []byte, password string) (*Handler, error) {
	if filter, _ := encrypt.GetName("Filter"); filter != "Standard" {
		return nil, fmt.Errorf("unsupported security handler /%s", filter)
	}
	v, _ := encrypt.GetInt("V")
	r, _ := encrypt.GetInt("R")
	p, _ := encrypt.GetInt("P")
	o, _ := encrypt.GetString("O")
	u, _ := encrypt.GetString("U")
	h := &Handler{revision: int(r), encryptMetadata: true, random: rand.Reader}
	if em, ok := encrypt.GetBool("EncryptMetadata"); ok {
		h.encryptMetadata = bool(em)
	}

	n := 5
	if length, ok := encrypt.GetInt("Length"); ok {
		n = int(length) / 8
	}
	switch v {
	case 1, 2:
		h.stmMethod, h.strMethod = methodRC4, methodRC4
	case 4, 5:
		var err error
		if h.stmMethod, err = cryptFilter(encrypt, "StmF"); err != nil {
			return nil, err
		}
		if h.strMethod, err = cryptFilter(encrypt, "StrF"); err != nil {
			return nil, err
		}
		n = 16
	default:
		return nil, fmt.Errorf("unsupported encryption version V=%d", v)
	}
	if n < 5 || n > 16 {
		return nil, fmt.Errorf("invalid key length %d bits", n*8)
	}

	switch r {
	case 2, 3, 4:
		if len(o) < 32 || len(u) < 32 {
			return nil, fmt.Errorf("malformed /O or /U entry")
		}
		key, ok := authLegacy(legacyPassword(password), []byte(o), []byte(u), uint32(p), fileID, int(r), n, h.encryptMetadata)
		if !ok {
			return nil, core.ErrAccessDenied
		}
		h.key = key
	case 6:
		key, err := authAES256(modernPassword(password), encrypt)
		if err != nil {
			return nil, err
		}
		h.key = key
	default:
		return nil, fmt.Errorf("unsupported security handler revision %d", r)
	}
	return h, nil
}

func authLegacy(pw, o, u []byte, p uint32, id []byte, r, n int, encryptMetadata bool) ([]byte, bool) {
	key := fileKey(pw, o, p, id, r, n, encryptMetadata)
	if checkUser(u, userEntry(key, id, r), r) {
		return key, true
	}
	upw := userPasswordFromOwner(pw, o, r, n)
	key = fileKey(upw, o, p, id, r, n, encryptMetadata)
	if checkUser(u, userEntry(key, id, r), r) {
		return key, true
	}
	return nil, false
}

func authAES256(pw []byte, encrypt core.Dict) ([]byte, error) {
	o, _ := encrypt.GetString("O")
	u, _ := encrypt.GetString("U")
	oe, _ := encrypt.GetString("OE")
	ue, _ := encrypt.GetString("UE")
	if len(o) < 48 || len(u) < 48 || len(oe) != 32 || len(ue) != 32 {
		return nil, fmt.Errorf("malformed /O, /U, /OE or /UE entry")
	}
	ub := []byte(u)[:48]
	ob := []byte(o)[:48]

	var ik, wrapped []byte
	switch {
	case bytes.Equal(hashR6(pw, ub[32:40], nil), ub[:32]):
		ik, wrapped = hashR6(pw, ub[40:48], nil), []byte(ue)
	case bytes.Equal(hashR6(pw, ob[32:40], ub), ob[:32]):
		ik, wrapped = hashR6(pw, ob[40:48], ub), []byte(oe)
	default:
		return nil, core.ErrAccessDenied
	}
	key, err := aesNoPad(ik, wrapped, false)
	if err != nil {
		return nil, err
	}

	if perms, ok := encrypt.GetString("Perms"); ok && len(perms) >= 16 {
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		dec := make([]byte, 16)
		block.Decrypt(dec, []byte(perms)[:16])
		if string(dec[9:12]) != "adb" {
			return nil, fmt.Errorf("/Perms does not match the file key")
		}
	}
	return key, nil
}

// cryptFilter resolves /StmF or /StrF to a cipher method.
func cryptFilter(encrypt core.Dict, key string) (string, error) {
	name, ok := encrypt.GetName(key)
	if !ok || name == "Identity" {
		return methodNone, nil
	}
	cf, _ := encrypt.GetDict("CF")
	filter, ok := cf.GetDict(string(name))
	if !ok {
		return "", fmt.Errorf("crypt filter /%s not defined in /CF", name)
	}
	cfm, _ := filter.GetName("CFM")
	switch cfm {
	case "None":
		return methodNone, nil
	case methodRC4, methodAES, methodAES256:
		return string(cfm), nil
	}
	return "", fmt.Errorf("unsupported crypt filter method /%s", cfm)
}
