// Package cryptox implements password hashing for stored user credentials.
//
// New hashes are argon2id in the usual PHC string form:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt b64>$<key b64>
//
// Hashes written by older deployments are 8+ hex digit djb2 values. They are
// still accepted by VerifyPassword, which reports them as needing a rehash so
// callers can upgrade the stored value after a successful login.
package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/pledgeboard/internal/common"
	"golang.org/x/crypto/argon2"
)

// Params are the argon2id cost parameters.
type Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// DefaultParams is the cost used for newly stored password hashes.
var DefaultParams = Params{Time: 1, Memory: 64 * 1024, Threads: 4, SaltLen: 16, KeyLen: 32}

var ErrMalformedHash = errors.New("malformed password hash")

// Bounds accepted when decoding stored hashes. Memory is in KiB.
const (
	maxTime   = 64
	maxMemory = 1 << 20
)

const argonPrefix = "$argon2id$"

var b64 = base64.RawStdEncoding

// HashPassword derives an argon2id hash of password with a fresh random salt.
func HashPassword(password string) string {
	return HashPasswordWith(password, DefaultParams)
}

// HashPasswordWith is HashPassword with explicit cost parameters.
func HashPasswordWith(password string, p Params) string {
	salt := common.GenerateRandByteArray(int(p.SaltLen))
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argonPrefix, argon2.Version, p.Memory, p.Time, p.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(key))
}

// VerifyPassword checks password against an encoded hash. needsRehash is true
// when the stored hash is a legacy djb2 value that matched.
func VerifyPassword(password, encoded string) (ok bool, needsRehash bool, err error) {
	if !strings.HasPrefix(encoded, argonPrefix) {
		if encoded == "" {
			return false, false, ErrMalformedHash
		}
		match := subtle.ConstantTimeCompare([]byte(LegacyHash(password)), []byte(encoded)) == 1
		return match, match, nil
	}

	p, salt, key, err := decode(encoded)
	if err != nil {
		return false, false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, candidate) == 1, false, nil
}

// LegacyHash is the djb2 rolling hash used by the first version of the
// users file, formatted as at least 8 lowercase hex digits. It is not a KDF
// and is only kept to verify old records.
func LegacyHash(password string) string {
	var h uint64 = 5381
	for i := 0; i < len(password); i++ {
		h = (h << 5) + h + uint64(int8(password[i]))
	}
	return fmt.Sprintf("%08x", h)
}

func decode(encoded string) (Params, []byte, []byte, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return Params{}, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Params{}, nil, nil, ErrMalformedHash
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return Params{}, nil, nil, ErrMalformedHash
	}
	if p.Threads == 0 || p.Time == 0 || p.Time > maxTime ||
		p.Memory < 8*uint32(p.Threads) || p.Memory > maxMemory {
		return Params{}, nil, nil, ErrMalformedHash
	}

	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, ErrMalformedHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return Params{}, nil, nil, ErrMalformedHash
	}

	return p, salt, key, nil
}
