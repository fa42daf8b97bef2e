package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/muxdry/storefront-backend/pkg/config"
	"golang.org/x/crypto/argon2"
)

const argonID = "argon2id"

// ErrInvalidHash signals a malformed Argon2id hash string.
var ErrInvalidHash = errors.New("invalid argon2id hash")

// ArgonParams travel inside every encoded hash, so hashes made under older
// settings still verify after the cost is tuned.
type ArgonParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

// ParamsFromConfig clamps configured costs into a range argon2 accepts.
func ParamsFromConfig(cfg config.PasswordConfig) ArgonParams {
	return ArgonParams{
		Memory:      uint32(bounded(cfg.ArgonMemoryKB, 8, 512*1024)),
		Time:        uint32(bounded(cfg.ArgonTime, 1, 10)),
		Parallelism: uint8(bounded(cfg.ArgonParallelism, 1, 255)),
		SaltLen:     uint32(bounded(cfg.ArgonSaltLen, 8, 64)),
		KeyLen:      uint32(bounded(cfg.ArgonKeyLen, 16, 64)),
	}
}

func (p ArgonParams) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
}

// HashPassword returns a PHC string: $argon2id$v=19$m=..,t=..,p=..$salt$key.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	params := ParamsFromConfig(cfg)
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	b64 := base64.RawStdEncoding
	return strings.Join([]string{
		"",
		argonID,
		fmt.Sprintf("v=%d", argon2.Version),
		fmt.Sprintf("m=%d,t=%d,p=%d", params.Memory, params.Time, params.Parallelism),
		b64.EncodeToString(salt),
		b64.EncodeToString(params.derive(password, salt)),
	}, "$"), nil
}

// VerifyPassword reports whether password matches encoded. ErrInvalidHash is
// returned only for a malformed hash, never for a wrong password.
func VerifyPassword(password, encoded string) (bool, error) {
	params, salt, key, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(key, params.derive(password, salt)) == 1, nil
}

// NeedsRehash reports whether encoded was produced with costs other than the
// current configuration. Malformed hashes always need a rehash.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	have, _, _, err := parsePHC(encoded)
	if err != nil {
		return true
	}
	return have != ParamsFromConfig(cfg)
}

func parsePHC(encoded string) (ArgonParams, []byte, []byte, error) {
	var params ArgonParams
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != argonID {
		return params, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return params, nil, nil, ErrInvalidHash
	}
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &params.Parallelism); err != nil {
		return params, nil, nil, ErrInvalidHash
	}

	b64 := base64.RawStdEncoding
	salt, saltErr := b64.DecodeString(fields[4])
	key, keyErr := b64.DecodeString(fields[5])
	if saltErr != nil || keyErr != nil || len(salt) == 0 || len(key) == 0 {
		return params, nil, nil, ErrInvalidHash
	}
	params.SaltLen = uint32(len(salt))
	params.KeyLen = uint32(len(key))
	return params, salt, key, nil
}

func bounded(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
