package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/angelmondragon/kiko-social-backend/pkg/config"
	"golang.org/x/crypto/argon2"
)

// HashPrefix starts every encoded hash produced by HashPassword.
const HashPrefix = "$argon2id$v=19$"

const tempAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

// argonParams are the bounded Argon2id settings embedded in each hash.
type argonParams struct {
	memory  uint32
	passes  uint32
	threads uint8
	saltLen uint32
	keyLen  uint32
}

func boundedParams(cfg config.PasswordConfig) argonParams {
	return argonParams{
		memory:  uint32(within(cfg.ArgonMemoryKB, 8, 512*1024)),
		passes:  uint32(within(cfg.ArgonTime, 1, 10)),
		threads: uint8(within(cfg.ArgonParallelism, 1, 255)),
		saltLen: uint32(within(cfg.ArgonSaltLen, 8, 64)),
		keyLen:  uint32(within(cfg.ArgonKeyLen, 16, 64)),
	}
}

func within(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// HashPassword derives an Argon2id key for password under a fresh salt and
// encodes it in the PHC string format stored on user records.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	p := boundedParams(cfg)

	salt := make([]byte, p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, p.passes, p.memory, p.threads, p.keyLen)

	enc := base64.RawStdEncoding
	return fmt.Sprintf("%sm=%d,t=%d,p=%d$%s$%s",
		HashPrefix, p.memory, p.passes, p.threads,
		enc.EncodeToString(salt), enc.EncodeToString(key)), nil
}

// GenerateTempPassword returns length characters drawn uniformly from an
// alphabet without look-alike glyphs.
func GenerateTempPassword(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive, got %d", length)
	}
	upper := big.NewInt(int64(len(tempAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, upper)
		if err != nil {
			return "", fmt.Errorf("draw character: %w", err)
		}
		out[i] = tempAlphabet[n.Int64()]
	}
	return string(out), nil
}
