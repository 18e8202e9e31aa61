package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Supported password hashing algorithms.
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 12

// maxBcryptPasswordLen is the input limit of bcrypt.
const maxBcryptPasswordLen = 72

var (
	ErrPasswordTooLong      = errors.New("password exceeds 72 bytes")
	ErrUnsupportedAlgorithm = errors.New("unsupported password hashing algorithm")
	ErrInvalidCost          = errors.New("invalid password hashing cost")

	errInvalidHashFormat = errors.New("invalid encoded hash format")
)

// PasswordHasher turns plaintext secrets into storable hashes and checks them.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) bool
}

// Hasher hashes new passwords with the configured algorithm and verifies
// stored hashes of any supported algorithm, chosen by the hash prefix.
type Hasher struct {
	primary PasswordHasher
}

// NewHasher returns a Hasher for the named algorithm. cost is the bcrypt
// cost or the Argon2id time parameter; zero selects the default.
func NewHasher(algorithm string, cost int) (*Hasher, error) {
	if cost < 0 {
		return nil, fmt.Errorf("%w: negative cost %d", ErrInvalidCost, cost)
	}
	switch algorithm {
	case AlgorithmBcrypt, "":
		if cost == 0 {
			cost = DefaultBcryptCost
		}
		h, err := NewBcryptHasher(cost)
		if err != nil {
			return nil, err
		}
		return &Hasher{primary: h}, nil
	case AlgorithmArgon2id:
		params := DefaultArgon2Params()
		if cost != 0 {
			params.Time = uint32(cost)
		}
		h, err := NewArgon2Hasher(params)
		if err != nil {
			return nil, err
		}
		return &Hasher{primary: h}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
}

// Hash hashes the password with the configured algorithm.
func (h *Hasher) Hash(password string) (string, error) {
	return h.primary.Hash(password)
}

// Verify reports whether password matches encodedHash. Unknown or malformed
// hashes never match.
func (h *Hasher) Verify(password, encodedHash string) bool {
	switch {
	case strings.HasPrefix(encodedHash, "$argon2id$"):
		return verifyArgon2id(password, encodedHash)
	case isBcryptHash(encodedHash):
		return verifyBcrypt(password, encodedHash)
	default:
		return false
	}
}

// BcryptHasher hashes passwords with bcrypt at a fixed cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher. cost must be within bcrypt's
// supported range.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: bcrypt cost %d not in [%d, %d]", ErrInvalidCost, cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Hash generates a salted bcrypt hash. bcrypt embeds the salt and cost in the output.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if len(password) > maxBcryptPasswordLen {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

// Verify compares a plaintext password with a bcrypt hash.
func (h *BcryptHasher) Verify(password, encodedHash string) bool {
	return verifyBcrypt(password, encodedHash)
}

func verifyBcrypt(password, encodedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// Argon2Params configures the Argon2id hashing parameters.
type Argon2Params struct {
	Memory     uint32
	Time       uint32
	Threads    uint8
	SaltLength uint32
	KeyLength  uint32
}

// DefaultArgon2Params returns recommended Argon2id parameters for password hashing.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:     64 * 1024,
		Time:       3,
		Threads:    2,
		SaltLength: 16,
		KeyLength:  32,
	}
}

// Argon2Hasher hashes passwords with Argon2id.
type Argon2Hasher struct {
	params Argon2Params
}

// NewArgon2Hasher creates an Argon2Hasher with the given parameters.
func NewArgon2Hasher(params Argon2Params) (*Argon2Hasher, error) {
	if params.Time < 1 || params.Threads < 1 || params.Memory < 8*uint32(params.Threads) {
		return nil, fmt.Errorf("%w: argon2id m=%d,t=%d,p=%d", ErrInvalidCost, params.Memory, params.Time, params.Threads)
	}
	if params.SaltLength < 8 || params.KeyLength < 16 {
		return nil, fmt.Errorf("%w: argon2id salt or key too short", ErrInvalidCost)
	}
	return &Argon2Hasher{params: params}, nil
}

// Hash returns the Argon2id hash in PHC string format:
// $argon2id$v=19$m=65536,t=3,p=2$<base64-salt>$<base64-hash>
func (h *Argon2Hasher) Hash(password string) (string, error) {
	p := h.params

	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Time,
		p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks password against an Argon2id PHC hash in constant time.
func (h *Argon2Hasher) Verify(password, encodedHash string) bool {
	return verifyArgon2id(password, encodedHash)
}

func verifyArgon2id(password, encodedHash string) bool {
	params, salt, key, err := decodeArgon2id(encodedHash)
	if err != nil {
		return false
	}

	candidate := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, params.KeyLength)

	return subtle.ConstantTimeCompare(key, candidate) == 1
}

// decodeArgon2id parses a PHC-formatted Argon2id hash string.
func decodeArgon2id(encodedHash string) (Argon2Params, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return Argon2Params{}, nil, nil, errInvalidHashFormat
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Argon2Params{}, nil, nil, errInvalidHashFormat
	}

	var params Argon2Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &params.Threads); err != nil {
		return Argon2Params{}, nil, nil, errInvalidHashFormat
	}
	// argon2.IDKey panics on a zero time or thread count.
	if params.Time < 1 || params.Threads < 1 {
		return Argon2Params{}, nil, nil, errInvalidHashFormat
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return Argon2Params{}, nil, nil, errInvalidHashFormat
	}
	params.SaltLength = uint32(len(salt))

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return Argon2Params{}, nil, nil, errInvalidHashFormat
	}
	params.KeyLength = uint32(len(key))

	return params, salt, key, nil
}
