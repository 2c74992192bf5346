package util

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/pbkdf2"
)

const (
	KeyLen        = 32
	SaltLen       = 32
	NonceLen      = 16
	TagLen        = 16
	KDFIterations = 100_000
)

var (
	// ErrIntegrity is returned when an authenticated-encryption tag does not verify.
	ErrIntegrity = errors.New("ciphertext failed authentication")
	// ErrFormat is returned when a stored blob cannot contain nonce+tag or is not valid text encoding.
	ErrFormat = errors.New("malformed ciphertext blob")
)

// voteKeySalt is fixed so the vote key is reproduced across restarts without being stored.
var voteKeySalt = sha256.Sum256([]byte("university-voting-portal-salt"))

// DeriveKey stretches secret with PBKDF2-SHA256. A random salt is generated
// when salt is empty; the caller must keep it to derive the same key again.
func DeriveKey(secret string, salt []byte) ([]byte, []byte, error) {
	if len(salt) == 0 {
		salt = make([]byte, SaltLen)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, fmt.Errorf("generate salt: %w", err)
		}
	}
	key := pbkdf2.Key([]byte(secret), salt, KDFIterations, KeyLen, sha256.New)
	return key, salt, nil
}

// DeriveVoteKey returns the process-wide ballot encryption key for secret.
func DeriveVoteKey(secret string) []byte {
	return pbkdf2.Key([]byte(secret), voteKeySalt[:], KDFIterations, KeyLen, sha256.New)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, NonceLen)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return aead, nil
}

// Encrypt seals plaintext with AES-256-GCM and returns text-encoded nonce|tag|ciphertext.
func Encrypt(plaintext, key []byte) (string, error) {
	return EncryptWithContext(plaintext, key, nil)
}

// EncryptWithContext is Encrypt with associated data bound into the tag.
// The same context must be presented to DecryptWithContext.
func EncryptWithContext(plaintext, key, context []byte) (string, error) {
	aead, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, NonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}

	// Seal yields ciphertext|tag; the stored layout puts the tag first.
	sealed := aead.Seal(nil, nonce, plaintext, context)
	body, tag := sealed[:len(sealed)-TagLen], sealed[len(sealed)-TagLen:]

	blob := make([]byte, 0, NonceLen+len(sealed))
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, body...)
	return EncodeText(blob), nil
}

// Decrypt reverses Encrypt.
func Decrypt(blob string, key []byte) ([]byte, error) {
	return DecryptWithContext(blob, key, nil)
}

// DecryptWithContext reverses EncryptWithContext.
func DecryptWithContext(blob string, key, context []byte) ([]byte, error) {
	raw, err := DecodeText(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if len(raw) < NonceLen+TagLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrFormat, len(raw))
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := raw[:NonceLen]
	tag := raw[NonceLen : NonceLen+TagLen]
	body := raw[NonceLen+TagLen:]

	sealed := make([]byte, 0, len(body)+TagLen)
	sealed = append(sealed, body...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, context)
	if err != nil {
		return nil, ErrIntegrity
	}
	return plaintext, nil
}

// Canonicalize serializes payload as compact JSON with object keys sorted.
// Strings and byte slices are taken verbatim.
func Canonicalize(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case string:
		return []byte(p), nil
	case []byte:
		return p, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	// round-trip through generic values so struct field order does not matter
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("normalize payload: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Sign returns the hex HMAC-SHA256 of the canonical form of payload.
func Sign(payload any, secret []byte) (string, error) {
	data, err := Canonicalize(payload)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the signature of payload and compares it in constant time.
func Verify(payload any, signature string, secret []byte) bool {
	expected, err := Sign(payload, secret)
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(expected)
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}

// EncodeText is standard padded base64.
func EncodeText(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeText reverses EncodeText.
func DecodeText(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// RandomDigits returns a uniformly random decimal code of n digits with no leading zero.
func RandomDigits(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n-1)), nil)
	span := new(big.Int).Mul(low, big.NewInt(9))
	v, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return v.Add(v, low).String(), nil
}
