// Package cryptoenvelope implements the secret_str wire format used to pass
// a user's decrypted configuration through the add-on URL path: URL-safe
// base64 of iv(16) || aes-cbc-encrypt(zlib-compress(json)), keyed by a
// process-wide secret. Decryption failure is always non-fatal — callers
// downgrade to an empty configuration rather than propagate the error.
package cryptoenvelope

import (
	"bytes"
	"compress/zlib"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
)

// Envelope encrypts and decrypts JSON payloads under a single process-wide
// secret. The secret is hashed to a 32-byte AES-256 key so callers may pass
// any length of secret material.
type Envelope struct {
	key [32]byte
}

func New(secret string) *Envelope {
	return &Envelope{key: sha256.Sum256([]byte(secret))}
}

// Encrypt compresses and AES-CBC-encrypts payload, returning URL-safe
// base64 text suitable for embedding in a path segment.
func (e *Envelope) Encrypt(payload []byte) (string, error) {
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(payload); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}

	block, err := aes.NewCipher(e.key[:])
	if err != nil {
		return "", err
	}

	plain := pkcsZeroPad(compressed.Bytes(), block.BlockSize())
	iv := make([]byte, block.BlockSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	ciphertext := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plain)

	out := append(append([]byte{}, iv...), ciphertext...)
	return base64.URLEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. It never returns a partially-decoded payload —
// any structural problem (short input, bad padding, corrupt zlib stream)
// surfaces as an error and callers must downgrade to an empty config.
func (e *Envelope) Decrypt(encoded string) ([]byte, error) {
	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(e.key[:])
	if err != nil {
		return nil, err
	}

	blockSize := block.BlockSize()
	if len(raw) < blockSize || (len(raw)-blockSize)%blockSize != 0 {
		return nil, errors.New("cryptoenvelope: malformed ciphertext length")
	}

	iv, ciphertext := raw[:blockSize], raw[blockSize:]
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)
	plain = bytes.TrimRight(plain, "\x00")

	zr, err := zlib.NewReader(bytes.NewReader(plain))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	return io.ReadAll(zr)
}

// Fingerprint returns a short, stable hash of its concatenated inputs,
// used both as the playback cache_key suffix and as a human-opaque
// identifier in logs.
func Fingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	return base64.RawURLEncoding.EncodeToString(sum)[:16]
}

func pkcsZeroPad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	if padLen == blockSize {
		return data
	}
	return append(data, make([]byte, padLen)...)
}
