package encrypt

import (
	"bytes"
	"compress/gzip"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// Codec prepares journal entries for storage at rest: gzip, then AES-GCM
// when a key is configured.
type Codec struct {
	key []byte
}

// NewCodec creates a codec. An empty key disables encryption.
func NewCodec(key string) *Codec {
	if key == "" {
		return &Codec{}
	}
	return &Codec{key: padKey([]byte(key))}
}

// Encrypted reports whether the codec encrypts
func (c *Codec) Encrypted() bool {
	return len(c.key) > 0
}

// Seal compresses data and encrypts it if a key is set
func (c *Codec) Seal(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, fmt.Errorf("failed to compress data: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	if !c.Encrypted() {
		return buf.Bytes(), nil
	}
	sealed, err := aesGcmEncrypt(buf.Bytes(), c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt data: %w", err)
	}
	return sealed, nil
}

// Open reverses Seal
func (c *Codec) Open(data []byte) ([]byte, error) {
	compressed := data
	if c.Encrypted() {
		plain, err := aesGcmDecrypt(data, c.key)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt data: %w", err)
		}
		compressed = plain
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress data: %w", err)
	}
	return out, nil
}

func aesGcmEncrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func aesGcmDecrypt(ciphertext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, io.ErrUnexpectedEOF
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// padKey truncates or zero-pads key to 32 bytes (AES-256)
func padKey(key []byte) []byte {
	padded := make([]byte, 32)
	copy(padded, key)
	return padded
}
