// Package secret seals short secrets with NaCl secretbox so they can be stored and later recovered.
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var (
	// ErrInvalidKey indicates the configured key is not 32 base64-encoded bytes.
	ErrInvalidKey = errors.New("secret key must be 32 bytes, base64 encoded")
	// ErrDecrypt indicates the ciphertext was tampered with or sealed under another key.
	ErrDecrypt = errors.New("unable to open sealed secret")
)

// Box seals and opens secrets under a fixed symmetric key.
type Box struct {
	key [keySize]byte
}

// ParseKey decodes a base64 key (standard or URL alphabet).
func ParseKey(encoded string) (*Box, error) {
	encoded = strings.TrimSpace(encoded)
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		raw, err = base64.URLEncoding.DecodeString(encoded)
	}
	if err != nil || len(raw) != keySize {
		return nil, ErrInvalidKey
	}
	box := &Box{}
	copy(box.key[:], raw)
	return box, nil
}

// GenerateKey returns a fresh random key in the encoding accepted by ParseKey.
func GenerateKey() (string, error) {
	var key [keySize]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key[:]), nil
}

// Seal encrypts plaintext and returns nonce||ciphertext as base64.
func (b *Box) Seal(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &b.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal.
func (b *Box) Open(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrDecrypt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plaintext, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &b.key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}
