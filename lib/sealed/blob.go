// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/pastehost/pastehost/lib/secret"
)

// KeySize is the size in bytes of a blob key.
const KeySize = chacha20poly1305.KeySize

// BlobVersion is the first byte of every sealed blob. It is part of
// the authenticated data.
const BlobVersion byte = 0x01

// BlobOverhead is the size a sealed blob adds to its plaintext:
// version byte, XChaCha20-Poly1305 nonce, and tag.
const BlobOverhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// DeriveKey derives a KeySize blob key from master with HKDF-SHA256.
// info separates keys derived for different purposes; changing it
// makes every blob sealed under the old key unreadable.
//
// master is borrowed. The caller closes the returned buffer.
func DeriveKey(master *secret.Buffer, info string) (*secret.Buffer, error) {
	key := make([]byte, KeySize)
	reader := hkdf.New(sha256.New, master.Bytes(), nil, []byte(info))
	if _, err := io.ReadFull(reader, key); err != nil {
		secret.Zero(key)
		return nil, fmt.Errorf("sealed: deriving key: %w", err)
	}
	return secret.NewFromBytes(key)
}

// SealBlob encrypts plaintext with XChaCha20-Poly1305:
//
//	[version: 1 byte] [nonce: 24 bytes] [ciphertext+tag]
//
// binding is authenticated but not stored. OpenBlob fails unless it is
// given the same binding, so a blob cannot be moved to another record.
func SealBlob(plaintext []byte, key *secret.Buffer, binding []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("sealed: %w", err)
	}
	output := make([]byte, 1+chacha20poly1305.NonceSizeX, 1+chacha20poly1305.NonceSizeX+len(plaintext)+aead.Overhead())
	output[0] = BlobVersion
	if _, err := io.ReadFull(rand.Reader, output[1:]); err != nil {
		return nil, fmt.Errorf("sealed: generating nonce: %w", err)
	}
	nonce := output[1:]
	return aead.Seal(output, nonce, plaintext, additionalData(BlobVersion, binding)), nil
}

// OpenBlob reverses SealBlob.
func OpenBlob(blob []byte, key *secret.Buffer, binding []byte) ([]byte, error) {
	if len(blob) < BlobOverhead {
		return nil, fmt.Errorf("sealed: blob is %d bytes, minimum is %d", len(blob), BlobOverhead)
	}
	if blob[0] != BlobVersion {
		return nil, fmt.Errorf("sealed: blob version %d is not supported", blob[0])
	}
	aead, err := chacha20poly1305.NewX(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("sealed: %w", err)
	}
	nonce := blob[1 : 1+chacha20poly1305.NonceSizeX]
	plaintext, err := aead.Open(nil, nonce, blob[1+chacha20poly1305.NonceSizeX:], additionalData(blob[0], binding))
	if err != nil {
		return nil, fmt.Errorf("sealed: opening blob (wrong key, tampered data, or wrong binding): %w", err)
	}
	return plaintext, nil
}

func additionalData(version byte, binding []byte) []byte {
	data := make([]byte, 1+len(binding))
	data[0] = version
	copy(data[1:], binding)
	return data
}
