// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package contenthash computes the content addresses that hosting
// backends use to deduplicate uploads.
//
// The algorithm is a protocol constant of each backend, not a caller
// preference: Netlify and Vercel key files by SHA-1, Cloudflare Pages
// by a 256-bit BLAKE3 digest. Sum is pure and deterministic.
package contenthash

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Algorithm identifies a content-addressing digest.
type Algorithm uint8

const (
	// SHA1 produces a 40-hex-digit digest.
	SHA1 Algorithm = iota + 1

	// SHA256 produces a 64-hex-digit digest.
	SHA256

	// BLAKE3 produces a 64-hex-digit (256-bit output) digest.
	BLAKE3
)

// String returns the lowercase algorithm name.
func (algorithm Algorithm) String() string {
	switch algorithm {
	case SHA1:
		return "sha1"
	case SHA256:
		return "sha256"
	case BLAKE3:
		return "blake3"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(algorithm))
	}
}

// HexLength returns the length of the hex digest Sum produces.
func (algorithm Algorithm) HexLength() int {
	switch algorithm {
	case SHA1:
		return 2 * sha1.Size
	case SHA256, BLAKE3:
		return 64
	default:
		return 0
	}
}

// ParseAlgorithm parses the name returned by String.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "sha1":
		return SHA1, nil
	case "sha256":
		return SHA256, nil
	case "blake3":
		return BLAKE3, nil
	default:
		return 0, fmt.Errorf("contenthash: unknown algorithm %q", name)
	}
}

// Sum returns the lowercase hex digest of data. An unsupported
// algorithm is a programming error and panics.
func Sum(data []byte, algorithm Algorithm) string {
	switch algorithm {
	case SHA1:
		digest := sha1.Sum(data)
		return hex.EncodeToString(digest[:])
	case SHA256:
		digest := sha256.Sum256(data)
		return hex.EncodeToString(digest[:])
	case BLAKE3:
		digest := blake3.Sum256(data)
		return hex.EncodeToString(digest[:])
	default:
		panic(fmt.Sprintf("contenthash: unsupported algorithm %s", algorithm))
	}
}
