// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts stored API tokens with age (filippo.io/age).
//
// Each machine has one X25519 identity; every token file is encrypted
// to that identity's recipient and written ASCII-armored, so the
// files are plain text and survive copy-paste. Identities and
// decrypted plaintext come back as [secret.Buffer] values.
//
// Larger local data, such as the bodies kept in publish history, is
// sealed with XChaCha20-Poly1305 under a key derived from the
// identity (see [DeriveKey] and [SealBlob]).
package sealed
