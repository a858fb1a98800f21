// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration for pastehost's on-disk
// records.
//
// JSON is for everything that leaves the process: backend APIs, CLI
// --json output, and the config file. CBOR is for blobs pastehost
// writes for itself, such as the manifest snapshot stored with each
// history entry. Encoding uses Core Deterministic Encoding (RFC 8949
// §4.2), so equal values always produce equal bytes.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
package codec
