// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads pastehost configuration.
//
// Configuration comes from exactly one place: the file named by the
// --config flag, else the file named by PASTEHOST_CONFIG, else the
// built-in [Default]. There is no search for config files in well-known
// locations.
//
// Files ending in .json or .jsonc are parsed as JSON with comments and
// trailing commas; anything else is parsed as YAML. Either way the file
// is merged over the defaults, so it only needs to name what it
// changes.
//
// Path fields support ${HOME}, ${PASTEHOST_ROOT}, and ${VAR:-default}
// expansion after loading. Tokens never live in this file; see
// lib/credstore.
package config
