// Package db embeds the storefront schema so binaries migrate themselves on
// startup without shipping SQL files alongside.
package db

import _ "embed"

// Schema holds the DDL for the catalog, cart, order, checkout session and
// wishlist tables.
//
//go:embed migrations/001_schema.sql
var Schema string
