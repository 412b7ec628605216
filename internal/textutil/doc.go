// Package textutil provides text helpers for building filesystem-safe names.
//
// The primary use cases are:
//   - Folding a free-form batch subject into an ASCII slug
//   - Deriving a short, stable hash token from a source URL
//
// Slugs are ASCII-only, contain only word characters, hyphens and
// underscores, and never exceed MaxSlugLength bytes.
package textutil
