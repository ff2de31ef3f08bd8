// Package textutil provides text processing utilities for fingerprinting,
// similarity, and path-safe tokens.
//
// The primary use cases are:
//   - Creating word or character-trigram fingerprints from text
//   - Ranking near-miss category names for "did you mean" hints
//   - Sanitizing category names into filesystem-safe directory tokens
package textutil
