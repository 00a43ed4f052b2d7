// Package checksum fingerprints SQL query text.
//
// Two checksums are computed:
//
//   - Raw: SHA-256 of the exact bytes
//   - Normalized: SHA-256 after removing comments, collapsing whitespace and
//     lowercasing everything outside string literals and quoted identifiers
//
// The normalized checksum tells whether a query file differs from the
// built-in query of an entity type in more than formatting.
//
// SHA256 is safe for concurrent use.
package checksum
