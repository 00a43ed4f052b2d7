// Package files groups the project file handling of erpsync.
//
//   - scanner: discovers per-entity query files under <project>/queries
package files
