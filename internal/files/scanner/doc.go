// Package scanner discovers the per-entity query files of a project.
//
// A file queries/<entity>.sql replaces the built-in ERP query of that
// entity type. Subdirectories and files with other extensions are ignored.
package scanner
