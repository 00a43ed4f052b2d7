// Package source reads ERP data through database/sql.
//
// Supported drivers are SQL Server (github.com/microsoft/go-mssqldb), PostgreSQL
// (github.com/lib/pq) and SQLite (modernc.org/sqlite). Rows are returned
// positionally as driver values; typing happens in the entity package.
package source
