// Package sqlite provides the modernc.org/sqlite backed database layer.
//
// It owns connection management, the embedded goose migrations that create
// and seed the products/suppliers sample database, and a small catalog used
// by the HTTP handlers and the SQL toolkit to inspect and query tables.
package sqlite
