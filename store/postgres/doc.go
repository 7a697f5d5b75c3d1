// Package postgres implements account.Store on PostgreSQL through the pgx
// database/sql driver, with schema managed by embedded goose migrations.
package postgres
