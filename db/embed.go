// Package db provides embedded database schema and seed data.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Listings contains the sample listing catalog used by the seed command.
//
//go:embed seed/listings.json
var Listings []byte
