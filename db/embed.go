// Package db provides embedded database migrations and seed data.
package db

import "embed"

// Migrations holds the goose SQL migrations under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations that goose reads.
const MigrationsDir = "migrations"

// Seed holds the default catalog and discount rules.
//
//go:embed seed/*.json
var Seed embed.FS

// Paths of the default seed files inside Seed.
const (
	SeedProducts = "seed/products.json"
	SeedRules    = "seed/rules.json"
)
