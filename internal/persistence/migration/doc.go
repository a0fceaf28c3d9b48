// Package migration applies versioned SQL files to a database and records
// them in a schema_migrations table.
//
// Migration files are named {version}_{description}.sql, where version is
// numeric and versions form a gap-free sequence. Files are read from an
// fs.FS so backends can embed their schema. Each file runs in its own
// transaction; statements are split on semicolons and comment-only lines
// are dropped.
package migration
