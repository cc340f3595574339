// Package database opens the SQLite file that holds SkyLink's persistent
// state and applies versioned schema migrations to it.
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// The connection is opened with a busy timeout and, when configured, WAL
// journaling. The pool is limited to one connection. All queries use
// placeholders and the database file is created with mode 0600.
//
// Migrations come in up/down pairs named YYYYMMDD_HHMMSS_description and are
// recorded in the schema_migrations table.
package database
