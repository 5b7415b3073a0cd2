package shared

import (
	"testing"
)

func TestMigrationRunner(t *testing.T) {
	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		version, dirty, err := MigrationVersion(db)
		if err != nil {
			t.Fatalf("failed to read version: %v", err)
		}
		if dirty {
			t.Error("expected clean schema after migrations")
		}
		if version != 2 {
			t.Errorf("expected version 2, got %d", version)
		}

		for _, table := range []string{"sessions", "search_history"} {
			if _, err := db.Exec("SELECT 1 FROM " + table + " LIMIT 1"); err != nil {
				t.Errorf("%s table should exist after migrations: %v", table, err)
			}
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		version, _, err = MigrationVersion(db)
		if err != nil {
			t.Fatalf("failed to read version after rollback: %v", err)
		}
		if version != 1 {
			t.Errorf("expected version 1 after rollback, got %d", version)
		}

		if _, err := db.Exec("SELECT 1 FROM search_history LIMIT 1"); err == nil {
			t.Error("search_history should be dropped after rollback")
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations first time: %v", err)
		}

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
		}
	})

	t.Run("Rollback On Empty Database", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RollbackMigration(db); err == nil {
			t.Error("expected error rolling back an unmigrated database")
		}
	})
}
