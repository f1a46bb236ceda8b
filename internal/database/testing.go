package database

import (
	"context"
	"database/sql"
	"os"
	"testing"
)

// TestURLEnv names the variable pointing tests at a scratch PostgreSQL
const TestURLEnv = "CICLOTECA_TEST_DATABASE_URL"

// OpenForTest connects to the test database or skips the test
func OpenForTest(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv(TestURLEnv)
	if url == "" {
		t.Skipf("%s not set, skipping PostgreSQL test", TestURLEnv)
	}

	db, err := Open(context.Background(), url)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
