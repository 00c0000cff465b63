package main

import "testing"

func TestConnString(t *testing.T) {
	t.Setenv("DB_USER", "recon")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_NAME", "melitbc")

	want := "user=recon password=secret host=localhost port=5432 dbname=melitbc sslmode=disable"
	if got := connString(); got != want {
		t.Errorf("connString() = %q, want %q", got, want)
	}
}

func TestInitDB_OpensWithoutConnecting(t *testing.T) {
	t.Setenv("DB_HOST", "nonexistent-host")

	// sql.Open validates the DSN only; reachability is checked by the ping
	// in main before any service starts.
	db, err := InitDB()
	if err != nil {
		t.Fatalf("InitDB failed on an unreachable host: %v", err)
	}
	db.Close()
}
