package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestTruncateStatementCoversUsers(t *testing.T) {
	stmt := truncateStatement(auditTables)
	if !strings.HasPrefix(stmt, "TRUNCATE TABLE login_logs,") {
		t.Fatalf("unexpected statement: %s", stmt)
	}
	if !strings.HasSuffix(stmt, "users RESTART IDENTITY CASCADE") {
		t.Fatalf("users should be cleared last: %s", stmt)
	}
}

func TestConfirmed(t *testing.T) {
	cases := map[string]bool{
		"yes\n":   true,
		" yes \n": true,
		"yes":     true,
		"y\n":     false,
		"":        false,
	}
	for input, want := range cases {
		var out bytes.Buffer
		if got := confirmed(strings.NewReader(input), &out); got != want {
			t.Errorf("confirmed(%q) = %v, want %v", input, got, want)
		}
	}
}
