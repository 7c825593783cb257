// File: cmd/schema-setup/main_test.go
package main

import (
	"regexp"
	"strings"
	"testing"
)

// The stores write explicit NULLs into these columns: MarkSent and
// HandleFailure clear last_error/lock_token/locked_at, and InsertEmailDelivery
// passes nil message_id/error/sent_at. The schema must keep them nullable or
// every successful finalize fails with a not-null violation.
func TestSchemaKeepsClearedColumnsNullable(t *testing.T) {
	cols := []string{"last_error", "lock_token", "locked_at", "message_id", "error", "sent_at"}
	for _, col := range cols {
		t.Run(col, func(t *testing.T) {
			re := regexp.MustCompile(`(?m)^\s*` + col + `\s+(.+)$`)
			matches := re.FindAllStringSubmatch(schema, -1)
			if len(matches) == 0 {
				t.Fatalf("column %s not found in schema", col)
			}
			for _, m := range matches {
				if strings.Contains(m[1], "NOT NULL") {
					t.Errorf("column %s is NOT NULL but the store writes NULL into it", col)
				}
			}
		})
	}
}
