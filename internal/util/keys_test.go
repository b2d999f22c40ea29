package util

import "testing"

func TestLockKey(t *testing.T) {
	if got := LockKey("foo"); got != "stockpile_lock::foo" {
		t.Fatalf("LockKey = %q", got)
	}
}
