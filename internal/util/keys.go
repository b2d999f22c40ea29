package util

// LockPrefix namespaces lock markers away from caller-chosen cache keys.
const LockPrefix = "stockpile_lock::"

// LockKey derives the lock key guarding key.
func LockKey(key string) string {
	return LockPrefix + key
}
