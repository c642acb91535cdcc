package pointers

// Int returns a pointer to v, for optional JSON fields like event
// progress.
func Int(v int) *int { return &v }
