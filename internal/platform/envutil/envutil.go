package envutil

import (
	"os"
	"strconv"
	"strings"
)

func Bool(name string, def bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// CSVSet parses a comma-separated env var into a membership set, the
// shape PRIORITY_IPS needs for O(1) lookups.
func CSVSet(name string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, p := range CSVList(name) {
		out[p] = struct{}{}
	}
	return out
}

func CSVList(name string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
