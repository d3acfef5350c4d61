package resolver

import "strings"

// NormalizePrefix trims a namespace prefix written as "com.example." or
// "com.example.*" down to "com.example".
func NormalizePrefix(prefix string) string {
	p := strings.TrimSpace(prefix)
	p = strings.TrimSuffix(p, ".*")
	p = strings.TrimSuffix(p, ".")
	if p == "*" {
		return ""
	}
	return p
}

// MatchesPrefix reports whether name starts with the namespace prefix. The
// comparison is textual, so "com.ex" matches "com.example.A". An empty
// prefix matches everything.
func MatchesPrefix(name, prefix string) bool {
	if prefix == "" {
		return true
	}
	return strings.HasPrefix(name, prefix)
}

func segments(name string) int {
	if name == "" {
		return 0
	}
	return strings.Count(name, ".") + 1
}

func parentName(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return name[:i]
}

func lastSegment(name string) string {
	return name[strings.LastIndex(name, ".")+1:]
}
