package watcher

import "strings"

// UpdateKind is the semantic class of a filesystem change, decided by the
// changed file's suffix.
type UpdateKind int

const (
	GenericUpdate UpdateKind = iota
	StyleUpdate
	ScriptUpdate
	FullReload
)

var scriptSuffixes = []string{".js", ".mjs", ".jsx", ".ts", ".mts", ".tsx"}

func (k UpdateKind) String() string {
	switch k {
	case StyleUpdate:
		return "style"
	case ScriptUpdate:
		return "script"
	case FullReload:
		return "reload"
	default:
		return "generic"
	}
}

// ChangeEvent is a debounced, classified change to a file under the watched
// root. Path is root-relative and always uses forward slashes.
type ChangeEvent struct {
	Kind UpdateKind
	Path string
}

// Classify maps a path to exactly one UpdateKind. Matching is case-sensitive.
func Classify(path string) UpdateKind {
	switch {
	case strings.HasSuffix(path, ".css"):
		return StyleUpdate
	case hasAnySuffix(path, scriptSuffixes):
		return ScriptUpdate
	case strings.HasSuffix(path, ".html"):
		return FullReload
	default:
		return GenericUpdate
	}
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
