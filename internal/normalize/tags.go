package normalize

import (
	"strings"
	"unicode/utf8"

	"github.com/mmeshcher/linkvault/internal/apperror"
)

const MaxTagLength = 50

// TagName trims and lower-cases a tag name. The empty string means "no tag".
func TagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// TagNames normalizes, drops empties and de-duplicates, keeping first-seen order.
func TagNames(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))

	for _, raw := range names {
		name := TagName(raw)
		if name == "" {
			continue
		}
		if utf8.RuneCountInString(name) > MaxTagLength {
			return nil, apperror.InvalidInputf("tag %q exceeds %d characters", name, MaxTagLength)
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	return out, nil
}

// SplitTags parses a comma-separated tag list such as "python, Web,".
func SplitTags(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	return strings.Split(csv, ",")
}
