package course

import "strings"

const (
	// NotFound marks a field the model reply did not contain.
	NotFound = "N/A"
	// DefaultKeywords is used when a record carries no topic tags.
	DefaultKeywords = "General Interest"
	// NotVerified is the placeholder the model is told to use for facts it could not confirm.
	NotVerified = "not verified"
	// DefaultRank applies when the reply has no usable rank.
	DefaultRank = 1
)

// Record is a single course recommendation.
type Record struct {
	Code              string `json:"course_code"`
	Name              string `json:"course_name"`
	Description       string `json:"course_description"`
	PrerequisiteCodes string `json:"prerequisite_codes"`
	Rank              int    `json:"course_rank"`
	Keywords          string `json:"course_keywords"`
	Rationale         string `json:"explanation"`
}

// IsMissing reports whether value is empty or the not-found sentinel.
func IsMissing(value string) bool {
	trimmed := strings.TrimSpace(value)
	return trimmed == "" || strings.EqualFold(trimmed, NotFound)
}

// Unique collapses records by code, keeping the first occurrence and the
// original order. Records without a usable code are dropped.
func Unique(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if IsMissing(rec.Code) {
			continue
		}
		if _, ok := seen[rec.Code]; ok {
			continue
		}
		seen[rec.Code] = struct{}{}
		out = append(out, rec)
	}
	return out
}
