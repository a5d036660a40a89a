package extract

import (
	"regexp"
	"strings"

	"github.com/goccy/go-json"

	"course-planner/internal/ai"
)

// EmptyArray is returned when the envelope carries no answer text.
const EmptyArray = "[]"

var (
	textMarker     = regexp.MustCompile(`"text"\s*:\s*"`)
	fenceReplacer  = strings.NewReplacer("```json", "", "```JSON", "", "```", "")
	escapeReplacer = strings.NewReplacer(`\"`, `"`, `\n`, "\n", `\t`, "\t", `\r`, "", `\\`, `\`)
)

// Extract pulls the model's answer out of a generateContent envelope and
// narrows it to array-shaped text. The result is not guaranteed to be valid JSON.
func Extract(raw []byte) string {
	text, ok := answerText(raw)
	if !ok {
		return EmptyArray
	}
	return Normalize(text)
}

// Normalize strips Markdown fences and isolates the first '[' through the last ']'.
// Without brackets the trimmed text is returned as-is.
func Normalize(text string) string {
	trimmed := strings.TrimSpace(fenceReplacer.Replace(text))
	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start >= 0 && end > start {
		return trimmed[start : end+1]
	}
	return trimmed
}

func answerText(raw []byte) (string, bool) {
	var envelope ai.GenerateResponse
	if err := json.Unmarshal(raw, &envelope); err == nil {
		builder := &strings.Builder{}
		for _, candidate := range envelope.Candidates {
			for _, p := range candidate.Content.Parts {
				builder.WriteString(p.Text)
			}
			if builder.Len() > 0 {
				return builder.String(), true
			}
		}
	}
	return scanTextField(string(raw))
}

// scanTextField finds the first "text" string in a body that did not decode,
// reading to the closing quote or to the end when the body was cut short.
func scanTextField(body string) (string, bool) {
	loc := textMarker.FindStringIndex(body)
	if loc == nil {
		return "", false
	}
	rest := body[loc[1]:]
	end := len(rest)
	for i := 0; i < len(rest); i++ {
		if rest[i] == '\\' {
			i++
			continue
		}
		if rest[i] == '"' {
			end = i
			break
		}
	}
	return unescape(rest[:end]), true
}

func unescape(value string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+value+`"`), &out); err == nil {
		return out
	}
	return escapeReplacer.Replace(value)
}
