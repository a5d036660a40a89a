package keywords

import (
	"sort"
	"strings"
)

// Survey answers offered by the interest questionnaire.
const (
	AnswerData     = "Analyzing data and patterns"
	AnswerDesign   = "Creating visual designs / art"
	AnswerProblems = "Solving complex problems"
	AnswerTeaching = "Helping and teaching"
	AnswerWeb      = "Building websites or applications"
	AnswerBusiness = "Starting projects or business"
)

// Answers lists the survey answers in display order.
var Answers = []string{AnswerData, AnswerDesign, AnswerProblems, AnswerTeaching, AnswerWeb, AnswerBusiness}

// Generator turns ranked survey answers into search keywords.
type Generator interface {
	Generate(orderedInterests []string) []string
}

var defaultKeywords = map[string][]string{
	AnswerData:     {"data analysis", "statistics", "machine learning"},
	AnswerDesign:   {"design", "graphics", "ui", "ux"},
	AnswerProblems: {"algorithms", "logic", "theory"},
	AnswerTeaching: {"education", "mentorship", "communication"},
	AnswerWeb:      {"web development", "frontend", "backend", "software engineering"},
	AnswerBusiness: {"entrepreneurship", "product", "leadership", "management"},
}

// DefaultSuggester concatenates each answer's keywords in answer order.
// Unknown answers are passed through as their own keyword.
type DefaultSuggester struct{}

func (DefaultSuggester) Generate(orderedInterests []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, answer := range orderedInterests {
		answer = strings.TrimSpace(answer)
		if answer == "" {
			continue
		}
		words, ok := defaultKeywords[answer]
		if !ok {
			words = []string{answer}
		}
		for _, w := range words {
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}

type weightedTerm struct {
	term   string
	weight int
}

var weightedKeywords = map[string][]weightedTerm{
	AnswerData:     {{"data analysis", 10}, {"science", 9}, {"statistics", 8}, {"machine learning", 7}},
	AnswerDesign:   {{"design", 10}, {"innovation", 9}, {"film", 8}, {"graphics", 7}},
	AnswerProblems: {{"algorithms", 10}, {"logic", 9}, {"math", 8}, {"theory", 7}},
	AnswerTeaching: {{"education", 10}, {"mentorship", 9}, {"social work", 8}, {"communication", 7}},
	AnswerWeb:      {{"web development", 10}, {"software engineering", 9}, {"frontend", 7}, {"backend", 7}},
	AnswerBusiness: {{"entrepreneurship", 10}, {"product", 9}, {"leadership", 8}, {"management", 7}},
}

const (
	unknownAnswerWeight = 5
	weightedLimit       = 6
)

// WeightedGenerator scores keywords by base weight times answer position
// (first answer counts most) and returns the top six.
type WeightedGenerator struct{}

func (WeightedGenerator) Generate(orderedInterests []string) []string {
	answers := make([]string, 0, len(orderedInterests))
	for _, a := range orderedInterests {
		if a = strings.TrimSpace(a); a != "" {
			answers = append(answers, a)
		}
	}

	scores := make(map[string]int)
	for i, answer := range answers {
		position := len(answers) - i
		terms, ok := weightedKeywords[answer]
		if !ok {
			terms = []weightedTerm{{answer, unknownAnswerWeight}}
		}
		for _, t := range terms {
			scores[t.term] += t.weight * position
		}
	}

	ranked := make([]string, 0, len(scores))
	for term := range scores {
		ranked = append(ranked, term)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	if len(ranked) > weightedLimit {
		ranked = ranked[:weightedLimit]
	}
	return ranked
}

// Interests returns interests unchanged when set, otherwise the generated
// keywords for answers joined by ", ".
func Interests(interests string, answers []string, gen Generator) string {
	if strings.TrimSpace(interests) != "" || len(answers) == 0 {
		return interests
	}
	if gen == nil {
		gen = DefaultSuggester{}
	}
	return strings.Join(gen.Generate(answers), ", ")
}
