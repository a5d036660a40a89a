package keywords

import (
	"reflect"
	"testing"
)

func TestDefaultSuggester(t *testing.T) {
	tests := []struct {
		name    string
		answers []string
		want    []string
	}{
		{"single", []string{AnswerProblems}, []string{"algorithms", "logic", "theory"}},
		{
			"overlap keeps first position",
			[]string{AnswerWeb, AnswerBusiness, AnswerWeb},
			[]string{"web development", "frontend", "backend", "software engineering", "entrepreneurship", "product", "leadership", "management"},
		},
		{"unknown passes through", []string{"Music", " "}, []string{"Music"}},
		{"empty", nil, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DefaultSuggester{}.Generate(tc.answers)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v got %v", tc.want, got)
			}
		})
	}
}

func TestWeightedGeneratorRanksByPosition(t *testing.T) {
	got := WeightedGenerator{}.Generate([]string{AnswerData, AnswerProblems})
	// data terms x2: 20, 18, 16, 14; problem terms x1: 10, 9, 8, 7
	want := []string{"data analysis", "science", "statistics", "machine learning", "algorithms", "logic"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v got %v", want, got)
	}
}

func TestWeightedGeneratorTiesAreAlphabetical(t *testing.T) {
	got := WeightedGenerator{}.Generate([]string{AnswerWeb})
	want := []string{"web development", "software engineering", "backend", "frontend"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v got %v", want, got)
	}
}

func TestWeightedGeneratorUnknownAnswer(t *testing.T) {
	got := WeightedGenerator{}.Generate([]string{"Music", AnswerTeaching})
	// Music: 5x2 = 10, education 10, mentorship 9, social work 8, communication 7
	want := []string{"Music", "education", "mentorship", "social work", "communication"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v got %v", want, got)
	}
}

func TestInterests(t *testing.T) {
	if got := Interests("robots", []string{AnswerData}, nil); got != "robots" {
		t.Fatalf("expected explicit interests to win, got %q", got)
	}
	if got := Interests(" ", []string{AnswerProblems}, nil); got != "algorithms, logic, theory" {
		t.Fatalf("unexpected interests %q", got)
	}
	if got := Interests("", nil, WeightedGenerator{}); got != "" {
		t.Fatalf("expected empty interests got %q", got)
	}
}
