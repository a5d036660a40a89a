package recommend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"course-planner/internal/ai"
	"course-planner/internal/course"
)

type fakeSender struct {
	mu      sync.Mutex
	replies []ai.Response
	errs    []error
	calls   int
	prompts []string
}

func (f *fakeSender) Send(_ context.Context, prompt, _ string) (ai.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return ai.Response{}, err
	}
	return f.replies[i], nil
}

type memoryHistory struct {
	mu      sync.Mutex
	reports []Report
}

func (m *memoryHistory) SaveReport(_ context.Context, r Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return nil
}

// envelope wraps answer the way generateContent does.
func envelope(t *testing.T, answer string) []byte {
	t.Helper()
	body := map[string]any{
		"candidates": []any{
			map[string]any{
				"content":      map[string]any{"parts": []any{map[string]any{"text": answer}}},
				"finishReason": "STOP",
			},
		},
	}
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return data
}

func collect(events *[]StateEvent) Observer {
	var mu sync.Mutex
	return func(evt StateEvent) {
		mu.Lock()
		*events = append(*events, evt)
		mu.Unlock()
	}
}

func states(events []StateEvent) []State {
	out := make([]State, 0, len(events))
	for _, e := range events {
		out = append(out, e.State)
	}
	return out
}

func equalStates(a, b []State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRecommendHappyPath(t *testing.T) {
	answer := "```json\n[" +
		`{"course_code":"CSC207","course_name":"Software Design","course_rank":1,"course_keywords":"oop","explanation":"You like building apps."},` +
		`{"course_code":"CSC309","course_name":"Web Programming","course_rank":"2","explanation":"Web focus."},` +
		`{"course_code":"CSC207","course_rank":5,"explanation":"duplicate"}` +
		"]\n```"
	sender := &fakeSender{replies: []ai.Response{{Body: envelope(t, answer)}}}
	history := &memoryHistory{}
	var events []StateEvent
	svc := NewService(Config{Sender: sender, Observer: collect(&events), History: history})

	records, err := svc.Recommend(context.Background(), "web apps", []string{"CSC108"}, "key")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records got %d: %+v", len(records), records)
	}
	if records[0].Code != "CSC207" || records[0].Rank != 1 || records[0].Keywords != "oop" {
		t.Fatalf("unexpected first record %+v", records[0])
	}
	if records[1].Code != "CSC309" || records[1].Rank != 2 || records[1].Keywords != course.DefaultKeywords {
		t.Fatalf("unexpected second record %+v", records[1])
	}

	want := []State{StateBuilding, StateRequesting, StateExtracting, StateParsing, StateDone}
	if !equalStates(states(events), want) {
		t.Fatalf("expected transitions %v got %v", want, states(events))
	}
	if events[len(events)-1].Records != 2 {
		t.Fatalf("expected done event to carry 2 records got %d", events[len(events)-1].Records)
	}
	for _, e := range events {
		if e.RunID != events[0].RunID || e.RunID == "" {
			t.Fatalf("expected a single non-empty run id across events")
		}
	}

	if len(history.reports) != 1 || history.reports[0].Outcome != "ok" {
		t.Fatalf("expected one ok report got %+v", history.reports)
	}
	if reason, ok := svc.Rationale("CSC207"); !ok || reason != "You like building apps." {
		t.Fatalf("expected cached rationale got %q %v", reason, ok)
	}
}

func TestRecommendFailsFastWithoutNetwork(t *testing.T) {
	tests := []struct {
		name       string
		interests  string
		credential string
		want       error
	}{
		{"blank interests", "  ", "key", ai.ErrInvalidArgument},
		{"blank credential", "math", " ", ai.ErrMissingCredential},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sender := &fakeSender{}
			history := &memoryHistory{}
			var events []StateEvent
			svc := NewService(Config{Sender: sender, Observer: collect(&events), History: history})
			_, err := svc.Recommend(context.Background(), tc.interests, nil, tc.credential)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v got %v", tc.want, err)
			}
			if sender.calls != 0 {
				t.Fatalf("expected no network call, got %d", sender.calls)
			}
			if !equalStates(states(events), []State{StateBuilding, StateFailed}) {
				t.Fatalf("unexpected transitions %v", states(events))
			}
			if len(history.reports) != 1 || history.reports[0].Outcome != "failed" {
				t.Fatalf("expected failed report got %+v", history.reports)
			}
		})
	}
}

func TestRecommendPropagatesTransportFailure(t *testing.T) {
	upstream := &ai.UpstreamError{StatusCode: 503, Body: "overloaded"}
	sender := &fakeSender{errs: []error{upstream}}
	var events []StateEvent
	svc := NewService(Config{Sender: sender, Observer: collect(&events)})

	_, err := svc.Recommend(context.Background(), "math", nil, "key")
	var got *ai.UpstreamError
	if !errors.As(err, &got) || got.StatusCode != 503 {
		t.Fatalf("expected upstream 503 got %v", err)
	}
	if sender.calls != 1 {
		t.Fatalf("expected exactly one call, got %d", sender.calls)
	}
	if !equalStates(states(events), []State{StateBuilding, StateRequesting, StateFailed}) {
		t.Fatalf("unexpected transitions %v", states(events))
	}
}

func TestRecommendBlockedIsSoftEmpty(t *testing.T) {
	sender := &fakeSender{replies: []ai.Response{{
		Body:        []byte(`{"candidates":[{"finishReason": "RECITATION"}]}`),
		Blocked:     true,
		BlockReason: "RECITATION",
	}}}
	history := &memoryHistory{}
	var events []StateEvent
	svc := NewService(Config{Sender: sender, Observer: collect(&events), History: history})

	records, err := svc.Recommend(context.Background(), "film", nil, "key")
	if err != nil {
		t.Fatalf("expected no error got %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Fatalf("expected empty non-nil list got %#v", records)
	}
	if !equalStates(states(events), []State{StateBuilding, StateRequesting, StateDone}) {
		t.Fatalf("expected blocked call to skip parsing, got %v", states(events))
	}
	if history.reports[0].Outcome != "blocked" || history.reports[0].BlockReason != "RECITATION" {
		t.Fatalf("unexpected report %+v", history.reports[0])
	}
}

func TestRecommendBlockedEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[]},"finishReason": "RECITATION"}]}`))
	}))
	defer srv.Close()

	svc := NewService(Config{Sender: ai.NewClient(ai.Config{BaseURL: srv.URL})})
	records, err := svc.Recommend(context.Background(), "film", nil, "key")
	if err != nil {
		t.Fatalf("expected soft empty got %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records got %d", len(records))
	}
}

func TestRationaleCacheLifecycle(t *testing.T) {
	sender := &fakeSender{replies: []ai.Response{
		{Body: envelope(t, `[{"course_code":"X","explanation":"R"}]`)},
		{Body: envelope(t, `[{"course_code":"Y","explanation":"S"}]`)},
	}}
	svc := NewService(Config{Sender: sender})

	if _, ok := svc.Rationale("X"); ok {
		t.Fatalf("expected no rationale before any call")
	}
	if _, err := svc.Recommend(context.Background(), "a", nil, "key"); err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if reason, ok := svc.Rationale("X"); !ok || reason != "R" {
		t.Fatalf("expected R got %q %v", reason, ok)
	}
	if _, err := svc.Recommend(context.Background(), "b", nil, "key"); err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if _, ok := svc.Rationale("X"); ok {
		t.Fatalf("expected X to be cleared by the second call")
	}
	if reason, ok := svc.Rationale("Y"); !ok || reason != "S" {
		t.Fatalf("expected S got %q %v", reason, ok)
	}
}

func TestFailedCallClearsCache(t *testing.T) {
	sender := &fakeSender{
		replies: []ai.Response{{Body: envelope(t, `[{"course_code":"X","explanation":"R"}]`)}, {}},
		errs:    []error{nil, &ai.TransportError{Op: "request", Err: context.DeadlineExceeded}},
	}
	svc := NewService(Config{Sender: sender})
	if _, err := svc.Recommend(context.Background(), "a", nil, "key"); err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if _, err := svc.Recommend(context.Background(), "a", nil, "key"); err == nil {
		t.Fatalf("expected transport error")
	}
	if _, ok := svc.Rationale("X"); ok {
		t.Fatalf("expected cache to be cleared at the start of the failed call")
	}
}

func TestRecommendIsolatesMalformedRecord(t *testing.T) {
	answer := `[{"course_code":"A","explanation":"a"},{"course_code":"B","explanation":"b",{"course_code":"C","explanation":"c"}]`
	sender := &fakeSender{replies: []ai.Response{{Body: envelope(t, answer)}}}
	svc := NewService(Config{Sender: sender})
	records, err := svc.Recommend(context.Background(), "x", nil, "key")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(records) != 2 || records[0].Code != "A" || records[1].Code != "C" {
		t.Fatalf("expected A and C got %+v", records)
	}
}

func TestExplainMessages(t *testing.T) {
	svc := NewService(Config{Sender: &fakeSender{}})
	if msg, ok := svc.Explain("  "); ok || msg != MsgInvalidCode {
		t.Fatalf("expected invalid code message got %q", msg)
	}
	if msg, ok := svc.Explain("CSC999"); ok || msg != "No rationale available for CSC999" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestRecommendPromptIsStable(t *testing.T) {
	sender := &fakeSender{replies: []ai.Response{{Body: envelope(t, "[]")}, {Body: envelope(t, "[]")}}}
	svc := NewService(Config{Sender: sender})
	for i := 0; i < 2; i++ {
		if _, err := svc.Recommend(context.Background(), "logic", []string{"MAT137"}, "key"); err != nil {
			t.Fatalf("recommend: %v", err)
		}
	}
	if sender.prompts[0] != sender.prompts[1] {
		t.Fatalf("expected identical prompts for identical input")
	}
}
