package recommend

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"course-planner/internal/ai"
	"course-planner/internal/course"
	"course-planner/internal/extract"
	"course-planner/internal/metrics"
	"course-planner/internal/util"
)

const (
	MsgInvalidCode = "Invalid course code."
	MsgNoCourses   = "No courses found for these interests."
)

// NoRationaleMessage is shown when a code has no cached explanation.
func NoRationaleMessage(code string) string {
	return "No rationale available for " + code
}

// Sender performs the single outbound generateContent call.
type Sender interface {
	Send(ctx context.Context, prompt, credential string) (ai.Response, error)
}

// Report summarises a finished call for history storage.
type Report struct {
	RunID       string
	Interests   string
	Completed   []string
	Outcome     string
	BlockReason string
	Err         error
	Records     []course.Record
	Elapsed     time.Duration
	CreatedAt   time.Time
}

// History persists reports. Failures are logged and otherwise ignored.
type History interface {
	SaveReport(ctx context.Context, report Report) error
}

// Config wires a Service. Only Sender is required.
type Config struct {
	Sender   Sender
	Parser   *extract.Parser
	Cache    *RationaleCache
	Observer Observer
	History  History
}

// Service runs the recommendation pipeline and answers rationale lookups
// from the cache filled by the most recent call.
type Service struct {
	sender   Sender
	parser   *extract.Parser
	cache    *RationaleCache
	observer Observer
	history  History

	// mu serializes Recommend so a cache clear never interleaves with another call's writes.
	mu sync.Mutex
}

func NewService(cfg Config) *Service {
	if cfg.Parser == nil {
		cfg.Parser = extract.NewParser()
	}
	if cfg.Cache == nil {
		cfg.Cache = NewRationaleCache()
	}
	return &Service{
		sender:   cfg.Sender,
		parser:   cfg.Parser,
		cache:    cfg.Cache,
		observer: cfg.Observer,
		history:  cfg.History,
	}
}

// Recommend builds the prompt, sends it, and turns the reply into unique
// course records. A content-policy rejection yields an empty list and no error.
func (s *Service) Recommend(ctx context.Context, interests string, completed []string, credential string) ([]course.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := &runState{
		svc:    s,
		id:     uuid.NewString(),
		timer:  util.StartTimer(),
		report: Report{Interests: strings.TrimSpace(interests), Completed: append([]string(nil), completed...), CreatedAt: time.Now().UTC()},
	}
	run.report.RunID = run.id

	s.cache.Clear()
	run.enter(StateBuilding)
	logrus.WithFields(logrus.Fields{
		"run_id":          run.id,
		"interest_length": len(run.report.Interests),
		"completed":       len(completed),
	}).Info("recommendation requested")

	prompt, err := ai.BuildPrompt(interests, completed)
	if err != nil {
		return nil, run.fail(ctx, err)
	}
	if strings.TrimSpace(credential) == "" {
		return nil, run.fail(ctx, ai.ErrMissingCredential)
	}
	run.lap("build")

	run.enter(StateRequesting)
	resp, err := s.sender.Send(ctx, prompt, credential)
	run.lap("request")
	if err != nil {
		return nil, run.fail(ctx, err)
	}
	if resp.Blocked {
		logrus.WithFields(logrus.Fields{
			"run_id": run.id,
			"reason": resp.BlockReason,
		}).Warn("gemini blocked the response; returning no courses")
		run.report.BlockReason = resp.BlockReason
		records := []course.Record{}
		run.done(ctx, metrics.OutcomeBlocked, records)
		return records, nil
	}

	run.enter(StateExtracting)
	text := extract.Extract(resp.Body)
	run.lap("extract")

	run.enter(StateParsing)
	result := s.parser.Parse(text)
	metrics.RecordSkipped(result.Skipped)
	records := Dedupe(result.Records, s.cache)
	run.lap("parse")
	if result.Skipped > 0 {
		logrus.WithFields(logrus.Fields{
			"run_id":  run.id,
			"skipped": result.Skipped,
			"parsed":  len(result.Records),
		}).Warn("dropped unreadable record fragments")
	}

	outcome := metrics.OutcomeOK
	if len(records) == 0 {
		outcome = metrics.OutcomeEmpty
	}
	run.done(ctx, outcome, records)
	return records, nil
}

// Rationale returns the cached explanation for code from the latest call.
func (s *Service) Rationale(code string) (string, bool) {
	return s.cache.Lookup(strings.TrimSpace(code))
}

// Explain answers a rationale lookup with a user-facing message.
func (s *Service) Explain(code string) (string, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return MsgInvalidCode, false
	}
	if reason, ok := s.cache.Lookup(code); ok {
		return reason, true
	}
	return NoRationaleMessage(code), false
}

type runState struct {
	svc    *Service
	id     string
	timer  *util.Timer
	state  State
	report Report
}

func (r *runState) enter(state State) {
	r.state = state
	r.emit(StateEvent{State: state})
}

func (r *runState) emit(evt StateEvent) {
	if r.svc.observer == nil {
		return
	}
	evt.RunID = r.id
	evt.At = time.Now().UTC()
	r.svc.observer(evt)
}

func (r *runState) lap(stage string) {
	metrics.RecordStage(stage, r.timer.Lap(stage))
}

func (r *runState) fail(ctx context.Context, err error) error {
	from := r.state
	r.state = StateFailed
	r.report.Outcome = metrics.OutcomeFailed
	r.report.Err = err
	r.report.Elapsed = r.timer.Elapsed()
	metrics.RecordCall(metrics.OutcomeFailed, r.report.Elapsed, 0)

	entry := logrus.WithError(err).WithFields(logrus.Fields{
		"run_id": r.id,
		"stage":  string(from),
	})
	if errors.Is(err, ai.ErrInvalidArgument) || errors.Is(err, ai.ErrMissingCredential) {
		entry.Info("recommendation rejected")
	} else {
		entry.Warn("recommendation failed")
	}
	r.emit(StateEvent{State: StateFailed, Error: err.Error()})
	r.save(ctx)
	return err
}

func (r *runState) done(ctx context.Context, outcome string, records []course.Record) {
	r.state = StateDone
	r.report.Outcome = outcome
	r.report.Records = records
	r.report.Elapsed = r.timer.Elapsed()
	metrics.RecordCall(outcome, r.report.Elapsed, len(records))

	logrus.WithFields(logrus.Fields{
		"run_id":     r.id,
		"outcome":    outcome,
		"records":    len(records),
		"elapsed_ms": r.report.Elapsed.Milliseconds(),
	}).Info("recommendation complete")
	r.emit(StateEvent{State: StateDone, Records: len(records), BlockReason: r.report.BlockReason})
	r.save(ctx)
}

func (r *runState) save(ctx context.Context) {
	if r.svc.history == nil {
		return
	}
	if err := r.svc.history.SaveReport(context.WithoutCancel(ctx), r.report); err != nil {
		logrus.WithError(err).WithField("run_id", r.id).Warn("failed to persist recommendation run")
	}
}
