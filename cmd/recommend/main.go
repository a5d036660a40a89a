package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"course-planner/internal/ai"
	"course-planner/internal/keywords"
	"course-planner/internal/recommend"
)

func main() {
	var (
		interests = flag.String("interests", "", "Free-text interests sent to the model")
		completed = flag.String("completed", "", "Comma-separated completed course codes")
		answers   multiFlag
		weighted  = flag.Bool("weighted", false, "Rank survey keywords by answer position")
		apiKey    = flag.String("key", "", "Gemini API key (env GEMINI_API_KEY)")
		model     = flag.String("model", "", "Gemini model (env GEMINI_MODEL)")
		why       = flag.String("why", "", "Print the rationale for this course code after recommending")
		timeout   = flag.Duration("timeout", ai.DefaultTimeout, "Request timeout")
		grounding = flag.Bool("search", true, "Enable Google Search grounding")
		dumpPath  = flag.String("debug-dump", "", "Write the raw model response to this file")
		verbose   = flag.Bool("v", false, "Log pipeline state transitions")
	)
	flag.Var(&answers, "survey", "Survey answer in rank order (repeatable)")
	flag.Parse()

	logrus.SetOutput(os.Stderr)
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}
	loadEnvDefaults(apiKey, model)

	var gen keywords.Generator = keywords.DefaultSuggester{}
	if *weighted {
		gen = keywords.WeightedGenerator{}
	}
	query := keywords.Interests(*interests, answers, gen)

	client := ai.NewClient(ai.Config{
		Model:           *model,
		Timeout:         *timeout,
		SearchGrounding: *grounding,
		DebugDumpPath:   *dumpPath,
	})
	service := recommend.NewService(recommend.Config{
		Sender: client,
		Observer: func(evt recommend.StateEvent) {
			logrus.WithFields(logrus.Fields{"run_id": evt.RunID, "state": evt.State}).Debug("state change")
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+5*time.Second)
	defer cancel()

	start := time.Now()
	records, err := service.Recommend(ctx, query, splitCodes(*completed), *apiKey)
	client.WaitDumps()
	if err != nil {
		logrus.Fatalf("recommend: %v", err)
	}
	logrus.WithFields(logrus.Fields{
		"courses":  len(records),
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("recommendation complete")

	out := map[string]any{"interests": strings.TrimSpace(query), "courses": records}
	if len(records) == 0 {
		out["message"] = recommend.MsgNoCourses
	}
	if code := strings.TrimSpace(*why); code != "" {
		msg, _ := service.Explain(code)
		out["rationale"] = map[string]string{"course_code": code, "text": msg}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		logrus.Fatalf("write output: %v", err)
	}
}

func loadEnvDefaults(apiKey, model *string) {
	if strings.TrimSpace(*apiKey) == "" {
		*apiKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	if strings.TrimSpace(*model) == "" {
		*model = strings.TrimSpace(os.Getenv("GEMINI_MODEL"))
	}
}

func splitCodes(value string) []string {
	var codes []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			codes = append(codes, part)
		}
	}
	return codes
}

type multiFlag []string

func (m *multiFlag) String() string {
	return strings.Join(*m, ",")
}

func (m *multiFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}
