package ai

import (
	"fmt"
	"strings"

	"course-planner/internal/course"
)

// noneCompleted renders an empty completed-course list.
const noneCompleted = "none"

// Fields lists the record keys the model is asked to emit, in output order.
var Fields = []string{
	"course_code",
	"course_name",
	"course_description",
	"prerequisite_codes",
	"course_rank",
	"course_keywords",
	"explanation",
}

// BuildPrompt renders the instruction text for a recommendation request.
// Output depends only on its inputs.
func BuildPrompt(interests string, completed []string) (string, error) {
	interests = strings.TrimSpace(interests)
	if interests == "" {
		return "", ErrInvalidArgument
	}

	codes := make([]string, 0, len(completed))
	for _, code := range completed {
		code = strings.TrimSpace(code)
		if code != "" {
			codes = append(codes, code)
		}
	}
	completedText := noneCompleted
	if len(codes) > 0 {
		completedText = strings.Join(codes, ", ")
	}

	builder := &strings.Builder{}
	builder.WriteString("You are a course recommendation assistant for UofT.\n")
	fmt.Fprintf(builder, "Interests: %s\n", interests)
	fmt.Fprintf(builder, "Completed: %s\n", completedText)
	builder.WriteString("Task: Recommend 3-5 valid UofT courses that the student has not completed.\n")
	builder.WriteString("STRICT VERIFICATION: Use the Google Search tool to verify course codes exist in the current academic calendar.\n")
	fmt.Fprintf(builder, "If a prerequisite or other fact cannot be confirmed, write \"%s\" instead of guessing.\n", course.NotVerified)
	builder.WriteString("CRITICAL: Summarize course descriptions in your own words. DO NOT copy text verbatim from the web.\n")
	fmt.Fprintf(builder, "Output a JSON array ONLY. Each element is an object with keys: %s.\n", strings.Join(Fields, ", "))
	builder.WriteString("course_rank is an integer where 1 is the strongest match. course_keywords is a comma separated list of topics.\n")
	builder.WriteString("explanation says why the course fits the interests.\n")
	builder.WriteString("Do NOT use Markdown formatting.\n")
	return builder.String(), nil
}
