package api

import (
	"time"

	"course-planner/internal/course"
	"course-planner/internal/store"
)

// RecommendRequest is the body of POST /api/recommendations. When Interests
// is blank the survey answers are turned into keywords instead.
type RecommendRequest struct {
	Interests        string   `json:"interests"`
	SurveyAnswers    []string `json:"survey_answers"`
	Weighted         bool     `json:"weighted"`
	CompletedCourses []string `json:"completed_courses"`
	APIKey           string   `json:"api_key"`
}

// CourseDTO is the API representation of a course record.
type CourseDTO struct {
	Code              string `json:"course_code"`
	Name              string `json:"course_name"`
	Description       string `json:"course_description"`
	PrerequisiteCodes string `json:"prerequisite_codes"`
	Rank              int    `json:"course_rank"`
	Keywords          string `json:"course_keywords"`
	Rationale         string `json:"explanation"`
}

// RecommendResponse carries the courses for one call.
type RecommendResponse struct {
	Interests string      `json:"interests"`
	Courses   []CourseDTO `json:"courses"`
	Message   string      `json:"message,omitempty"`
}

type RationaleResponse struct {
	Code      string `json:"course_code"`
	Rationale string `json:"rationale"`
}

type KeywordsRequest struct {
	Answers  []string `json:"answers"`
	Weighted bool     `json:"weighted"`
}

type KeywordsResponse struct {
	Keywords  []string `json:"keywords"`
	Interests string   `json:"interests"`
}

// RunDTO is a stored recommendation call.
type RunDTO struct {
	ID          string      `json:"id"`
	Interests   string      `json:"interests"`
	Completed   []string    `json:"completed_courses"`
	Outcome     string      `json:"outcome"`
	BlockReason string      `json:"block_reason,omitempty"`
	Error       string      `json:"error,omitempty"`
	RecordCount int         `json:"record_count"`
	DurationMs  int64       `json:"duration_ms"`
	CreatedAt   time.Time   `json:"created_at"`
	Courses     []CourseDTO `json:"courses,omitempty"`
}

type RunsResponse struct {
	Items []RunDTO `json:"items"`
	Total int64    `json:"total"`
}

type PopularCourseDTO struct {
	Code  string `json:"course_code"`
	Name  string `json:"course_name"`
	Total int    `json:"total"`
}

// CourseFromRecord converts a course record into its DTO.
func CourseFromRecord(rec course.Record) CourseDTO {
	return CourseDTO{
		Code:              rec.Code,
		Name:              rec.Name,
		Description:       rec.Description,
		PrerequisiteCodes: rec.PrerequisiteCodes,
		Rank:              rec.Rank,
		Keywords:          rec.Keywords,
		Rationale:         rec.Rationale,
	}
}

func coursesFromRecords(records []course.Record) []CourseDTO {
	out := make([]CourseDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, CourseFromRecord(rec))
	}
	return out
}

// RunFromModel converts a stored run. Courses are included only when loaded.
func RunFromModel(run store.Run) RunDTO {
	dto := RunDTO{
		ID:          run.ID,
		Interests:   run.Interests,
		Completed:   run.Completed(),
		Outcome:     run.Outcome,
		BlockReason: run.BlockReason,
		Error:       run.Error,
		RecordCount: run.RecordCount,
		DurationMs:  run.DurationMs,
		CreatedAt:   run.CreatedAt,
	}
	if len(run.Courses) > 0 {
		dto.Courses = coursesFromRecords(run.Records())
	}
	return dto
}
