package store

import (
	"strings"
	"time"

	"github.com/goccy/go-json"

	"course-planner/internal/course"
)

// Run is one recommendation call and its outcome.
type Run struct {
	ID            string `gorm:"primaryKey;size:36"`
	Interests     string `gorm:"type:text"`
	CompletedJSON string `gorm:"type:text"`
	Outcome       string `gorm:"size:16;index"`
	BlockReason   string `gorm:"size:64"`
	Error         string `gorm:"type:text"`
	RecordCount   int
	DurationMs    int64
	CreatedAt     time.Time   `gorm:"index"`
	Courses       []RunCourse `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// RunCourse is a course returned by a run, kept in response order.
type RunCourse struct {
	ID                uint   `gorm:"primaryKey"`
	RunID             string `gorm:"size:36;index"`
	Position          int
	Code              string `gorm:"size:32;index"`
	Name              string `gorm:"size:256"`
	Description       string `gorm:"type:text"`
	PrerequisiteCodes string `gorm:"size:256"`
	Rank              int
	Keywords          string `gorm:"size:256"`
	Rationale         string `gorm:"type:text"`
}

// PopularCourse is an aggregate of how often a code has been recommended.
type PopularCourse struct {
	Code  string
	Name  string
	Total int
}

// SetCompleted persists the completed course list as JSON.
func (r *Run) SetCompleted(codes []string) {
	if codes == nil {
		r.CompletedJSON = "[]"
		return
	}
	payload, _ := json.Marshal(codes)
	r.CompletedJSON = string(payload)
}

// Completed returns the stored completed course list.
func (r *Run) Completed() []string {
	if strings.TrimSpace(r.CompletedJSON) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(r.CompletedJSON), &out); err != nil {
		return nil
	}
	return out
}

// Records converts the stored courses back to course records.
func (r *Run) Records() []course.Record {
	out := make([]course.Record, 0, len(r.Courses))
	for _, c := range r.Courses {
		out = append(out, course.Record{
			Code:              c.Code,
			Name:              c.Name,
			Description:       c.Description,
			PrerequisiteCodes: c.PrerequisiteCodes,
			Rank:              c.Rank,
			Keywords:          c.Keywords,
			Rationale:         c.Rationale,
		})
	}
	return out
}

func runCourses(runID string, records []course.Record) []RunCourse {
	rows := make([]RunCourse, 0, len(records))
	for i, rec := range records {
		rows = append(rows, RunCourse{
			RunID:             runID,
			Position:          i,
			Code:              rec.Code,
			Name:              rec.Name,
			Description:       rec.Description,
			PrerequisiteCodes: rec.PrerequisiteCodes,
			Rank:              rec.Rank,
			Keywords:          rec.Keywords,
			Rationale:         rec.Rationale,
		})
	}
	return rows
}
