package recommend

import (
	"strconv"
	"strings"

	"course-planner/internal/course"
	"course-planner/internal/extract"
)

// Dedupe converts scanned fragments into records, dropping fragments with no
// usable code and later repeats of a code already seen. Survivors keep their
// first-seen order and have their rationale written to cache when it is non-nil.
func Dedupe(fragments []extract.Fields, cache *RationaleCache) []course.Record {
	records := make([]course.Record, 0, len(fragments))
	for _, f := range fragments {
		records = append(records, toRecord(f))
	}
	records = course.Unique(records)
	if cache != nil {
		for _, rec := range records {
			cache.Put(rec.Code, rec.Rationale)
		}
	}
	return records
}

func toRecord(f extract.Fields) course.Record {
	rec := course.Record{
		Code:              strings.TrimSpace(f.Get("course_code")),
		Name:              f.Get("course_name"),
		Description:       f.Get("course_description"),
		PrerequisiteCodes: f.Get("prerequisite_codes"),
		Rank:              parseRank(f.Get("course_rank")),
		Keywords:          f.Get("course_keywords"),
		Rationale:         f.Get("explanation"),
	}
	if course.IsMissing(rec.Keywords) {
		rec.Keywords = course.DefaultKeywords
	}
	return rec
}

func parseRank(value string) int {
	rank, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return course.DefaultRank
	}
	return rank
}
