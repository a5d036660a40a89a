package store

import (
	"context"
	"errors"
	"fmt"
)

// PopularCourses counts how often each code was recommended across stored
// runs and returns the most frequent first.
func (d *Database) PopularCourses(ctx context.Context, limit int, minCount int) ([]PopularCourse, error) {
	if d == nil {
		return nil, errors.New("database is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	if minCount <= 0 {
		minCount = 1
	}

	var results []PopularCourse
	query := d.gorm.WithContext(ctx).Table("run_courses").
		Select("code AS code, MAX(name) AS name, COUNT(*) AS total").
		Group("code").
		Having("COUNT(*) >= ?", minCount).
		Order("total DESC, code ASC").
		Limit(limit)

	if err := query.Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("popular courses: %w", err)
	}
	return results, nil
}
