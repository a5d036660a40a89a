package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"course-planner/internal/recommend"
)

var ErrRunNotFound = errors.New("run not found")

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Run{}, &RunCourse{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA foreign_keys=ON").Error; err != nil {
		logrus.WithError(err).Warn("enable foreign keys")
	}
	if err := applyIndexes(db); err != nil {
		return nil, fmt.Errorf("apply indexes: %w", err)
	}
	return &Database{gorm: db}, nil
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveReport stores a finished recommendation call with its courses.
func (d *Database) SaveReport(ctx context.Context, report recommend.Report) error {
	if d == nil {
		return errors.New("database is nil")
	}
	run := &Run{
		ID:          report.RunID,
		Interests:   report.Interests,
		Outcome:     report.Outcome,
		BlockReason: report.BlockReason,
		RecordCount: len(report.Records),
		DurationMs:  report.Elapsed.Milliseconds(),
		CreatedAt:   report.CreatedAt,
		Courses:     runCourses(report.RunID, report.Records),
	}
	run.SetCompleted(report.Completed)
	if report.Err != nil {
		run.Error = report.Err.Error()
	}
	return d.SaveRun(ctx, run)
}

// SaveRun inserts a run and its courses in one transaction.
func (d *Database) SaveRun(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is empty")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.WithContext(ctx).Create(run).Error
}

// ListRuns returns a page of runs, newest first, without their courses.
func (d *Database) ListRuns(ctx context.Context, offset, limit int) ([]Run, int64, error) {
	var total int64
	if err := d.gorm.WithContext(ctx).Model(&Run{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := d.gorm.WithContext(ctx).Model(&Run{}).Order("created_at DESC, id DESC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var runs []Run
	if err := q.Find(&runs).Error; err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

// GetRun fetches a run with its courses in response order.
func (d *Database) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := d.gorm.WithContext(ctx).
		Preload("Courses", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func applyIndexes(db *gorm.DB) error {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_run_courses_run_position ON run_courses(run_id, position)",
		"CREATE INDEX IF NOT EXISTS idx_runs_outcome_created ON runs(outcome, created_at)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
