package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	KindGenerate = "generate"
	KindProcess  = "process"

	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Run is one invocation of a pipeline stage.
type Run struct {
	ID        string `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Kind   string `gorm:"index;not null;default:''"`
	Status string `gorm:"index;not null;default:''"`
	Error  string `gorm:"not null;default:''"`

	Prompt   string `gorm:"not null;default:''"`
	Filename string `gorm:"not null;default:''"`
	Metadata string `gorm:"not null;default:''"`
	Sections int    `gorm:"not null;default:0"`
	LengthMs int64  `gorm:"not null;default:0"`

	DurationMs int64  `gorm:"not null;default:0"`
	SplitMs    int64  `gorm:"not null;default:0"`
	VoiceID    string `gorm:"not null;default:''"`

	Input  string `gorm:"not null;default:''"`
	Output string `gorm:"not null;default:''"`

	// Artifacts holds the base names of the archived files, one per line.
	Artifacts string `gorm:"not null;default:''"`
}

// ArtifactNames returns the base names of the archived files of the run.
func (r *Run) ArtifactNames() []string {
	if r.Artifacts == "" {
		return nil
	}
	return strings.Split(r.Artifacts, "\n")
}

func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var v Run
	if err := s.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get run %s: %w", id, err)
	}
	return &v, nil
}

func (s *Store) SetRun(ctx context.Context, v *Run) error {
	if err := s.db.WithContext(ctx).Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set run %s: %w", v.ID, err)
	}
	return nil
}

func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&Run{ID: id}, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("storage: failed to delete run %s: %w", id, err)
	}
	return nil
}

func (s *Store) ListRuns(ctx context.Context, page, size int, orderBy string, filter ...Filter) ([]*Run, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * size
	vs := []*Run{}
	q := s.db.WithContext(ctx).Offset(offset).Limit(size)
	for _, f := range filter {
		q = q.Where(f.Query, f.Args...)
	}
	if orderBy != "" {
		q = q.Order(orderBy)
	}
	if err := q.Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to list runs: %w", err)
	}
	return vs, nil
}
