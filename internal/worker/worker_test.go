package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSpecHelpers(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{HourlySpec, "0 * * * *"},
		{DailySpec(6), "0 6 * * *"},
		{WeeklySpec(0, 2), "0 2 * * 0"},
		{WeeklySpec(6, 23), "0 23 * * 6"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("spec = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestAddRejectsMalformedSpec(t *testing.T) {
	s := NewScheduler(time.Minute, zap.NewNop())
	err := s.Add(Job{Name: "bad", Spec: "not a cron spec", Run: func(ctx context.Context) error { return nil }})
	if err == nil {
		t.Error("expected error for malformed spec")
	}
}

func TestAddAcceptsValidSpecs(t *testing.T) {
	s := NewScheduler(time.Minute, zap.NewNop())
	for _, spec := range []string{HourlySpec, DailySpec(6), WeeklySpec(0, 2)} {
		if err := s.Add(Job{Name: "job", Spec: spec, Run: func(ctx context.Context) error { return nil }}); err != nil {
			t.Errorf("Add(%q): %v", spec, err)
		}
	}
}

func TestCleanupJobSwallowsStoreErrors(t *testing.T) {
	job := CleanupJob(failingStore{}, zap.NewNop())
	if err := job(context.Background()); err != nil {
		t.Errorf("cleanup must return nil when the store is down, got %v", err)
	}
}

type failingStore struct{}

func (failingStore) Mark(context.Context, string, time.Duration) error { return errors.New("down") }
func (failingStore) IsMarked(context.Context, string) (bool, error) {
	return false, errors.New("down")
}
func (failingStore) Sweep(context.Context, string) (int, error) { return 0, errors.New("down") }
