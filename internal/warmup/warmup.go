// Package warmup pre-generates common AI coach recommendations so the cached
// answers are already warm when users ask.
package warmup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

var (
	muscleGroups = []string{"chest", "back", "shoulders", "legs", "biceps", "triceps", "core"}

	equipmentCombos = [][]string{
		{"barbell", "dumbbells"},
		{"barbell", "dumbbells", "cables"},
		{"bodyweight"},
		{"dumbbells"},
		{"cables", "dumbbells"},
	}

	durations = []int{30, 45, 60, 90}
)

// Summary counts one warmup pass.
type Summary struct {
	TotalRequests int `json:"total_requests"`
	Successful    int `json:"successful"`
	Failed        int `json:"failed"`
}

// Warmer issues recommendation requests for every muscle-group, equipment,
// and duration combination.
type Warmer struct {
	baseURL string
	http    *http.Client
	pause   time.Duration
	log     *zap.Logger
}

// New creates a warmer against the AI coach base URL. pause is the delay
// between requests, keeping the warmup itself from tripping rate limits.
func New(baseURL string, timeout, pause time.Duration, log *zap.Logger) *Warmer {
	return &Warmer{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		pause:   pause,
		log:     log,
	}
}

type recommendRequest struct {
	FocusArea              string   `json:"focus_area"`
	EquipmentAvailable     []string `json:"equipment_available"`
	SessionDurationMinutes int      `json:"session_duration_minutes"`
}

// Run walks every combination. Individual failures are logged at warn and
// counted; the pass itself always completes unless the context is canceled.
func (w *Warmer) Run(ctx context.Context) (Summary, error) {
	w.log.Info("starting AI cache warmup",
		zap.Int("combinations", len(muscleGroups)*len(equipmentCombos)*len(durations)))

	var summary Summary
	for _, muscle := range muscleGroups {
		for _, equipment := range equipmentCombos {
			for _, duration := range durations {
				if err := ctx.Err(); err != nil {
					return summary, err
				}

				summary.TotalRequests++
				if err := w.warmOne(ctx, muscle, equipment, duration); err != nil {
					summary.Failed++
					w.log.Warn("cache warmup request failed",
						zap.String("muscle", muscle),
						zap.Strings("equipment", equipment),
						zap.Int("duration_min", duration),
						zap.Error(err),
					)
				} else {
					summary.Successful++
				}

				if w.pause > 0 {
					select {
					case <-time.After(w.pause):
					case <-ctx.Done():
						return summary, ctx.Err()
					}
				}
			}
		}
	}

	w.log.Info("AI cache warmup complete",
		zap.Int("total", summary.TotalRequests),
		zap.Int("successful", summary.Successful),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (w *Warmer) warmOne(ctx context.Context, muscle string, equipment []string, duration int) error {
	body, err := json.Marshal(recommendRequest{
		FocusArea:              muscle,
		EquipmentAvailable:     equipment,
		SessionDurationMinutes: duration,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/recommend", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("recommend returned status %d", resp.StatusCode)
	}
	return nil
}
