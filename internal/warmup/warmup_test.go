package warmup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRunCoversAllCombinations(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recommend" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			FocusArea              string   `json:"focus_area"`
			EquipmentAvailable     []string `json:"equipment_available"`
			SessionDurationMinutes int      `json:"session_duration_minutes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad body: %v", err)
		}
		if body.FocusArea == "" || len(body.EquipmentAvailable) == 0 || body.SessionDurationMinutes == 0 {
			t.Errorf("incomplete request body: %+v", body)
		}
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := New(srv.URL, time.Second, 0, zap.NewNop())
	summary, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := len(muscleGroups) * len(equipmentCombos) * len(durations)
	if summary.TotalRequests != want {
		t.Errorf("total = %d, want %d", summary.TotalRequests, want)
	}
	if summary.Successful != want || summary.Failed != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if got := int(calls.Load()); got != want {
		t.Errorf("server saw %d calls, want %d", got, want)
	}
}

func TestRunCountsFailures(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Every third request fails.
		if calls.Add(1)%3 == 0 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := New(srv.URL, time.Second, 0, zap.NewNop())
	summary, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Failed == 0 {
		t.Error("expected some failures to be counted")
	}
	if summary.Successful+summary.Failed != summary.TotalRequests {
		t.Errorf("counts do not add up: %+v", summary)
	}
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := New(srv.URL, time.Second, 0, zap.NewNop())
	if _, err := w.Run(ctx); err == nil {
		t.Error("expected context error")
	}
}
