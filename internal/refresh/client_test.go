package refresh

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientListExercises(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/exercises", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"name":"squat"},{"id":2,"name":"deadlift"}]`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, time.Second)
	items, err := client.ListExercises(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, Exercise{ID: 1, Name: "squat"}, items[0])
}

func TestHTTPClientRefreshExercise(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, time.Second)
	require.NoError(t, client.RefreshExercise(context.Background(), 42))
	assert.Equal(t, "/exercises/42", gotPath)
	assert.Equal(t, http.MethodPatch, gotMethod)
}

func TestHTTPClientStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, time.Second)
	err := client.RefreshExercise(context.Background(), 1)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.True(t, Transient(err))
}

func TestTransientClassification(t *testing.T) {
	assert.True(t, Transient(errors.New("dial tcp: connection refused")))
	assert.True(t, Transient(&StatusError{Code: 502}))
	assert.False(t, Transient(&StatusError{Code: 404}))
	assert.False(t, Transient(&StatusError{Code: 422}))
}
