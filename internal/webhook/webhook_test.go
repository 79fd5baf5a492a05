package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardSuccess(t *testing.T) {
	var calls atomic.Int32
	var got Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(Result{Success: true})
	}))
	defer ts.Close()

	client := New(ts.URL, nil)
	result, err := client.Forward(context.Background(), Request{
		UserID: "user-1",
		URL:    "https://example.com/article",
		Title:  "An article",
		Text:   "worth reading",
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "https://example.com/article", got.URL)
	assert.Equal(t, "An article", got.Title)
	assert.Equal(t, "worth reading", got.Text)
}

func TestForwardDuplicateIsNotAnError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Result{Success: false})
	}))
	defer ts.Close()

	result, err := New(ts.URL, nil).Forward(context.Background(), Request{UserID: "user-1", URL: "https://example.com"})
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestForwardNon2xxIsUnreachable(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := New(ts.URL, nil).Forward(context.Background(), Request{UserID: "user-1", URL: "https://example.com"})
	require.ErrorIs(t, err, ErrUnreachable)
	// exactly one attempt, never retried
	assert.Equal(t, int32(1), calls.Load())
}

func TestForwardMalformedResponseIsUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer ts.Close()

	_, err := New(ts.URL, nil).Forward(context.Background(), Request{UserID: "user-1", URL: "https://example.com"})
	require.ErrorIs(t, err, ErrUnreachable)
}

func TestForwardConnectionRefusedIsUnreachable(t *testing.T) {
	_, err := New("http://127.0.0.1:1/ingest", nil).Forward(context.Background(), Request{UserID: "user-1", URL: "https://example.com"})
	require.ErrorIs(t, err, ErrUnreachable)
}
