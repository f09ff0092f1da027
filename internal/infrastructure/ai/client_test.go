package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-jobflow/internal/core/ports"
	"go-jobflow/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_AnalyzeJob(t *testing.T) {
	userID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/jobs/analyze", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, userID.String(), body["userId"])
		assert.Equal(t, "https://jobs.example.com/42", body["jobUrl"])

		_ = json.NewEncoder(w).Encode(map[string]any{"score": 8.5, "recommendation": "apply"})
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL+"/").AnalyzeJob(context.Background(), userID, ports.JobAnalysisRequest{JobURL: "https://jobs.example.com/42"})

	require.NoError(t, err)
	assert.Equal(t, 8.5, got.Score)
	assert.Equal(t, "apply", got.Recommendation)
}

func TestClient_ChatAndGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat":
			_ = json.NewEncoder(w).Encode(map[string]any{"reply": "hello"})
		case "/api/generate":
			var body generateRequest
			_ = json.NewDecoder(r.Body).Decode(&body)
			_ = json.NewEncoder(w).Encode(map[string]any{"type": body.Type, "content": "letter"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := NewClient(srv.URL)

	reply, err := c.Chat(context.Background(), uuid.New(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)

	out, err := c.Generate(context.Background(), uuid.New(), domain.TaskCoverLetterGeneration, map[string]any{"jobId": "1"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.TaskCoverLetterGeneration), out["type"])
	assert.Equal(t, "letter", out["content"])
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Chat(context.Background(), uuid.New(), "hi", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestOffline_Deterministic(t *testing.T) {
	req := ports.JobAnalysisRequest{JobURL: "https://jobs.example.com/7"}

	a, err := Offline{}.AnalyzeJob(context.Background(), uuid.New(), req)
	require.NoError(t, err)
	b, err := Offline{}.AnalyzeJob(context.Background(), uuid.New(), req)
	require.NoError(t, err)

	assert.Equal(t, a.Score, b.Score)
	assert.GreaterOrEqual(t, a.Score, 0.0)
	assert.LessOrEqual(t, a.Score, 10.0)

	_, err = Offline{}.AnalyzeJob(context.Background(), uuid.New(), ports.JobAnalysisRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidNodeConfig)
}
