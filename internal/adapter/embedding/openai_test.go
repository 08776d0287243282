package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/adapter/provider"
	"pdfrag/internal/domain"
)

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// fakeEmbeddings answers every input with [len(text), index-in-batch, 1].
func fakeEmbeddings(t *testing.T, calls *int32, fail func(call int32) int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := atomic.AddInt32(calls, 1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		if fail != nil {
			if status := fail(call); status != 0 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				w.Write([]byte(`{"error":{"message":"failure","type":"server_error"}}`))
				return
			}
		}

		var req embeddingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// Reverse order to check that results are placed by index.
		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(len(req.Input[i])), float32(i), 1},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
		})
	}))
}

func newTestEmbedder(t *testing.T, url string, batch int) *OpenAIEmbedder {
	t.Helper()
	e, err := NewOpenAIEmbedder("test-key", Options{
		Model:      "custom-model",
		BaseURL:    url,
		Dimension:  3,
		BatchSize:  batch,
		Timeout:    5 * time.Second,
		MaxRetries: 2,
	})
	require.NoError(t, err)
	e.retry = provider.RetryPolicy{MaxRetries: 2, Base: time.Millisecond, Max: time.Millisecond}
	return e
}

func TestOpenAIEmbedder_Batches(t *testing.T) {
	var calls int32
	srv := fakeEmbeddings(t, &calls, nil)
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL, 2)
	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}

	vecs, err := e.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 5)
	assert.Equal(t, int32(3), calls)

	for i, v := range vecs {
		assert.Equal(t, float32(len(texts[i])), v[0])
		assert.Equal(t, float32(i%2), v[1])
	}
	assert.Equal(t, 3, e.Dimension())
	assert.Equal(t, "custom-model", e.ModelName())
}

func TestOpenAIEmbedder_Empty(t *testing.T) {
	e := newTestEmbedder(t, "http://127.0.0.1:1", 10)
	vecs, err := e.Embed(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestOpenAIEmbedder_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := fakeEmbeddings(t, &calls, func(call int32) int {
		if call == 1 {
			return http.StatusServiceUnavailable
		}
		return 0
	})
	defer srv.Close()

	vecs, err := newTestEmbedder(t, srv.URL, 10).Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
	assert.Equal(t, int32(2), calls)
}

func TestOpenAIEmbedder_AuthFailureNotRetried(t *testing.T) {
	var calls int32
	srv := fakeEmbeddings(t, &calls, func(int32) int { return http.StatusUnauthorized })
	defer srv.Close()

	_, err := newTestEmbedder(t, srv.URL, 10).Embed(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.False(t, domain.IsRetryable(err))
	assert.Equal(t, int32(1), calls)

	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
	assert.Equal(t, "openai", pe.Provider)
}

func TestOpenAIEmbedder_GivesUpAfterRetries(t *testing.T) {
	var calls int32
	srv := fakeEmbeddings(t, &calls, func(int32) int { return http.StatusTooManyRequests })
	defer srv.Close()

	_, err := newTestEmbedder(t, srv.URL, 10).Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.Equal(t, int32(3), calls)
}

func TestOpenAIEmbedder_WrongCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1,2,3]}]}`))
	}))
	defer srv.Close()

	_, err := newTestEmbedder(t, srv.URL, 10).Embed(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.Contains(t, err.Error(), "requested 2 embeddings, got 1")
}

func TestOpenAIEmbedder_WrongDimension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1,2]}]}`))
	}))
	defer srv.Close()

	_, err := newTestEmbedder(t, srv.URL, 10).Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestNewOpenAICompatibleEmbedder_Config(t *testing.T) {
	_, err := NewGeminiEmbedder("", Options{Model: "text-embedding-004"})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = NewOpenAIEmbedder("key", Options{Model: "mystery-model"})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	e, err := NewGeminiEmbedder("key", Options{Model: "text-embedding-004"})
	require.NoError(t, err)
	assert.Equal(t, 768, e.Dimension())

	o, err := NewOllamaEmbedder(Options{Model: "nomic-embed-text"})
	require.NoError(t, err)
	assert.Equal(t, 768, o.Dimension())
}

func TestMockEmbedder(t *testing.T) {
	e := NewMockEmbedder(256)
	vecs, err := e.Embed(context.Background(), []string{
		"the quick brown fox",
		"the quick brown fox",
		"a quick brown fox jumps",
		"completely unrelated sentence about taxes",
		"",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 5)

	assert.Equal(t, vecs[0], vecs[1])
	assert.Len(t, vecs[0], 256)

	dot := func(a, b []float32) float64 {
		var s float64
		for i := range a {
			s += float64(a[i]) * float64(b[i])
		}
		return s
	}
	assert.InDelta(t, 1.0, dot(vecs[0], vecs[0]), 1e-5)
	assert.Greater(t, dot(vecs[0], vecs[2]), dot(vecs[0], vecs[3]))
	assert.Equal(t, make([]float32, 256), vecs[4])
	assert.Equal(t, "mock", e.ModelName())
}
