package recognize

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCrop(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crop.png")
	require.NoError(t, os.WriteFile(path, []byte("not-a-real-png"), 0o644))
	return path
}

func TestPredictBackendSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/predict", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("file")
		require.NoError(t, err)
		w.Write([]byte(`{"success": true, "latex": " x^{2}+y^{2}=r^{2} "}`))
	}))
	defer srv.Close()

	b := NewRelay(srv.URL, time.Second)
	latex, err := b.Recognize(context.Background(), writeTempCrop(t))

	require.NoError(t, err)
	assert.Equal(t, "x^{2}+y^{2}=r^{2}", latex)
}

func TestPredictBackendErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "error": "Model not loaded"}`))
	}))
	defer srv.Close()

	b := NewRelay(srv.URL, time.Second)
	_, err := b.Recognize(context.Background(), writeTempCrop(t))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Model not loaded")
}

func TestPredictBackendBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := NewRelay(srv.URL, time.Second)
	_, err := b.Recognize(context.Background(), writeTempCrop(t))
	assert.Error(t, err)
}

func TestLocalModelProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound) // any response means reachable
	}))
	defer srv.Close()

	b := NewLocalModel(srv.URL, time.Second)
	assert.False(t, b.Available(), "local model must stay skipped before the probe")

	assert.True(t, b.Probe(context.Background()))
	assert.True(t, b.Available())
}

func TestLocalModelProbeUnreachable(t *testing.T) {
	b := NewLocalModel("http://127.0.0.1:1", 200*time.Millisecond)
	assert.False(t, b.Probe(context.Background()))
	assert.False(t, b.Available())
}

func TestRelayUnconfigured(t *testing.T) {
	b := NewRelay("", time.Second)
	assert.False(t, b.Available())
}

func TestMathpixFieldFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "app-id", r.Header.Get("app_id"))
		require.Equal(t, "app-key", r.Header.Get("app_key"))
		w.Write([]byte(`{"data":[{"latex":"\\sqrt{2}"}]}`))
	}))
	defer srv.Close()

	b := NewMathpix("", "app-id", "app-key", time.Second)
	b.url = srv.URL
	latex, err := b.Recognize(context.Background(), writeTempCrop(t))

	require.NoError(t, err)
	assert.Equal(t, `\sqrt{2}`, latex)
}

func TestMathpixUnavailableWithoutCredentials(t *testing.T) {
	b := NewMathpix("", "", "", time.Second)
	assert.False(t, b.Available())

	b = NewMathpix("key", "", "", time.Second)
	assert.True(t, b.Available())

	b = NewMathpix("", "id", "", time.Second)
	assert.False(t, b.Available(), "app_id without app_key is not usable")
}
