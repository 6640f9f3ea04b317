package recognize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parchmint/pdfstruct/internal/domain"
)

// PredictBackend talks to a service exposing the hosted-model predict API:
// multipart POST /predict with a file field, answered by
// {"success": bool, "latex": string} or {"success": false, "error": ...}.
// It backs both the locally hosted model and a relay to another
// recognition service; only the local variant is health-probed.
type PredictBackend struct {
	name     string
	endpoint string
	client   *http.Client
	// ready gates the backend. For the local model it is resolved once at
	// startup by Probe; a relay is considered ready whenever configured.
	ready bool
}

type predictResponse struct {
	Success bool   `json:"success"`
	Latex   string `json:"latex"`
	Error   string `json:"error"`
}

// NewLocalModel creates the local hosted-model backend. It starts not
// ready; call Probe once during process startup. If the probe fails the
// backend stays skipped and the chain falls through to remote services.
func NewLocalModel(endpoint string, timeout time.Duration) *PredictBackend {
	return &PredictBackend{
		name:     "local-model",
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

// NewRelay creates a relay backend forwarding crops to another recognition
// service speaking the same predict API. Ready iff an endpoint is set.
func NewRelay(endpoint string, timeout time.Duration) *PredictBackend {
	endpoint = strings.TrimRight(endpoint, "/")
	return &PredictBackend{
		name:     "relay",
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		ready:    endpoint != "",
	}
}

func (b *PredictBackend) Name() string { return b.name }

func (b *PredictBackend) Available() bool { return b.ready && b.endpoint != "" }

// Probe checks the service once and marks the backend ready on any HTTP
// response. Model loading can take a while on the other side, so this only
// verifies reachability, not a successful prediction.
func (b *PredictBackend) Probe(ctx context.Context) bool {
	if b.endpoint == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"/", nil)
	if err != nil {
		return false
	}
	resp, err := b.client.Do(req)
	if err != nil {
		b.ready = false
		return false
	}
	resp.Body.Close()
	b.ready = true
	return true
}

func (b *PredictBackend) Recognize(ctx context.Context, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", domain.RecognitionBackendError("read crop", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return "", domain.RecognitionBackendError("build request", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", domain.RecognitionBackendError("build request", err)
	}
	if err := mw.Close(); err != nil {
		return "", domain.RecognitionBackendError("build request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+"/predict", &body)
	if err != nil {
		return "", domain.RecognitionBackendError("build request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := b.client.Do(req)
	if err != nil {
		return "", domain.RecognitionBackendError("call predict", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", domain.RecognitionBackendError("read predict response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", domain.RecognitionBackendError(
			fmt.Sprintf("predict returned status %d", resp.StatusCode), nil)
	}

	var pr predictResponse
	if err := json.Unmarshal(respBody, &pr); err != nil {
		return "", domain.RecognitionBackendError("decode predict response", err)
	}
	if !pr.Success {
		return "", domain.RecognitionBackendError("predict unsuccessful: "+pr.Error, nil)
	}
	return strings.TrimSpace(pr.Latex), nil
}
