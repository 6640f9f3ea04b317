package recognize

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/parchmint/pdfstruct/internal/domain"
)

const mathpixURL = "https://api.mathpix.com/v3/text"

// MathpixBackend recognizes formulas through the MathPix text API. Either
// a bearer API key or an app_id/app_key pair enables it.
type MathpixBackend struct {
	apiKey string
	appID  string
	appKey string
	url    string
	client *http.Client
}

// NewMathpix creates the MathPix backend.
func NewMathpix(apiKey, appID, appKey string, timeout time.Duration) *MathpixBackend {
	return &MathpixBackend{
		apiKey: apiKey,
		appID:  appID,
		appKey: appKey,
		url:    mathpixURL,
		client: &http.Client{Timeout: timeout},
	}
}

func (b *MathpixBackend) Name() string { return "mathpix" }

func (b *MathpixBackend) Available() bool {
	return b.apiKey != "" || (b.appID != "" && b.appKey != "")
}

type mathpixRequest struct {
	Src     string         `json:"src"`
	Formats []string       `json:"formats"`
	OCR     map[string]any `json:"ocr"`
}

// mathpixResponse mirrors the fields we read; the service returns more.
// Older response shapes nest the result under data[0].
type mathpixResponse struct {
	LatexSimplified string `json:"latex_simplified"`
	Latex           string `json:"latex"`
	Text            string `json:"text"`
	Data            []struct {
		LatexSimplified string `json:"latex_simplified"`
		Latex           string `json:"latex"`
		Text            string `json:"text"`
	} `json:"data"`
}

func (b *MathpixBackend) Recognize(ctx context.Context, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", domain.RecognitionBackendError("read crop", err)
	}

	payload := mathpixRequest{
		Src:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(data),
		Formats: []string{"latex_simplified", "text"},
		OCR: map[string]any{
			"math_inline_delimiters": [][]string{{"$", "$"}, {`\(`, `\)`}},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", domain.RecognitionBackendError("marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return "", domain.RecognitionBackendError("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	} else {
		req.Header.Set("app_id", b.appID)
		req.Header.Set("app_key", b.appKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return "", domain.RecognitionBackendError("call mathpix", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", domain.RecognitionBackendError("read mathpix response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", domain.RecognitionBackendError(
			fmt.Sprintf("mathpix returned status %d", resp.StatusCode), nil)
	}

	var mr mathpixResponse
	if err := json.Unmarshal(respBody, &mr); err != nil {
		return "", domain.RecognitionBackendError("decode mathpix response", err)
	}

	for _, candidate := range []string{mr.LatexSimplified, mr.Latex, mr.Text} {
		if s := strings.TrimSpace(candidate); s != "" {
			return s, nil
		}
	}
	if len(mr.Data) > 0 {
		entry := mr.Data[0]
		for _, candidate := range []string{entry.LatexSimplified, entry.Latex, entry.Text} {
			if s := strings.TrimSpace(candidate); s != "" {
				return s, nil
			}
		}
	}
	return "", domain.RecognitionBackendError("mathpix response carried no usable text field", nil)
}
