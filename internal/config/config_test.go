package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, int64(50*1024*1024), cfg.Limits.MaxFileBytes)
	assert.Equal(t, 80, cfg.Limits.MaxPages)
	assert.Equal(t, float64(150), cfg.Raster.DPI)
	assert.Equal(t, 0.05, cfg.Classifier.SymbolRatio)
	assert.Equal(t, 0.08, cfg.Classifier.BlockHeightRatio)
	assert.Equal(t, "eng", cfg.Pipeline.OCRLanguage)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9100
limits:
  max_pages: 12
raster:
  dpi: 200
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 12, cfg.Limits.MaxPages)
	assert.Equal(t, float64(200), cfg.Raster.DPI)
	// Untouched sections keep defaults.
	assert.Equal(t, int64(50*1024*1024), cfg.Limits.MaxFileBytes)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverridesBeatFile(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("MAX_PDF_PAGES", "5")
	t.Setenv("LATEX_OCR_URL", "http://model:8502")
	t.Setenv("MATHPIX_API_KEY", "sk-test")
	t.Setenv("TESSERACT_LANG", "eng+deu")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Limits.MaxPages)
	assert.Equal(t, "http://model:8502", cfg.Recognition.Local.Endpoint)
	assert.Equal(t, "sk-test", cfg.Recognition.Mathpix.APIKey)
	assert.Equal(t, "eng+deu", cfg.Pipeline.OCRLanguage)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Raster.DPI = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())
}
