package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Edge case tests covering validation boundaries and merge semantics not
// already exercised by config_test.go.

func TestLoad_ZeroValuesNotMerged(t *testing.T) {
	withUserConfigDir(t)
	dir := t.TempDir()
	// An explicit zero for MaxResults should NOT override the default,
	// since mergeWith treats the zero value as "unset".
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ocrprov.yaml"), []byte("search:\n  max_results: 0\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, 20, cfg.Search.MaxResults)
}

func TestValidate_NegativeMaxResults_Errors(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.MaxResults = -1
	require.Error(t, cfg.Validate())
}

func TestValidate_NegativeRRFConstant_Errors(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.RRFConstant = -1
	require.Error(t, cfg.Validate())
}

func TestValidate_WeightsOutOfRange_Errors(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.BM25Weight = 1.5
	require.Error(t, cfg.Validate())
}

func TestValidate_WeightsNotSummingToOne_Errors(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.BM25Weight = 0.9
	cfg.Search.SemanticWeight = 0.9
	require.Error(t, cfg.Validate())
}

func TestValidate_WeightsWithinTolerance_Passes(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.BM25Weight = 0.505
	cfg.Search.SemanticWeight = 0.5
	require.NoError(t, cfg.Validate())
}

func TestValidate_UnknownEmbedDevice_Errors(t *testing.T) {
	cfg := NewConfig()
	cfg.Embed.Device = "tpu"
	require.Error(t, cfg.Validate())
}

func TestValidate_EmptyEmbedDevice_Passes(t *testing.T) {
	cfg := NewConfig()
	cfg.Embed.Device = ""
	require.NoError(t, cfg.Validate())
}

func TestValidate_CaseInsensitiveEmbedDevice(t *testing.T) {
	cfg := NewConfig()
	cfg.Embed.Device = "CUDA"
	require.NoError(t, cfg.Validate())
}

func TestValidate_UnknownLogLevel_Errors(t *testing.T) {
	cfg := NewConfig()
	cfg.Logging.Level = "trace"
	require.Error(t, cfg.Validate())
}

func TestLoad_InvalidValidation_ReturnsError(t *testing.T) {
	withUserConfigDir(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ocrprov.yaml"), []byte("search:\n  bm25_weight: 2.0\n"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestLoad_UnreadableConfigFile_ReturnsError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permissions are not enforced when running as root")
	}
	withUserConfigDir(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "ocrprov.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o000))
	t.Cleanup(func() { os.Chmod(path, 0o644) })

	_, err := Load(dir)
	require.Error(t, err)
}

func TestConfig_JSON_RoundTrip(t *testing.T) {
	cfg := NewConfig()
	cfg.Storage.AllowedDirs = []string{"/docs", "/scans"}

	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	var restored Config
	require.NoError(t, json.Unmarshal(data, &restored))
	require.Equal(t, *cfg, restored)
}

func TestConfig_UnmarshalJSON_InvalidJSON_ReturnsError(t *testing.T) {
	var cfg Config
	err := json.Unmarshal([]byte("{not valid"), &cfg)
	require.Error(t, err)
}

func TestMergeWith_AllowedDirsOverriddenWhenNonEmpty(t *testing.T) {
	base := NewConfig()
	base.Storage.AllowedDirs = []string{"/a"}

	other := NewConfig()
	other.Storage.AllowedDirs = []string{"/b", "/c"}

	base.mergeWith(other)
	require.Equal(t, []string{"/b", "/c"}, base.Storage.AllowedDirs)
}

func TestMergeWith_EmptyAllowedDirsDoesNotClear(t *testing.T) {
	base := NewConfig()
	base.Storage.AllowedDirs = []string{"/a"}

	other := NewConfig()
	other.Storage.AllowedDirs = nil

	base.mergeWith(other)
	require.Equal(t, []string{"/a"}, base.Storage.AllowedDirs)
}

func TestWriteYAML_CreatesReadableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := NewConfig()
	require.NoError(t, cfg.WriteYAML(path))
	require.FileExists(t, path)
}
