package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CLICKUP_TOKEN", "TEAM_ID", "CUFETCH_TEAM_ID", "CUFETCH_API_URL",
		"CUFETCH_RATE_DELAY", "CUFETCH_REQUESTS_PER_MINUTE", "CUFETCH_OUTPUT_DIR",
		"CUFETCH_LOG_LEVEL", "CUFETCH_LOG_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 600*time.Millisecond, config.RateLimit.Delay)
	assert.Equal(t, 85, config.RateLimit.RequestsPerMinute)
	assert.Equal(t, "images_download", config.Output.BaseDirectory)
	assert.Equal(t, ".download_metadata.json", config.Output.MetadataFile)
	assert.Equal(t, ".processed_tasks.json", config.Output.ProcessedTasksFile)
	assert.Equal(t, ".failed_downloads.json", config.Output.FailedDownloadsFile)
	assert.Equal(t, 30*time.Second, config.Download.Timeout)
	assert.Equal(t, 8192, config.Download.ChunkSize)
	assert.Equal(t, DefaultAPIURL, config.ClickUp.APIURL)
	assert.NoError(t, config.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CLICKUP_TOKEN", "pk_test")
	t.Setenv("TEAM_ID", "9001")
	t.Setenv("CUFETCH_RATE_DELAY", "0.25")
	t.Setenv("CUFETCH_REQUESTS_PER_MINUTE", "30")
	t.Setenv("CUFETCH_OUTPUT_DIR", "/tmp/cufetch-out")
	t.Setenv("CUFETCH_LOG_LEVEL", "debug")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "pk_test", config.ClickUp.Token)
	assert.Equal(t, "9001", config.ClickUp.TeamID)
	assert.Equal(t, 250*time.Millisecond, config.RateLimit.Delay)
	assert.Equal(t, 30, config.RateLimit.RequestsPerMinute)
	assert.Equal(t, "/tmp/cufetch-out", config.Output.BaseDirectory)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadFromEnvRejectsBadNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("CUFETCH_REQUESTS_PER_MINUTE", "lots")
	t.Setenv("CUFETCH_RATE_DELAY", "soon")

	config := DefaultConfig()
	err := config.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CUFETCH_REQUESTS_PER_MINUTE")
	assert.Contains(t, err.Error(), "CUFETCH_RATE_DELAY")
}

func TestParseDelay(t *testing.T) {
	d, err := parseDelay("600ms")
	require.NoError(t, err)
	assert.Equal(t, 600*time.Millisecond, d)

	d, err = parseDelay("1.5")
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, d)

	_, err = parseDelay("fast")
	assert.Error(t, err)
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
clickup:
  team_id: "123"
rate_limit:
  delay: 1s
  requests_per_minute: 50
output:
  base_directory: ./out
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config := DefaultConfig()
	require.NoError(t, config.LoadFromFile(path))

	assert.Equal(t, "123", config.ClickUp.TeamID)
	assert.Equal(t, time.Second, config.RateLimit.Delay)
	assert.Equal(t, 50, config.RateLimit.RequestsPerMinute)
	assert.Equal(t, "./out", config.Output.BaseDirectory)
	assert.Equal(t, "warn", config.Logging.Level)
	// Untouched keys keep their defaults
	assert.Equal(t, ".download_metadata.json", config.Output.MetadataFile)
}

func TestLoadFromTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[clickup]
team_id = "456"

[output]
base_directory = "./toml-out"

[rate_limit]
requests_per_minute = 40
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config := DefaultConfig()
	require.NoError(t, config.LoadFromFile(path))

	assert.Equal(t, "456", config.ClickUp.TeamID)
	assert.Equal(t, "./toml-out", config.Output.BaseDirectory)
	assert.Equal(t, 40, config.RateLimit.RequestsPerMinute)
}

func TestLoadFromFileErrors(t *testing.T) {
	config := DefaultConfig()
	err := config.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("output: [unclosed"), 0644))
	err = config.LoadFromFile(bad)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	config := DefaultConfig()
	config.Output.BaseDirectory = ""
	config.Download.ChunkSize = 0
	config.Logging.Level = "chatty"

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output directory is required")
	assert.Contains(t, err.Error(), "chunk size must be positive")
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestValidateCredentials(t *testing.T) {
	config := DefaultConfig()
	err := config.ValidateCredentials(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
	assert.Contains(t, err.Error(), "workspace id")

	config.ClickUp.Token = "pk_x"
	assert.NoError(t, config.ValidateCredentials(false))
	assert.Error(t, config.ValidateCredentials(true))

	config.ClickUp.TeamID = "1"
	assert.NoError(t, config.ValidateCredentials(true))
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()
	config.MergeCommandLineFlags(map[string]interface{}{
		"token":               "pk_flag",
		"team":                "77",
		"output":              "/data/images",
		"rate-delay":          2 * time.Second,
		"requests-per-minute": 10,
		"log-level":           "error",
	})

	assert.Equal(t, "pk_flag", config.ClickUp.Token)
	assert.Equal(t, "77", config.ClickUp.TeamID)
	assert.Equal(t, "/data/images", config.Output.BaseDirectory)
	assert.Equal(t, 2*time.Second, config.RateLimit.Delay)
	assert.Equal(t, 10, config.RateLimit.RequestsPerMinute)
	assert.Equal(t, "error", config.Logging.Level)
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  base_directory: from-file\nclickup:\n  team_id: file-team\n"), 0644))

	t.Setenv("TEAM_ID", "env-team")

	config, err := Load(path, map[string]interface{}{"output": "from-flag"})
	require.NoError(t, err)

	assert.Equal(t, "from-flag", config.Output.BaseDirectory)
	assert.Equal(t, "env-team", config.ClickUp.TeamID)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	config := DefaultConfig()
	config.ClickUp.TeamID = "42"
	require.NoError(t, config.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "42", loaded.ClickUp.TeamID)
}

func TestLedgerPaths(t *testing.T) {
	config := DefaultConfig()
	config.Output.BaseDirectory = "root"

	assert.Equal(t, filepath.Join("root", ".download_metadata.json"), config.MetadataPath())
	assert.Equal(t, filepath.Join("root", ".processed_tasks.json"), config.ProcessedTasksPath())
	assert.Equal(t, filepath.Join("root", ".failed_downloads.json"), config.FailedDownloadsPath())
}
