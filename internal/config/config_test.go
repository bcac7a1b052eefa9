package config

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a config with every required field set.
func validConfig() *Config {
	return &Config{
		Repo:   RepoConfig{Owner: "fyrsmithlabs", Name: "triaged"},
		GitHub: GitHubConfig{Token: "ghp_test"},
		Inference: InferenceConfig{
			APIKey:       "sk-test",
			Model:        "claude-sonnet-4-5",
			APIVersion:   "2023-06-01",
			SystemPrompt: "You are a triage assistant.",
		},
		Knowledge: KnowledgeConfig{Bucket: "triaged", Key: "knowledge-base.md"},
	}
}

func TestConfig_Validate_AllRequiredPresent(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate_MissingRequired(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing owner", func(c *Config) { c.Repo.Owner = "" }, "repo.owner"},
		{"missing repo name", func(c *Config) { c.Repo.Name = "" }, "repo.name"},
		{"missing github token", func(c *Config) { c.GitHub.Token = "" }, "github.token"},
		{"missing api key", func(c *Config) { c.Inference.APIKey = "" }, "inference.api_key"},
		{"missing model", func(c *Config) { c.Inference.Model = "" }, "inference.model"},
		{"missing api version", func(c *Config) { c.Inference.APIVersion = "" }, "inference.api_version"},
		{"missing system prompt", func(c *Config) { c.Inference.SystemPrompt = "" }, "inference.system_prompt"},
		{"missing bucket", func(c *Config) { c.Knowledge.Bucket = "" }, "knowledge.bucket"},
		{"missing key", func(c *Config) { c.Knowledge.Key = "" }, "knowledge.key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestConfig_Validate_RetrievalPromptIsOptional(t *testing.T) {
	// The retrieval decision prompt is the one deliberately optional
	// setting: absence disables retrieval, it does not fail validation.
	cfg := validConfig()
	cfg.Retrieval.DecisionPrompt = ""
	require.NoError(t, cfg.Validate())
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := validConfig()
	applyDefaults(cfg)

	assert.Equal(t, DefaultTokenBudget, cfg.Retrieval.TokenBudget)
	assert.Equal(t, DefaultCooldown, cfg.Knowledge.Cooldown.Duration())
	assert.Equal(t, DefaultInferenceBaseURL, cfg.Inference.BaseURL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.NotZero(t, cfg.Server.Port)
}

func TestConfig_ApplyDefaults_DoesNotOverrideExplicit(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.TokenBudget = 2000
	cfg.Knowledge.Cooldown = Duration(30 * time.Minute)
	applyDefaults(cfg)

	assert.Equal(t, 2000, cfg.Retrieval.TokenBudget)
	assert.Equal(t, 30*time.Minute, cfg.Knowledge.Cooldown.Duration())
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("REPO_OWNER", "fyrsmithlabs")
	t.Setenv("REPO_NAME", "triaged")
	t.Setenv("GITHUB_TOKEN", "ghp_env")
	t.Setenv("INFERENCE_API_KEY", "sk-env")
	t.Setenv("INFERENCE_MODEL", "claude-sonnet-4-5")
	t.Setenv("INFERENCE_API_VERSION", "2023-06-01")
	t.Setenv("INFERENCE_SYSTEM_PROMPT", "triage prompt")
	t.Setenv("KNOWLEDGE_BUCKET", "triaged")
	t.Setenv("KNOWLEDGE_KEY", "kb.md")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "fyrsmithlabs", cfg.Repo.Owner)
	assert.Equal(t, "ghp_env", cfg.GitHub.Token.Value())
	assert.Equal(t, "triage prompt", cfg.Inference.SystemPrompt)
	assert.Equal(t, "kb.md", cfg.Knowledge.Key)
}

func TestLoad_MissingRequiredIsFatal(t *testing.T) {
	t.Setenv("REPO_OWNER", "fyrsmithlabs")
	// Everything else left unset.

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required configuration")
}

func TestSecret_RedactedEverywhere(t *testing.T) {
	s := Secret("ghp_very_secret")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "ghp_very_secret", s.Value())

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `"[REDACTED]"`, string(data))
}

func TestSecret_EmptyIsNotSet(t *testing.T) {
	var s Secret
	assert.False(t, s.IsSet())
	assert.Equal(t, "", s.String())
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90m")))
	assert.Equal(t, 90*time.Minute, d.Duration())

	require.Error(t, d.UnmarshalText([]byte("-5s")))
	require.Error(t, d.UnmarshalText([]byte("not-a-duration")))
}
