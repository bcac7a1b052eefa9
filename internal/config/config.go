package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Defaults applied by applyDefaults for settings with a sensible fixed value.
const (
	// DefaultTokenBudget is the context budget in tokens. The estimate used
	// throughout is 4 characters per token.
	DefaultTokenBudget = 7000

	// DefaultCooldown is the minimum interval between knowledge base writes.
	DefaultCooldown = time.Hour

	// DefaultInferenceBaseURL is the Anthropic API endpoint.
	DefaultInferenceBaseURL = "https://api.anthropic.com"
)

// Config is the full triaged configuration, loaded from YAML then overridden
// by environment variables. See Load for precedence.
type Config struct {
	Repo      RepoConfig      `koanf:"repo"`
	GitHub    GitHubConfig    `koanf:"github"`
	Bot       BotConfig       `koanf:"bot"`
	Inference InferenceConfig `koanf:"inference"`
	Knowledge KnowledgeConfig `koanf:"knowledge"`
	Retrieval RetrievalConfig `koanf:"retrieval"`
	Notify    NotifyConfig    `koanf:"notify"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Storage   StorageConfig   `koanf:"storage"`
}

// RepoConfig identifies the repository whose issues are triaged.
type RepoConfig struct {
	Owner string `koanf:"owner"`
	Name  string `koanf:"name"`
}

// GitHubConfig holds issue tracker credentials.
type GitHubConfig struct {
	Token Secret `koanf:"token"`
}

// BotConfig identifies the automated agent on the issue tracker.
type BotConfig struct {
	// Login is the tracker account the bot posts as. Comments authored by
	// this login are treated as agent-authored when analyzing feedback.
	Login string `koanf:"login"`
}

// InferenceConfig configures the language model collaborator.
type InferenceConfig struct {
	APIKey     Secret `koanf:"api_key"`
	BaseURL    string `koanf:"base_url"`
	Model      string `koanf:"model"`
	APIVersion string `koanf:"api_version"`

	// SystemPrompt is the triage instruction prepended to every decision call.
	SystemPrompt string `koanf:"system_prompt"`

	MaxTokens   int     `koanf:"max_tokens"`
	Temperature float64 `koanf:"temperature"`
}

// KnowledgeConfig configures the shared knowledge base artifact.
type KnowledgeConfig struct {
	// Bucket and Key locate the canonical knowledge base in shared storage.
	Bucket string `koanf:"bucket"`
	Key    string `koanf:"key"`

	// DefaultContent seeds the knowledge base when shared storage has no
	// copy yet. Optional; a static placeholder is used when empty.
	DefaultContent string `koanf:"default_content"`

	// Cooldown is the minimum interval between knowledge base writes.
	Cooldown Duration `koanf:"cooldown"`

	// Keywords are domain-specific terms recognized by search term
	// extraction, in addition to the built-in failure signatures.
	Keywords []string `koanf:"keywords"`
}

// RetrievalConfig configures optional external retrieval.
type RetrievalConfig struct {
	// DecisionPrompt asks the model whether retrieval would help and which
	// terms to search for. When empty, retrieval is disabled entirely.
	DecisionPrompt string `koanf:"decision_prompt"`

	// PathFilters restricts code search to these path prefixes.
	PathFilters []string `koanf:"path_filters"`

	// TokenBudget caps assembled context size, in tokens.
	TokenBudget int `koanf:"token_budget"`
}

// NotifyConfig configures the human escalation channel.
type NotifyConfig struct {
	// WebhookURL is an incoming-webhook endpoint. Optional; escalations are
	// still acknowledged on the issue when unset.
	WebhookURL Secret `koanf:"webhook_url"`
}

// ServerConfig configures webhook serve mode.
type ServerConfig struct {
	Port            int      `koanf:"port"`
	WebhookSecret   Secret   `koanf:"webhook_secret"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// StorageConfig configures the shared object storage backend.
type StorageConfig struct {
	// Root is the base directory of the filesystem object store.
	Root string `koanf:"root"`
}

// Validate checks that all required settings are present. Missing required
// configuration is a startup error, never a silent default. The retrieval
// decision prompt is the one deliberate exception: absence disables
// retrieval.
func (c *Config) Validate() error {
	var missing []string

	if c.Repo.Owner == "" {
		missing = append(missing, "repo.owner")
	}
	if c.Repo.Name == "" {
		missing = append(missing, "repo.name")
	}
	if !c.GitHub.Token.IsSet() {
		missing = append(missing, "github.token")
	}
	if !c.Inference.APIKey.IsSet() {
		missing = append(missing, "inference.api_key")
	}
	if c.Inference.Model == "" {
		missing = append(missing, "inference.model")
	}
	if c.Inference.APIVersion == "" {
		missing = append(missing, "inference.api_version")
	}
	if c.Inference.SystemPrompt == "" {
		missing = append(missing, "inference.system_prompt")
	}
	if c.Knowledge.Bucket == "" {
		missing = append(missing, "knowledge.bucket")
	}
	if c.Knowledge.Key == "" {
		missing = append(missing, "knowledge.key")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.Retrieval.TokenBudget < 0 {
		return errors.New("retrieval.token_budget cannot be negative")
	}
	if c.Inference.Temperature < 0 || c.Inference.Temperature > 1 {
		return fmt.Errorf("inference.temperature must be in [0,1], got %v", c.Inference.Temperature)
	}

	return nil
}

// applyDefaults sets default values for missing optional fields.
func applyDefaults(cfg *Config) {
	if cfg.Inference.BaseURL == "" {
		cfg.Inference.BaseURL = DefaultInferenceBaseURL
	}
	if cfg.Inference.MaxTokens == 0 {
		cfg.Inference.MaxTokens = 1024
	}
	if cfg.Bot.Login == "" {
		cfg.Bot.Login = "triaged-bot"
	}
	if cfg.Retrieval.TokenBudget == 0 {
		cfg.Retrieval.TokenBudget = DefaultTokenBudget
	}
	if cfg.Knowledge.Cooldown == 0 {
		cfg.Knowledge.Cooldown = Duration(DefaultCooldown)
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9090
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Storage.Root == "" {
		cfg.Storage.Root = "/var/lib/triaged/store"
	}
}
