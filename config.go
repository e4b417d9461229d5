package main

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	TavilyAPIKey string `yaml:"tavily_api_key"`

	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	GatewayBaseURL  string `yaml:"gateway_base_url"`
	GatewayAPIKey   string `yaml:"gateway_api_key"`

	DBPath          string `yaml:"db_path"`
	ReportOutputDir string `yaml:"report_output_dir"`
	LexiconPath     string `yaml:"lexicon_path"`

	SchemaVersion        string  `yaml:"schema_version"`
	NegationWindowTokens int     `yaml:"negation_window_tokens"`
	HedgeDampening       float64 `yaml:"hedge_dampening"`
	SeveritySaturationK  float64 `yaml:"severity_saturation_k"`
	MacroStressScore     float64 `yaml:"macro_stress_score"`
	MinEvidenceSnippets  int     `yaml:"min_evidence_snippets"`
	SearchMaxResults     int     `yaml:"search_max_results"`

	TrainSamples int   `yaml:"train_samples"`
	TrainSeed    int64 `yaml:"train_seed"`

	BenchmarkRefreshSchedule string `yaml:"benchmark_refresh_schedule"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.TavilyAPIKey, "TAVILY_API_KEY")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.GatewayBaseURL, "GATEWAY_BASE_URL")
	envOverride(&cfg.GatewayAPIKey, "GATEWAY_API_KEY")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverride(&cfg.LexiconPath, "LEXICON_PATH")
	envOverride(&cfg.SchemaVersion, "SCHEMA_VERSION")
	envOverrideInt(&cfg.NegationWindowTokens, "NEGATION_WINDOW_TOKENS")
	envOverrideFloat(&cfg.HedgeDampening, "HEDGE_DAMPENING")
	envOverrideFloat(&cfg.SeveritySaturationK, "SEVERITY_SATURATION_K")
	envOverrideFloat(&cfg.MacroStressScore, "MACRO_STRESS_SCORE")
	envOverrideInt(&cfg.MinEvidenceSnippets, "MIN_EVIDENCE_SNIPPETS")
	envOverrideInt(&cfg.SearchMaxResults, "SEARCH_MAX_RESULTS")
	envOverrideInt(&cfg.TrainSamples, "TRAIN_SAMPLES")
	envOverrideInt64(&cfg.TrainSeed, "TRAIN_SEED")
	envOverride(&cfg.BenchmarkRefreshSchedule, "BENCHMARK_REFRESH_SCHEDULE")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = "./distresslab.db"
	}
	if c.ReportOutputDir == "" {
		c.ReportOutputDir = "./reports"
	}
	if c.SchemaVersion == "" {
		c.SchemaVersion = SchemaVersionV1
	}
	if c.NegationWindowTokens == 0 {
		c.NegationWindowTokens = defaultNegationWindowTokens
	}
	if c.HedgeDampening == 0 {
		c.HedgeDampening = defaultHedgeDampening
	}
	if c.SeveritySaturationK == 0 {
		c.SeveritySaturationK = defaultSeveritySaturationK
	}
	if c.MacroStressScore == 0 {
		c.MacroStressScore = 40
	}
	if c.MinEvidenceSnippets == 0 {
		c.MinEvidenceSnippets = 3
	}
	if c.SearchMaxResults == 0 {
		c.SearchMaxResults = 6
	}
	if c.TrainSamples == 0 {
		c.TrainSamples = 6000
	}
	if c.TrainSeed == 0 {
		c.TrainSeed = 42
	}
	if c.BenchmarkRefreshSchedule == "" {
		c.BenchmarkRefreshSchedule = "0 6 * * *"
	}
}

// validate checks the fields a run cannot proceed without. The LLM
// provider is optional: with none configured the verification gate
// degrades to the lexicon-derived estimate.
func (c Config) validate() error {
	switch c.LLMProvider {
	case "":
		// verification runs in estimation mode
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return &ConfigError{Field: "anthropic_api_key", Reason: "required when llm_provider=anthropic"}
		}
	case "gateway":
		if c.GatewayBaseURL == "" {
			return &ConfigError{Field: "gateway_base_url", Reason: "required when llm_provider=gateway"}
		}
	default:
		return &ConfigError{Field: "llm_provider", Reason: "must be 'anthropic', 'gateway', or empty, got '" + c.LLMProvider + "'"}
	}

	if c.NegationWindowTokens < 1 {
		return &ConfigError{Field: "negation_window_tokens", Reason: "must be >= 1"}
	}
	if c.HedgeDampening <= 0 || c.HedgeDampening > 1 {
		return &ConfigError{Field: "hedge_dampening", Reason: "must be in (0, 1]"}
	}
	if c.SeveritySaturationK <= 0 {
		return &ConfigError{Field: "severity_saturation_k", Reason: "must be > 0"}
	}
	if c.MacroStressScore < 0 || c.MacroStressScore > 100 {
		return &ConfigError{Field: "macro_stress_score", Reason: "must be between 0 and 100"}
	}
	if c.TrainSamples < 100 {
		return &ConfigError{Field: "train_samples", Reason: "must be >= 100"}
	}
	if c.SlackBotToken != "" && c.SlackChannelID == "" {
		return &ConfigError{Field: "slack_channel_id", Reason: "required when slack_bot_token is set"}
	}
	if _, err := SchemaSlots(c.SchemaVersion); err != nil {
		return &ConfigError{Field: "schema_version", Reason: err.Error()}
	}
	return nil
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideInt64(field *int64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
