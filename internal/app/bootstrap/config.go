// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/doctorados/internal/app/system/annotate"
	"github.com/dalemusser/doctorados/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"go.uber.org/zap"
)

// EnvPrefix prefixes every environment variable read through waffle.
const EnvPrefix = "DOCTORADOS"

// Defaults that LoadConfig compares against when deciding whether a legacy
// variable should fill in.
const (
	DefaultMongoURI      = "mongodb://localhost:27017/doctorados"
	DefaultDatabase      = "doctorados"
	DefaultOpenAIBaseURL = "https://api.openai.com"
	DefaultOpenAIModel   = "gpt-3.5-turbo"
	DefaultGeminiModel   = "gemini-2.0-flash"
)

// Unprefixed variable names still honoured for existing .env files.
const (
	legacyMongoURI  = "MONGODB_URI"
	legacyOpenAIKey = "OPENAI_API_KEY"
	legacyGeminiKey = "GEMINI_API_KEY"
)

// ErrMissingCredential means the selected text-generation provider has no
// API key configured.
var ErrMissingCredential = errors.New("missing text-generation credential")

// appConfigKeys defines the configuration keys for the maintenance commands.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, llm_provider, etc.
//   - Environment variables: DOCTORADOS_MONGO_URI, DOCTORADOS_LLM_PROVIDER, etc.
//   - Command-line flags: --mongo_uri, --verify, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: DefaultMongoURI, Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "", Desc: "MongoDB database name (blank: taken from the URI, else doctorados)"},
	{Name: "programs_collection", Default: "programas", Desc: "Collection holding program records"},
	{Name: "criteria_collection", Default: "criteria_config", Desc: "Collection holding the criteria catalog"},

	// Store timeouts
	{Name: "timeout_ping", Default: "2s", Desc: "Timeout for the connectivity check after connect"},
	{Name: "timeout_short", Default: "10s", Desc: "Timeout for counts, reads and single bulk updates"},
	{Name: "timeout_batch", Default: "2m", Desc: "Timeout for whole-collection bulk writes"},

	// Text generation
	{Name: "llm_provider", Default: ProviderOpenAI, Desc: "Text-generation provider: 'openai' or 'gemini'"},
	{Name: "openai_api_key", Default: "", Desc: "OpenAI API key (falls back to OPENAI_API_KEY)"},
	{Name: "openai_base_url", Default: DefaultOpenAIBaseURL, Desc: "OpenAI API base URL"},
	{Name: "openai_model", Default: DefaultOpenAIModel, Desc: "OpenAI chat model"},
	{Name: "gemini_api_key", Default: "", Desc: "Gemini API key (falls back to GEMINI_API_KEY)"},
	{Name: "gemini_model", Default: DefaultGeminiModel, Desc: "Gemini model"},
	{Name: "llm_max_tokens", Default: 500, Desc: "Maximum length of a generated explanation, in tokens"},
	{Name: "llm_temperature", Default: "0.7", Desc: "Sampling temperature for explanations"},
	{Name: "llm_timeout", Default: "60s", Desc: "Timeout for one explanation request"},
	{Name: "llm_max_retries", Default: 2, Desc: "Retries of transient HTTP failures within one request"},

	// initcriteria
	{Name: "verify", Default: false, Desc: "initcriteria: only verify criteria coverage"},
	{Name: "seed_catalog", Default: false, Desc: "initcriteria: write the default criteria catalog"},
	{Name: "overwrite_catalog", Default: false, Desc: "initcriteria: replace an existing criteria catalog"},

	// explainstats
	{Name: "fields", Default: "", Desc: "explainstats: comma-separated metrics to recalculate (blank: all)"},
	{Name: "generate_descriptions", Default: true, Desc: "explainstats: generate and store explanations"},
	{Name: "list", Default: false, Desc: "explainstats: print stored explanations and exit"},
	{Name: "university", Default: "", Desc: "explainstats: restrict list to one university"},
}

// LoadConfig loads WAFFLE core config and the commands' app config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, DOCTORADOS_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
//
// Legacy variables are applied afterwards, only to keys still at their
// defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	temperature, err := strconv.ParseFloat(strings.TrimSpace(appValues.String("llm_temperature")), 64)
	if err != nil {
		return nil, AppConfig{}, fmt.Errorf("invalid llm_temperature: %w", err)
	}

	appCfg := AppConfig{
		MongoURI:           appValues.String("mongo_uri"),
		MongoDatabase:      appValues.String("mongo_database"),
		ProgramsCollection: appValues.String("programs_collection"),
		CriteriaCollection: appValues.String("criteria_collection"),

		Timeouts: timeouts.Config{
			Ping:  appValues.Duration("timeout_ping", timeouts.DefaultPing),
			Short: appValues.Duration("timeout_short", timeouts.DefaultShort),
			Batch: appValues.Duration("timeout_batch", timeouts.DefaultBatch),
		}.Merge(),

		LLMProvider:    strings.ToLower(strings.TrimSpace(appValues.String("llm_provider"))),
		OpenAIAPIKey:   appValues.String("openai_api_key"),
		OpenAIBaseURL:  appValues.String("openai_base_url"),
		OpenAIModel:    appValues.String("openai_model"),
		GeminiAPIKey:   appValues.String("gemini_api_key"),
		GeminiModel:    appValues.String("gemini_model"),
		LLMMaxTokens:   appValues.Int("llm_max_tokens"),
		LLMTemperature: temperature,
		LLMTimeout:     appValues.Duration("llm_timeout", 60*time.Second),
		LLMMaxRetries:  appValues.Int("llm_max_retries"),

		Verify:           appValues.Bool("verify"),
		SeedCatalog:      appValues.Bool("seed_catalog"),
		OverwriteCatalog: appValues.Bool("overwrite_catalog"),

		Fields:               annotate.ParseFields(appValues.String("fields")),
		GenerateDescriptions: appValues.Bool("generate_descriptions"),
		List:                 appValues.Bool("list"),
		University:           strings.TrimSpace(appValues.String("university")),
	}

	legacy, err := legacyEnv()
	if err != nil {
		logger.Warn("could not read .env for legacy variables", zap.Error(err))
	}
	applyLegacy(&appCfg, legacy, logger)

	if appCfg.MongoDatabase == "" {
		appCfg.MongoDatabase = DatabaseFromURI(appCfg.MongoURI)
	}

	return coreCfg, appCfg, nil
}

// legacyEnv returns a lookup over the process environment, falling back to
// the .env file in the working directory.
func legacyEnv() (func(string) string, error) {
	file, err := godotenv.Read()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return os.Getenv, err
	}
	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return file[key]
	}, nil
}

func applyLegacy(appCfg *AppConfig, lookup func(string) string, logger *zap.Logger) {
	if lookup == nil {
		return
	}
	if v := strings.TrimSpace(lookup(legacyMongoURI)); v != "" && appCfg.MongoURI == DefaultMongoURI {
		appCfg.MongoURI = v
		logger.Info("using legacy MongoDB URI variable", zap.String("var", legacyMongoURI))
	}
	if v := strings.TrimSpace(lookup(legacyOpenAIKey)); v != "" && appCfg.OpenAIAPIKey == "" {
		appCfg.OpenAIAPIKey = v
	}
	if v := strings.TrimSpace(lookup(legacyGeminiKey)); v != "" && appCfg.GeminiAPIKey == "" {
		appCfg.GeminiAPIKey = v
	}
}

// DatabaseFromURI returns the database named in the URI path, or
// DefaultDatabase when the URI names none or cannot be parsed.
func DatabaseFromURI(uri string) string {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil || cs.Database == "" {
		return DefaultDatabase
	}
	return cs.Database
}

// ValidateConfig checks the settings every command needs.
//
// The MongoDB URI format is validated to catch configuration errors early,
// before attempting to connect.
func ValidateConfig(appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.ProgramsCollection == "" {
		return errors.New("programs_collection must not be empty")
	}
	return nil
}

// ValidateLLM checks the text-generation settings. A missing key for the
// selected provider is ErrMissingCredential.
func ValidateLLM(appCfg AppConfig) error {
	switch appCfg.LLMProvider {
	case ProviderOpenAI:
		if strings.TrimSpace(appCfg.OpenAIAPIKey) == "" {
			return fmt.Errorf("%w: set DOCTORADOS_OPENAI_API_KEY or %s", ErrMissingCredential, legacyOpenAIKey)
		}
	case ProviderGemini:
		if strings.TrimSpace(appCfg.GeminiAPIKey) == "" {
			return fmt.Errorf("%w: set DOCTORADOS_GEMINI_API_KEY or %s", ErrMissingCredential, legacyGeminiKey)
		}
	default:
		return fmt.Errorf("unknown llm_provider %q (want %q or %q)", appCfg.LLMProvider, ProviderOpenAI, ProviderGemini)
	}
	if appCfg.LLMTemperature < 0 || appCfg.LLMTemperature > 2 {
		return fmt.Errorf("llm_temperature %v out of range [0, 2]", appCfg.LLMTemperature)
	}
	return nil
}
