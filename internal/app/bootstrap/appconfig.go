// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/doctorados/internal/app/system/timeouts"
)

// AppConfig holds the configuration shared by the maintenance commands.
//
// Values come from DOCTORADOS_* environment variables, configuration files,
// or command-line flags (loaded in LoadConfig). The variable names used by
// the older scripts (MONGODB_URI, OPENAI_API_KEY, GEMINI_API_KEY) are
// honoured as fallbacks.
//
// Each command reads only the fields it needs; the rest keep their defaults.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI           string // MongoDB connection string (e.g., mongodb://localhost:27017/doctorados)
	MongoDatabase      string // Database name; derived from MongoURI when blank
	ProgramsCollection string // Collection holding program records
	CriteriaCollection string // Collection holding the criteria catalog

	// Store timeouts
	Timeouts timeouts.Config

	// Text generation
	LLMProvider    string // "openai" or "gemini"
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	GeminiAPIKey   string
	GeminiModel    string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeout     time.Duration // Bound on one explanation request
	LLMMaxRetries  int           // Retries of transient HTTP failures inside one request

	// initcriteria
	Verify           bool // Only verify, do not initialize
	SeedCatalog      bool // Write the embedded criteria catalog
	OverwriteCatalog bool // Replace an existing catalog when seeding

	// explainstats
	Fields               []string // Metrics to recalculate (reported only)
	GenerateDescriptions bool
	List                 bool   // Print stored explanations instead of annotating
	University           string // Filter for List
}

// Provider names accepted in llm_provider.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)
