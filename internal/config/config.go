package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/mstepanek/gallery-voice/backend/internal/service/realtime"
)

// Config aggregates every setting the service reads from the environment.
type Config struct {
	Server   ServerConfig
	Dataset  DatasetConfig
	Realtime RealtimeConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Dataset:  loadDatasetConfig(),
		Realtime: loadRealtimeConfig(),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// DatasetConfig locates the sculpture dataset file.
type DatasetConfig struct {
	Path string
}

func loadDatasetConfig() DatasetConfig {
	return DatasetConfig{
		Path: getEnvOrDefault("DATASET_PATH", "data/sculptures.json"),
	}
}

// Backend names for the realtime conversation API.
const (
	BackendOpenAI = "openai"
	BackendAzure  = "azure"
)

// RealtimeConfig describes the upstream conversation API: which backend to
// talk to and the per-backend credentials and endpoints.
type RealtimeConfig struct {
	Backend string

	// OpenAI backend
	APIKey  string
	Model   string
	BaseURL string

	// Azure backend
	AzureEndpoint   string
	AzureAPIKey     string
	AzureDeployment string
	AzureAPIVersion string

	Voice              string
	TranscriptionModel string
}

func loadRealtimeConfig() RealtimeConfig {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("BACKEND")))
	if backend != BackendAzure {
		backend = BackendOpenAI
	}

	return RealtimeConfig{
		Backend:            backend,
		APIKey:             strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		Model:              strings.TrimSpace(os.Getenv("OPENAI_MODEL")),
		BaseURL:            strings.TrimSpace(os.Getenv("OPENAI_REALTIME_URL")),
		AzureEndpoint:      strings.TrimSpace(os.Getenv("AZURE_OPENAI_ENDPOINT")),
		AzureAPIKey:        strings.TrimSpace(os.Getenv("AZURE_OPENAI_API_KEY")),
		AzureDeployment:    strings.TrimSpace(os.Getenv("AZURE_OPENAI_DEPLOYMENT")),
		AzureAPIVersion:    getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-10-01-preview"),
		Voice:              getEnvOrDefault("REALTIME_VOICE", "alloy"),
		TranscriptionModel: getEnvOrDefault("REALTIME_TRANSCRIPTION_MODEL", "whisper-1"),
	}
}

// Enabled tells whether the selected backend has its required credentials.
func (c RealtimeConfig) Enabled() bool {
	if c.Backend == BackendAzure {
		return c.AzureEndpoint != "" && c.AzureAPIKey != "" && c.AzureDeployment != ""
	}
	return c.APIKey != ""
}

// DialOptions resolves the endpoint and credentials for the selected backend.
func (c RealtimeConfig) DialOptions() realtime.DialOptions {
	if c.Backend == BackendAzure {
		return realtime.AzureDialOptions(c.AzureEndpoint, c.AzureDeployment, c.AzureAPIKey, c.AzureAPIVersion)
	}
	return realtime.OpenAIDialOptions(c.APIKey, c.Model, c.BaseURL)
}

// SessionOptions is the upstream session configuration every session uses.
func (c RealtimeConfig) SessionOptions() realtime.SessionOptions {
	return realtime.SessionOptions{
		Modalities:         []string{"text", "audio"},
		InputAudioFormat:   "pcm16",
		TranscriptionModel: c.TranscriptionModel,
		Voice:              c.Voice,
		ServerVAD:          true,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
