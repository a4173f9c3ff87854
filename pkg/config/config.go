// Package config loads proxy configuration from the environment, in the
// same plain os.Getenv style the rest of this codebase's ambient stack
// uses rather than reaching for a flags/config library.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/digitallysavvy/llm-gateway-proxy/pkg/channel"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/family"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/thinking"
)

// Config holds every tunable the proxy reads at startup.
type Config struct {
	ListenAddr string

	// ChannelsFile points at a JSON file describing the Channel records to
	// serve; see LoadChannels.
	ChannelsFile string

	RequestTimeout time.Duration
	MaxRetries     int

	ThinkingThresholds map[family.Family]thinking.Thresholds

	// OpenAIReasoningMaxTokens is the max_completion_tokens value sent to an
	// F-O upstream when a request carries reasoning and the client did not
	// specify its own max-tokens.
	OpenAIReasoningMaxTokens int

	// AnthropicMaxTokens is the max_tokens value sent to an F-A upstream
	// when a request did not specify its own.
	AnthropicMaxTokens int

	TelemetryEnabled bool
}

// Load reads Config from the environment, filling in defaults for anything
// unset.
func Load() Config {
	cfg := Config{
		ListenAddr:               getEnv("PROXY_LISTEN_ADDR", ":8080"),
		ChannelsFile:             getEnv("PROXY_CHANNELS_FILE", "channels.json"),
		RequestTimeout:           time.Duration(getEnvInt("PROXY_REQUEST_TIMEOUT_SECONDS", 120)) * time.Second,
		MaxRetries:               getEnvInt("PROXY_MAX_RETRIES", 2),
		OpenAIReasoningMaxTokens: getEnvInt("PROXY_OPENAI_REASONING_MAX_TOKENS", 32000),
		AnthropicMaxTokens:       getEnvInt("PROXY_ANTHROPIC_MAX_TOKENS", 32000),
		TelemetryEnabled:         getEnvBool("PROXY_TELEMETRY_ENABLED", false),
	}

	def := thinking.DefaultThresholds()
	cfg.ThinkingThresholds = map[family.Family]thinking.Thresholds{
		family.OpenAI: {
			Low:    getEnvInt("PROXY_THINKING_OPENAI_LOW", def.Low),
			Medium: getEnvInt("PROXY_THINKING_OPENAI_MEDIUM", def.Medium),
			High:   getEnvInt("PROXY_THINKING_OPENAI_HIGH", def.High),
		},
		family.Anthropic: {
			Low:    getEnvInt("PROXY_THINKING_ANTHROPIC_LOW", def.Low),
			Medium: getEnvInt("PROXY_THINKING_ANTHROPIC_MEDIUM", def.Medium),
			High:   getEnvInt("PROXY_THINKING_ANTHROPIC_HIGH", def.High),
		},
		family.Gemini: {
			Low:    getEnvInt("PROXY_THINKING_GEMINI_LOW", def.Low),
			Medium: getEnvInt("PROXY_THINKING_GEMINI_MEDIUM", def.Medium),
			High:   getEnvInt("PROXY_THINKING_GEMINI_HIGH", def.High),
		},
	}

	return cfg
}

// channelFileEntry mirrors channel.Channel's JSON shape on disk; kept
// separate so the wire/storage shape can diverge from the in-memory struct
// without touching callers of channel.Channel.
type channelFileEntry struct {
	ID         string            `json:"id"`
	CustomKey  string            `json:"customKey"`
	Family     string            `json:"family"`
	BaseURL    string            `json:"baseUrl"`
	Credential string            `json:"credential"`
	ModelMap   map[string]string `json:"modelMap,omitempty"`
	ProxyURL   string            `json:"proxyUrl,omitempty"`
	TimeoutMS  int               `json:"timeoutMs,omitempty"`
}

// LoadChannels reads the channel records listed in path into Channel
// values. Credentials are expected to already be resolved (e.g. by the
// deployment's secret manager) before they reach this file.
func LoadChannels(path string) ([]*channel.Channel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading channels file: %w", err)
	}
	var entries []channelFileEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("config: parsing channels file: %w", err)
	}

	channels := make([]*channel.Channel, 0, len(entries))
	for _, e := range entries {
		channels = append(channels, &channel.Channel{
			ID:         e.ID,
			CustomKey:  e.CustomKey,
			Family:     family.Family(e.Family),
			BaseURL:    e.BaseURL,
			Credential: e.Credential,
			ModelMap:   e.ModelMap,
			ProxyURL:   e.ProxyURL,
			TimeoutMS:  e.TimeoutMS,
		})
	}
	return channels, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
