package config

import (
	"os"
	"strconv"

	"callcenter-core/pkg/constants"
)

// Config holds all configuration for the calling core
type Config struct {
	// AudioOnlyParticipantLimit is the conversation size above which calls
	// are forced to audio only
	AudioOnlyParticipantLimit int

	// UseConstantBitRate requests CBR audio when starting or answering calls
	UseConstantBitRate bool

	// BackendURL is the REST endpoint used for outbound signalling and call
	// config fetches
	BackendURL string

	// GatewayURL is the WebSocket endpoint delivering inbound call events
	GatewayURL string

	// RedisAddr is the address of the directory Redis, empty to use the
	// in-memory directory
	RedisAddr string

	// ServiceName labels the exported metrics
	ServiceName string
}

// LoadConfig reads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		AudioOnlyParticipantLimit: getEnvInt("CALL_AUDIO_ONLY_LIMIT", constants.DefaultAudioOnlyParticipantLimit),
		UseConstantBitRate:        getEnvBool("CALL_USE_CBR", false),
		BackendURL:                getEnv("BACKEND_URL", "http://localhost:8080"),
		GatewayURL:                getEnv("GATEWAY_URL", "ws://localhost:8080/ws/calls"),
		RedisAddr:                 getEnv("REDIS_ADDR", ""),
		ServiceName:               getEnv("SERVICE_NAME", "callcenter"),
	}
}

// Helper functions to read env vars with defaults

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
