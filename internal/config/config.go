package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

const (
	EnvStoreURL = "DERBY_STORE_URL"
	EnvStoreKey = "DERBY_STORE_KEY"

	defaultPort        = "8080"
	defaultJamDuration = 2 * time.Minute
)

// MissingConfigError is returned when a required connection parameter is not set.
// It is the only error in the application that is treated as fatal.
type MissingConfigError struct {
	Missing []string
	Set     []string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Missing, ", "))
}

// Remediation returns instructions for fixing the configuration.
func (e *MissingConfigError) Remediation() string {
	return fmt.Sprintf("Set %s in the environment or in a .env file next to the binary, then restart the service. "+
		"If you are a user, please contact your administrator.", strings.Join(e.Missing, " and "))
}

// Load reads configuration from environment variables and .env file.
func Load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (Config, error) {
	getEnv := func(key, fallback string) string {
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
		return fallback
	}

	missing := &MissingConfigError{}
	for _, key := range []string{EnvStoreURL, EnvStoreKey} {
		if getEnv(key, "") == "" {
			missing.Missing = append(missing.Missing, key)
		} else {
			missing.Set = append(missing.Set, key)
		}
	}
	if len(missing.Missing) > 0 {
		log.Error("Missing store configuration", "url_set", getEnv(EnvStoreURL, "") != "", "key_set", getEnv(EnvStoreKey, "") != "")
		return Config{}, missing
	}

	jamDuration := defaultJamDuration
	if raw := getEnv("JAM_DURATION", ""); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed < 0 {
			log.Warn("Invalid JAM_DURATION, using default", "value", raw, "default", defaultJamDuration)
		} else {
			jamDuration = parsed
		}
	}

	var origins []string
	for _, origin := range strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}

	cfg := Config{
		Store: StoreConfig{
			URL:    getEnv(EnvStoreURL, ""),
			APIKey: getEnv(EnvStoreKey, ""),
		},
		MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
		Port:          getEnv("PORT", defaultPort),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		JamDuration:   jamDuration,
		CORSOrigins:   origins,
		Slack: SlackConfig{
			Token:     getEnv("SLACK_BOT_TOKEN", ""),
			ChannelID: getEnv("SLACK_CHANNEL_ID", ""),
		},
		ProjectID: getEnv("GCP_PROJECT", ""),
		Logos: LogoStorageConfig{
			Endpoint:        getEnv("LOGO_S3_ENDPOINT", ""),
			Region:          getEnv("LOGO_S3_REGION", ""),
			AccessKeyID:     getEnv("LOGO_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("LOGO_S3_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("LOGO_S3_BUCKET", ""),
			PublicBaseURL:   getEnv("LOGO_PUBLIC_BASE_URL", ""),
		},
	}
	return cfg, nil
}
