package config

import "time"

// Config holds all configuration for the application.
type Config struct {
	Store         StoreConfig
	MigrationsDir string
	Port          string
	LogLevel      string
	JamDuration   time.Duration
	CORSOrigins   []string
	Slack         SlackConfig
	ProjectID     string
	Logos         LogoStorageConfig
}

// StoreConfig holds the two connection parameters for the league data store.
type StoreConfig struct {
	URL    string
	APIKey string
}

type SlackConfig struct {
	Token     string
	ChannelID string
}

type LogoStorageConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicBaseURL   string
}

// Enabled reports whether Slack notifications can be sent.
func (c SlackConfig) Enabled() bool {
	return c.Token != "" && c.ChannelID != ""
}

// Enabled reports whether every setting needed for logo uploads is present.
func (c LogoStorageConfig) Enabled() bool {
	return c.Region != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.Bucket != "" && c.PublicBaseURL != ""
}
