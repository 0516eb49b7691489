package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress       string
	DatabaseURI      string
	LogLevel         string
	ShutdownTimeout  time.Duration
	SweepInterval    time.Duration
	MaxRetries       int
	WebhookRetention time.Duration
	WebhookSecret    string

	Queue      QueueConfig
	Storefront StorefrontConfig
	Kunaki     KunakiConfig
	CDClick    CDClickConfig
	GitHub     GitHubConfig
	Approval   ApprovalConfig
}

// QueueConfig selects and tunes the task queue transport.
type QueueConfig struct {
	Brokers       []string
	Topic         string
	GroupID       string
	Workers       int
	MaxDeliveries int
}

// StorefrontConfig points at the sales platform receiving tracking updates.
type StorefrontConfig struct {
	APIURL string
	APIKey string
}

// KunakiConfig holds credentials of the domestic provider.
type KunakiConfig struct {
	APIURL   string
	Username string
	Password string
}

// CDClickConfig holds credentials of the international provider.
type CDClickConfig struct {
	APIURL string
	APIKey string
}

// GitHubConfig configures the GitHub App used by the approval gate.
type GitHubConfig struct {
	AppID         int64
	PrivateKey    string
	APIURL        string
	WebhookSecret string
}

// ApprovalConfig configures reviewer authorization and deployment stage filters.
type ApprovalConfig struct {
	AllowedUsersURL string
	AllowedUsersTTL time.Duration
	Environment     string
	Stage           string
	DevPRNumber     int
}

const (
	defaultRunAddress       = ":8080"
	defaultLogLevel         = "info"
	defaultShutdownTimeout  = 10 * time.Second
	defaultSweepInterval    = 10 * time.Minute
	defaultMaxRetries       = 3
	defaultWebhookRetention = 30 * 24 * time.Hour
	defaultQueueTopic       = "fulfillrelay.tasks"
	defaultQueueGroupID     = "fulfillrelay"
	defaultQueueWorkers     = 4
	defaultMaxDeliveries    = 5
	defaultStorefrontURL    = "https://api.fourthwall.com/v1"
	defaultKunakiURL        = "https://kunaki.com/HTTPService.asp"
	defaultCDClickURL       = "https://wall.cdclick-europe.com/API"
	defaultGitHubAPIURL     = "https://api.github.com/"
	defaultAllowedUsersTTL  = 5 * time.Minute
	defaultEnvironment      = "prod"
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:       getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:      getString(lookup, "DATABASE_URI", ""),
		LogLevel:         getString(lookup, "LOG_LEVEL", defaultLogLevel),
		ShutdownTimeout:  getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		SweepInterval:    getDuration(lookup, "SWEEP_INTERVAL", defaultSweepInterval),
		MaxRetries:       getInt(lookup, "MAX_FULFILLMENT_RETRIES", defaultMaxRetries),
		WebhookRetention: getDuration(lookup, "WEBHOOK_RETENTION", defaultWebhookRetention),
		WebhookSecret:    getString(lookup, "WEBHOOK_SECRET", ""),
		Queue: QueueConfig{
			Brokers:       splitList(getString(lookup, "KAFKA_BROKERS", "")),
			Topic:         getString(lookup, "QUEUE_TOPIC", defaultQueueTopic),
			GroupID:       getString(lookup, "QUEUE_GROUP_ID", defaultQueueGroupID),
			Workers:       getInt(lookup, "QUEUE_WORKERS", defaultQueueWorkers),
			MaxDeliveries: getInt(lookup, "QUEUE_MAX_DELIVERIES", defaultMaxDeliveries),
		},
		Storefront: StorefrontConfig{
			APIURL: getString(lookup, "STOREFRONT_API_URL", defaultStorefrontURL),
			APIKey: getString(lookup, "STOREFRONT_API_KEY", ""),
		},
		Kunaki: KunakiConfig{
			APIURL:   getString(lookup, "KUNAKI_API_URL", defaultKunakiURL),
			Username: getString(lookup, "KUNAKI_USERNAME", ""),
			Password: getString(lookup, "KUNAKI_PASSWORD", ""),
		},
		CDClick: CDClickConfig{
			APIURL: getString(lookup, "CDCLICK_API_URL", defaultCDClickURL),
			APIKey: getString(lookup, "CDCLICK_API_KEY", ""),
		},
		GitHub: GitHubConfig{
			AppID:         int64(getInt(lookup, "GITHUB_APP_ID", 0)),
			PrivateKey:    getString(lookup, "GITHUB_PRIVATE_KEY", ""),
			APIURL:        getString(lookup, "GITHUB_API_URL", defaultGitHubAPIURL),
			WebhookSecret: getString(lookup, "GITHUB_WEBHOOK_SECRET", ""),
		},
		Approval: ApprovalConfig{
			AllowedUsersURL: getString(lookup, "ALLOWED_USERS_URL", ""),
			AllowedUsersTTL: getDuration(lookup, "ALLOWED_USERS_TTL", defaultAllowedUsersTTL),
			Environment:     getString(lookup, "ENVIRONMENT", defaultEnvironment),
			Stage:           getString(lookup, "STAGE", ""),
			DevPRNumber:     getInt(lookup, "DEV_PR_NUMBER", 0),
		},
	}

	fs := flag.NewFlagSet("fulfillrelay", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		shutdownTimeoutStr  = cfg.ShutdownTimeout.String()
		sweepIntervalStr    = cfg.SweepInterval.String()
		webhookRetentionStr = cfg.WebhookRetention.String()
		brokersStr          = strings.Join(cfg.Queue.Brokers, ",")
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.StringVar(&sweepIntervalStr, "sweep-interval", sweepIntervalStr, "Interval between status and retry sweeps")
	fs.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Maximum provider submission retries")
	fs.StringVar(&webhookRetentionStr, "webhook-retention", webhookRetentionStr, "Retention of processed webhook events")
	fs.StringVar(&brokersStr, "kafka-brokers", brokersStr, "Comma separated Kafka brokers; empty uses in-process queue")
	fs.StringVar(&cfg.Queue.Topic, "queue-topic", cfg.Queue.Topic, "Task topic")
	fs.StringVar(&cfg.Queue.GroupID, "queue-group", cfg.Queue.GroupID, "Task consumer group")
	fs.IntVar(&cfg.Queue.Workers, "queue-workers", cfg.Queue.Workers, "Number of concurrent task consumers")
	fs.IntVar(&cfg.Queue.MaxDeliveries, "queue-max-deliveries", cfg.Queue.MaxDeliveries, "Maximum deliveries per task")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if cfg.SweepInterval, err = time.ParseDuration(sweepIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid sweep interval: %w", err)
	}

	if cfg.WebhookRetention, err = time.ParseDuration(webhookRetentionStr); err != nil {
		return nil, fmt.Errorf("invalid webhook retention: %w", err)
	}

	cfg.Queue.Brokers = splitList(brokersStr)

	secrets := []struct {
		env    string
		target *string
	}{
		{"WEBHOOK_SECRET_FILE", &cfg.WebhookSecret},
		{"GITHUB_WEBHOOK_SECRET_FILE", &cfg.GitHub.WebhookSecret},
		{"GITHUB_PRIVATE_KEY_FILE", &cfg.GitHub.PrivateKey},
	}
	for _, s := range secrets {
		path, ok := lookup(s.env)
		if !ok || path == "" {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", strings.ToLower(s.env), err)
		}
		*s.target = strings.TrimSpace(string(content))
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	if cfg.WebhookRetention <= 0 {
		cfg.WebhookRetention = defaultWebhookRetention
	}

	if cfg.Queue.Workers <= 0 {
		cfg.Queue.Workers = defaultQueueWorkers
	}

	if cfg.Queue.MaxDeliveries <= 0 {
		cfg.Queue.MaxDeliveries = defaultMaxDeliveries
	}

	if cfg.Approval.AllowedUsersTTL <= 0 {
		cfg.Approval.AllowedUsersTTL = defaultAllowedUsersTTL
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	return cfg, nil
}

// CheckName returns the approval check name for the configured environment.
func (c ApprovalConfig) CheckName() string {
	const base = "Approval Check"
	if c.Environment != "" && c.Environment != defaultEnvironment {
		return fmt.Sprintf("%s (%s)", base, c.Environment)
	}
	return base
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
