package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL     string
	TemporalAddress string
	HTTPListenAddr  string
	MetricsAddr     string
	LogLevel        string
	ServiceName     string

	// CentralAccountID is the AWS account that owns the forwarder functions
	// and cross-account log destinations.
	CentralAccountID string
	// CentralRegion is the home region of the central processing function.
	CentralRegion string
	// ProcessorFunctionArn is the central Lambda that receives forwarded
	// WAF log events from every regional forwarder.
	ProcessorFunctionArn string
	// MonitorRegions is the set of regions scanned when listing candidate
	// web ACLs for a tenant.
	MonitorRegions []string

	Tuning Tuning
}

// Tuning holds the retry counts and propagation delays used by the
// provisioning pipeline. Everything is injectable so tests can run the
// pipeline with a fake sleeper and tiny budgets.
type Tuning struct {
	LogDeliveryMaxAttempts int
	LogDeliveryRetryDelay  time.Duration
	FilterMaxAttempts      int
	FilterRetryDelay       time.Duration
	PolicyPropagationDelay time.Duration
	DestinationGrantDelay  time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		TemporalAddress:      getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		HTTPListenAddr:       getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsAddr:          getEnv("METRICS_ADDR", ""),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		ServiceName:          getEnv("SERVICE_NAME", "wafmon"),
		CentralAccountID:     getEnv("CENTRAL_ACCOUNT_ID", ""),
		CentralRegion:        getEnv("CENTRAL_REGION", "us-east-1"),
		ProcessorFunctionArn: getEnv("PROCESSOR_FUNCTION_ARN", ""),
		MonitorRegions:       getEnvList("MONITOR_REGIONS", "us-east-1"),
		Tuning: Tuning{
			LogDeliveryMaxAttempts: getEnvInt("LOG_DELIVERY_MAX_ATTEMPTS", 4),
			LogDeliveryRetryDelay:  getEnvDuration("LOG_DELIVERY_RETRY_DELAY", 5*time.Second),
			FilterMaxAttempts:      getEnvInt("FILTER_MAX_ATTEMPTS", 3),
			FilterRetryDelay:       getEnvDuration("FILTER_RETRY_DELAY", 10*time.Second),
			PolicyPropagationDelay: getEnvDuration("POLICY_PROPAGATION_DELAY", 10*time.Second),
			DestinationGrantDelay:  getEnvDuration("DESTINATION_GRANT_DELAY", 5*time.Second),
		},
	}

	return cfg, nil
}

// Validate checks that the config has everything the given binary needs.
func (c *Config) Validate(role string) error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.TemporalAddress == "" {
		return fmt.Errorf("TEMPORAL_ADDRESS is required")
	}

	if role == "worker" {
		if c.CentralAccountID == "" {
			return fmt.Errorf("CENTRAL_ACCOUNT_ID is required for the worker")
		}
		if c.ProcessorFunctionArn == "" {
			return fmt.Errorf("PROCESSOR_FUNCTION_ARN is required for the worker")
		}
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			return d
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	parts := strings.Split(getEnv(key, fallback), ",")
	var out []string
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
