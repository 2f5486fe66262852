// Package config reads the service settings from DISPATCH_* environment variables.
package config

import (
	"dispatcher/authority"
	"dispatcher/poller"
	"dispatcher/view"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	EnvRemoteURL      = "DISPATCH_REMOTE_URL"
	EnvRemoteToken    = "DISPATCH_REMOTE_TOKEN"
	EnvRemoteRate     = "DISPATCH_REMOTE_RATE"
	EnvPollInterval   = "DISPATCH_POLL_INTERVAL"
	EnvRosterSchedule = "DISPATCH_ROSTER_SCHEDULE"
	EnvDeltaTTL       = "DISPATCH_DELTA_TTL"
	EnvRolePolicy     = "DISPATCH_ROLE_POLICY"
	EnvListenAddr     = "DISPATCH_LISTEN_ADDR"
	EnvSessionsFile   = "DISPATCH_SESSIONS_FILE"
	EnvLogLevel       = "DISPATCH_LOG_LEVEL"
	EnvLogJSON        = "DISPATCH_LOG_JSON"
)

type Config struct {
	RemoteURL   string  `validate:"required,url"`
	RemoteToken string
	RemoteRate  float64 `validate:"gte=0"`

	PollInterval   time.Duration `validate:"gt=0"`
	RosterSchedule string        `validate:"required"`
	DeltaTTL       time.Duration `validate:"gt=0"`

	RolePolicy   authority.RolePolicy `validate:"oneof=first union"`
	ListenAddr   string               `validate:"required"`
	SessionsFile string

	LogLevel string `validate:"oneof=trace debug info warn warning error fatal panic"`
	LogJSON  bool
}

var validate = validator.New()

func Defaults() Config {
	return Config{
		RemoteRate:     20,
		PollInterval:   poller.DefaultInterval,
		RosterSchedule: poller.DefaultRosterSchedule,
		DeltaTTL:       view.DefaultDeltaTTL,
		RolePolicy:     authority.FirstRoleOnly,
		ListenAddr:     ":8080",
		LogLevel:       "info",
	}
}

func ParseConfigFromEnv() (*Config, error) {
	c := Defaults()

	c.RemoteURL = os.ExpandEnv(os.Getenv(EnvRemoteURL))
	c.RemoteToken = os.Getenv(EnvRemoteToken)
	c.SessionsFile = os.Getenv(EnvSessionsFile)
	if v := os.Getenv(EnvRosterSchedule); v != "" {
		c.RosterSchedule = v
	}
	if v := os.Getenv(EnvListenAddr); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}

	if v := os.Getenv(EnvRemoteRate); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s '%s': %w", EnvRemoteRate, v, err)
		}
		c.RemoteRate = rate
	}
	if v := os.Getenv(EnvLogJSON); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s '%s': %w", EnvLogJSON, v, err)
		}
		c.LogJSON = b
	}
	if err := durationFromEnv(EnvPollInterval, &c.PollInterval); err != nil {
		return nil, err
	}
	if err := durationFromEnv(EnvDeltaTTL, &c.DeltaTTL); err != nil {
		return nil, err
	}
	if v := os.Getenv(EnvRolePolicy); v != "" {
		policy, err := authority.ParseRolePolicy(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvRolePolicy, err)
		}
		c.RolePolicy = policy
	}

	if err := validate.Struct(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func durationFromEnv(name string, target *time.Duration) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s '%s': %w", name, v, err)
	}
	*target = d
	return nil
}
