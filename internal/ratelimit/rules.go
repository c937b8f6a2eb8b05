package ratelimit

import (
	"errors"
	"time"
)

// Rule is one limit/window pair. Window uses a duration string in the
// config file ("1s", "500ms").
type Rule struct {
	Limit  int    `mapstructure:"limit"`
	Window string `mapstructure:"window"`
}

// Config holds the rate limiting settings.
type Config struct {
	Enabled  bool `mapstructure:"enabled"`
	Outbound Rule `mapstructure:"outbound"`
}

// Rules encapsulates configured rate limits and helper methods.
type Rules struct {
	config Config
}

// NewRules constructs rate limiting rules from configuration settings.
func NewRules(cfg Config) *Rules {
	return &Rules{config: cfg}
}

// Enabled reports whether rate limiting is switched on.
func (r *Rules) Enabled() bool {
	return r.config.Enabled
}

// OutboundLimit returns the limit applied to outbound gateway requests.
func (r *Rules) OutboundLimit() (int, time.Duration, error) {
	return parseRule(r.config.Outbound)
}

func parseRule(rule Rule) (int, time.Duration, error) {
	if rule.Window == "" {
		return rule.Limit, 0, errors.New("window duration is not set")
	}
	window, err := time.ParseDuration(rule.Window)
	if err != nil {
		return 0, 0, err
	}
	return rule.Limit, window, nil
}
