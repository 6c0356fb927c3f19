// Package alerting - rules.go holds the default rule set and validation.
package alerting

import (
	"fmt"
	"math"
	"time"
)

// DefaultRules returns the rule set installed at startup. IDs are stable so
// administrative tooling can address them.
func DefaultRules() []AlertRule {
	return []AlertRule{
		{
			ID:          "high-memory",
			Name:        "High memory usage",
			Description: "Heap usage above 80% of heap total",
			Metric:      "memory.heapUsedPercent",
			Operator:    OpGreater,
			Threshold:   80,
			Severity:    "high",
			Cooldown:    5 * time.Minute,
			Enabled:     true,
			Channels:    ChannelFlags{Log: true, Email: true},
		},
		{
			ID:          "slow-response",
			Name:        "Slow responses",
			Description: "Average response time above 2000ms",
			Metric:      "requests.avgResponseTime",
			Operator:    OpGreater,
			Threshold:   2000,
			Severity:    "medium",
			Cooldown:    2 * time.Minute,
			Enabled:     true,
			Channels:    ChannelFlags{Log: true},
		},
		{
			ID:          "high-error-rate",
			Name:        "High error rate",
			Description: "Error rate above 10%",
			Metric:      "requests.errorRate",
			Operator:    OpGreater,
			Threshold:   10,
			Severity:    "critical",
			Cooldown:    1 * time.Minute,
			Enabled:     true,
			Channels:    ChannelFlags{Log: true, Email: true, Webhook: true},
		},
		{
			ID:          "low-cache-hit-rate",
			Name:        "Low cache hit rate",
			Description: "Cache hit rate below 50%",
			Metric:      "cache.hitRate",
			Operator:    OpLess,
			Threshold:   50,
			Severity:    "low",
			Cooldown:    10 * time.Minute,
			Enabled:     true,
			Channels:    ChannelFlags{Log: true},
		},
	}
}

// validateRule rejects malformed rules before they enter the rule set.
func validateRule(r AlertRule) error {
	if r.ID == "" {
		return fmt.Errorf("rule id is required")
	}
	if r.Metric == "" {
		return fmt.Errorf("rule %q: metric path is required", r.ID)
	}
	if !r.Operator.Valid() {
		return fmt.Errorf("rule %q: unknown operator %q", r.ID, r.Operator)
	}
	if math.IsNaN(r.Threshold) || math.IsInf(r.Threshold, 0) {
		return fmt.Errorf("rule %q: threshold must be finite", r.ID)
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("rule %q: unknown severity %q", r.ID, r.Severity)
	}
	if r.Cooldown < 0 {
		return fmt.Errorf("rule %q: cooldown must not be negative", r.ID)
	}
	return nil
}
