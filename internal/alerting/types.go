// Package alerting evaluates metric snapshots against threshold rules.
//
// DESIGN: The Engine exclusively owns the rule set, the active-alert
// registry and the bounded alert history. Rule evaluation, cooldown check
// and lastTriggeredAt update happen under one lock so a rule can never
// double-fire inside its own cooldown window.
package alerting

import (
	"time"

	"github.com/perchsec/sentinel/internal/monitoring"
)

// Operator compares a metric value against a rule threshold.
type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "=="
)

// Valid reports whether the operator is one of the supported comparisons.
func (o Operator) Valid() bool {
	switch o {
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpEqual:
		return true
	}
	return false
}

// compare applies the operator to value and threshold.
func (o Operator) compare(value, threshold float64) bool {
	switch o {
	case OpGreater:
		return value > threshold
	case OpLess:
		return value < threshold
	case OpGreaterEqual:
		return value >= threshold
	case OpLessEqual:
		return value <= threshold
	case OpEqual:
		return value == threshold
	}
	return false
}

// ChannelFlags selects the notification channels a rule fans out to.
type ChannelFlags struct {
	Log     bool `json:"log" yaml:"log"`
	Email   bool `json:"email" yaml:"email"`
	Webhook bool `json:"webhook" yaml:"webhook"`
}

// AlertRule is a named threshold over a dot-addressed metric path.
type AlertRule struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Description     string              `json:"description,omitempty"`
	Metric          string              `json:"metric"` // dot path, e.g. "memory.heapUsedPercent"
	Operator        Operator            `json:"operator"`
	Threshold       float64             `json:"threshold"`
	Severity        monitoring.Severity `json:"severity"`
	Cooldown        time.Duration       `json:"cooldown"`
	Enabled         bool                `json:"enabled"`
	LastTriggeredAt *time.Time          `json:"lastTriggeredAt,omitempty"`
	Channels        ChannelFlags        `json:"channels"`
}

// RuleUpdate is a partial rule edit; nil fields are left unchanged.
type RuleUpdate struct {
	Name        *string
	Description *string
	Metric      *string
	Operator    *Operator
	Threshold   *float64
	Severity    *monitoring.Severity
	Cooldown    *time.Duration
	Enabled     *bool
	Channels    *ChannelFlags
}

// AlertNotification is one fired alert. Rule fields are captured at trigger
// time, not referenced live.
type AlertNotification struct {
	ID             string              `json:"id"`
	RuleID         string              `json:"ruleId"`
	RuleName       string              `json:"ruleName"`
	Metric         string              `json:"metric"`
	Threshold      float64             `json:"threshold"`
	Severity       monitoring.Severity `json:"severity"`
	Value          float64             `json:"value"`
	Message        string              `json:"message"`
	TriggeredAt    time.Time           `json:"triggeredAt"`
	AcknowledgedBy string              `json:"acknowledgedBy,omitempty"`
	AcknowledgedAt *time.Time          `json:"acknowledgedAt,omitempty"`
	Resolved       bool                `json:"resolved"`
	ResolvedAt     *time.Time          `json:"resolvedAt,omitempty"`
	Channels       ChannelFlags        `json:"channels"`
}

// Statistics summarizes the active registry and resolution history.
type Statistics struct {
	Active           int                         `json:"active"`
	BySeverity       map[monitoring.Severity]int `json:"bySeverity"`
	ByMetric         map[string]int              `json:"byMetric"`
	ResolvedCount    int                         `json:"resolvedCount"`
	MeanResolutionMs float64                     `json:"meanResolutionMs"`
}
