package domain

import "time"

// Tier is the severity selected from the days left before expiration.
type Tier string

const (
	TierExpired Tier = "expired"
	TierWarning Tier = "warning"
	TierInfo    Tier = "info"
)

// RunKind tells which trigger started a check.
type RunKind string

const (
	RunStartup RunKind = "startup"
	RunDaily   RunKind = "daily"
)

// Alert is a classified, ready-to-send message.
type Alert struct {
	Tier Tier   `json:"tier"`
	Days int    `json:"days"`
	Text string `json:"text"`
}

// CheckReport records the outcome of one check.
type CheckReport struct {
	Domain    string            `json:"domain"`
	Run       RunKind           `json:"run"`
	At        time.Time         `json:"at"`
	Result    *ExpirationResult `json:"result,omitempty"`
	Alert     *Alert            `json:"alert,omitempty"`
	Err       string            `json:"error,omitempty"`
	Delivered bool              `json:"delivered"`
}
