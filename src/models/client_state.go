package models

// Keys of the persisted client state.
const (
	StateKeySubscriptions = "subscriptions"
	StateKeyTheme         = "theme"
	StateKeyTimezone      = "timezone"
	StateKeyIndicators    = "indicators"
)

// MClientStatus is the connection indicator exposed to the UI.
type MClientStatus struct {
	Active        bool     `json:"active"`
	MarketClosed  bool     `json:"market_closed"`
	ReopensAt     int64    `json:"reopens_at,omitempty"`
	Subscriptions []string `json:"subscriptions"`
	LastError     string   `json:"last_error,omitempty"`
}
