package model

// AddressSuggestion is one autocomplete match from the upstream search
// path. Suggestions are never persisted.
type AddressSuggestion struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// UsageStats is a read-only snapshot of request accounting, derived from
// the gate's session counters and the daily ledger.
type UsageStats struct {
	SessionRequests        int `json:"session_requests"`
	SessionDurationMinutes int `json:"session_duration_minutes"`
	HourlyLimit            int `json:"hourly_limit"`
	HourlyRemaining        int `json:"hourly_remaining"`
	DailyRequests          int `json:"daily_requests"`
	DailyLimit             int `json:"daily_limit"`
	DailyRemaining         int `json:"daily_remaining"`
}
