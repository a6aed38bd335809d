package models

// DailyStats is a per-day count used by dashboards.
type DailyStats struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ClickTypeStats aggregates clicks by their tracking tag.
type ClickTypeStats struct {
	ClickType string `json:"clickType"`
	Count     int    `json:"count"`
}
