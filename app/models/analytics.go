package models

import "time"

// PageView is an append-only record of a public page visit.
type PageView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PageID    string    `gorm:"type:varchar(36);not null;index:idx_page_views_page_created,priority:1" json:"pageId"`
	Referrer  string    `gorm:"type:varchar(2048)" json:"referrer"`
	UserAgent string    `gorm:"type:varchar(512)" json:"userAgent"`
	IPHash    string    `gorm:"type:varchar(64)" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_page_views_page_created,priority:2" json:"createdAt"`
}

// Click is an append-only record of a tracked element click.
type Click struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PageID    string    `gorm:"type:varchar(36);not null;index:idx_clicks_page_created,priority:1" json:"pageId"`
	ClickType string    `gorm:"type:varchar(191);not null;index" json:"clickType"`
	TargetURL string    `gorm:"type:varchar(2048)" json:"targetUrl"`
	UserAgent string    `gorm:"type:varchar(512)" json:"userAgent"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_clicks_page_created,priority:2" json:"createdAt"`
}
