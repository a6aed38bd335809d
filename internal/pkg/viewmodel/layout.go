package viewmodel

// Layout is the document-level data shared by every public page.
type Layout struct {
	Title       string
	Description string
	SiteTitle   string
	Theme       string
	Year        int

	// Page id used by the analytics beacons; empty disables tracking.
	PageID   string
	TrackURL string
	ClickURL string

	BackgroundColor string
	TextColor       string
}
