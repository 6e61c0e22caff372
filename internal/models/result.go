package models

// SearchResult is one record returned by the search provider. Duration
// keeps the provider's native clock text ("MM:SS" or "H:MM:SS"); parse it
// with ParseClock when a time value is needed.
type SearchResult struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Duration string `json:"duration"`
}

// Download quality
const (
	QualityBest  = "best"
	QualityWorst = "worst"
	QualityAudio = "audio"
)

// DownloadJob describes one media download attempt. Jobs are ephemeral:
// they are derived from a dataset entry each time a download is tried and
// are never persisted.
type DownloadJob struct {
	ID          string
	Link        string
	Title       string
	Quality     string
	Format      string
	Resolution  string
	Destination string
}

// DownloadResult reports a finished download.
type DownloadResult struct {
	BytesWritten int64
	FilePath     string
}
