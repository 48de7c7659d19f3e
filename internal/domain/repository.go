package domain

// DownloadRepository defines the interface for download history persistence
type DownloadRepository interface {
	// Create creates a new download
	Create(download *Download) error

	// Update updates an existing download
	Update(download *Download) error

	// Delete deletes a download by ID
	Delete(id string) error

	// FindByID finds a download by ID
	FindByID(id string) (*Download, error)

	// FindByStatus finds downloads by status
	FindByStatus(status DownloadStatus) ([]*Download, error)

	// FindByURL finds the newest download of a normalized URL in one of the
	// given statuses. Returns nil, nil if there is none.
	FindByURL(url string, statuses []DownloadStatus) (*Download, error)

	// FindAll finds downloads matching the filter, newest first
	FindAll(filter DownloadFilter) ([]*Download, error)

	// GetStats returns download statistics
	GetStats() (*DownloadStats, error)

	// Close releases the underlying storage
	Close() error
}

// DownloadFilter narrows a history query. Zero values match everything.
type DownloadFilter struct {
	Status  DownloadStatus
	VideoID string
	Limit   int
}

// DownloadStats represents download statistics
type DownloadStats struct {
	Total      int64 `json:"total"`
	Queued     int64 `json:"queued"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	Cancelled  int64 `json:"cancelled"`
	Attempts   int64 `json:"attempts"`
}
