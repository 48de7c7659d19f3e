package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DownloadStatus represents the current status of a download
type DownloadStatus string

const (
	StatusQueued     DownloadStatus = "queued"
	StatusProcessing DownloadStatus = "processing"
	StatusCompleted  DownloadStatus = "completed"
	StatusFailed     DownloadStatus = "failed"
	StatusCancelled  DownloadStatus = "cancelled"
)

// Download is the persisted history record of one download session
type Download struct {
	ID            string         `json:"id" gorm:"primaryKey"`
	RawURL        string         `json:"raw_url" gorm:"not null"`
	URL           string         `json:"url" gorm:"not null;index"`
	VideoID       string         `json:"video_id,omitempty" gorm:"index"`
	Quality       Quality        `json:"quality" gorm:"not null"`
	AudioOnly     bool           `json:"audio_only"`
	AllowPlaylist bool           `json:"allow_playlist"`
	UseCookies    bool           `json:"use_cookies"`
	CookieBrowser string         `json:"cookie_browser,omitempty"`
	OutputDir     string         `json:"output_dir"`
	Status        DownloadStatus `json:"status" gorm:"not null;index"`
	Stage         Stage          `json:"stage,omitempty"`
	Attempts      int            `json:"attempts" gorm:"default:0"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	ProcessLog    string         `json:"process_log,omitempty" gorm:"type:text"` // tail of yt-dlp output
	CreatedAt     time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

// NewDownload creates a history record for a prepared request
func NewDownload(req DownloadRequest) *Download {
	now := time.Now()
	normalizedURL := req.NormalizedURL()
	videoID, _ := ExtractVideoID(normalizedURL)
	return &Download{
		ID:            uuid.New().String(),
		RawURL:        req.RawURL,
		URL:           normalizedURL,
		VideoID:       videoID,
		Quality:       req.Quality,
		AudioOnly:     req.AudioOnly,
		AllowPlaylist: req.AllowPlaylist,
		UseCookies:    req.UseCookies,
		CookieBrowser: req.CookieBrowser,
		OutputDir:     req.OutputDir,
		Status:        StatusQueued,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Request rebuilds the request that produced this record
func (d *Download) Request() DownloadRequest {
	return DownloadRequest{
		RawURL:        d.RawURL,
		Quality:       d.Quality,
		AudioOnly:     d.AudioOnly,
		AllowPlaylist: d.AllowPlaylist,
		UseCookies:    d.UseCookies,
		CookieBrowser: d.CookieBrowser,
		OutputDir:     d.OutputDir,
	}
}

// MarkProcessing marks the download as processing
func (d *Download) MarkProcessing() {
	d.Status = StatusProcessing
	now := time.Now()
	d.StartedAt = &now
	d.UpdatedAt = now
}

// MarkCompleted marks the download as completed
func (d *Download) MarkCompleted(stage Stage) {
	d.Status = StatusCompleted
	d.Stage = stage
	d.ErrorMessage = ""
	d.finish()
}

// MarkFailed marks the download as failed
func (d *Download) MarkFailed(stage Stage, err error) {
	d.Status = StatusFailed
	d.Stage = stage
	if err != nil {
		d.ErrorMessage = err.Error()
	}
	d.finish()
}

// MarkCancelled marks the download as cancelled
func (d *Download) MarkCancelled(stage Stage) {
	d.Status = StatusCancelled
	d.Stage = stage
	d.ErrorMessage = ErrCancelled.Error()
	d.finish()
}

func (d *Download) finish() {
	now := time.Now()
	d.CompletedAt = &now
	d.UpdatedAt = now
}

// RecordAttempt counts one runner invocation
func (d *Download) RecordAttempt(stage Stage) {
	d.Attempts++
	d.Stage = stage
	d.UpdatedAt = time.Now()
}

// SetProcessLog stores the captured output tail
func (d *Download) SetProcessLog(lines []string) {
	d.ProcessLog = strings.Join(lines, "\n")
}

// CanRetry checks if the download can be started again
func (d *Download) CanRetry() bool {
	return d.Status == StatusFailed || d.Status == StatusCancelled
}

// IsTerminal checks if the download is in a terminal state
func (d *Download) IsTerminal() bool {
	return d.Status == StatusCompleted || d.Status == StatusFailed || d.Status == StatusCancelled
}

// IsProcessing checks if the download is currently processing
func (d *Download) IsProcessing() bool {
	return d.Status == StatusProcessing
}

// Duration returns how long the download ran, or zero if it never started
func (d *Download) Duration() time.Duration {
	if d.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if d.CompletedAt != nil {
		end = *d.CompletedAt
	}
	return end.Sub(*d.StartedAt)
}

// ValidateStatus checks if a status string is known
func ValidateStatus(status DownloadStatus) bool {
	switch status {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}
