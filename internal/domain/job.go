package domain

import "time"

// JobStatus represents the status of a narration job.
// Values include JobStatusPending, JobStatusRunning, JobStatusCompleted, and JobStatusFailed.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobMode selects how visuals are obtained.
type JobMode string

const (
	// JobModeReels narrates over a pool of looped stock clips.
	JobModeReels JobMode = "reels"
	// JobModeStory narrates over one generated image per sentence.
	JobModeStory JobMode = "story"
)

// Valid reports whether m is a known mode.
func (m JobMode) Valid() bool {
	return m == JobModeReels || m == JobModeStory
}

// Job is a narrated video request and its progress metadata.
type Job struct {
	ID                 string      `gorm:"type:text;primaryKey" json:"id"`
	Mode               JobMode     `gorm:"type:text;not null" json:"mode"`
	Status             JobStatus   `gorm:"type:text;index:idx_jobs_status;default:pending" json:"status"`
	Prompt             string      `gorm:"type:text" json:"prompt,omitempty"`
	Script             string      `gorm:"type:text" json:"script,omitempty"`
	VideoPaths         StringArray `gorm:"type:text" json:"video_paths,omitempty"`
	BackgroundAudioURL string      `gorm:"type:text" json:"background_audio_url,omitempty"`
	ImageStyle         string      `gorm:"type:text" json:"image_style,omitempty"`
	Voice              string      `gorm:"type:text" json:"voice,omitempty"`
	SentenceCount      int         `gorm:"default:0" json:"sentence_count"`
	SegmentCount       int         `gorm:"default:0" json:"segment_count"`
	DurationSeconds    float64     `gorm:"default:0" json:"duration_seconds"`
	OutputPath         string      `gorm:"type:text" json:"output_path,omitempty"`
	PreviewPath        string      `gorm:"type:text" json:"preview_path,omitempty"`
	OutputURL          string      `gorm:"type:text" json:"output_url,omitempty"`
	PreviewURL         string      `gorm:"type:text" json:"preview_url,omitempty"`
	ErrorLog           string      `gorm:"type:text" json:"error_log,omitempty"`
	StartedAt          *time.Time  `json:"started_at,omitempty"`
	CompletedAt        *time.Time  `json:"completed_at,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// TableName returns the database table name for Job.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Job) TableName() string {
	return "jobs"
}
