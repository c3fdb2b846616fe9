package domain

import "time"

// Scene remembers the image prompt generated for a sentence under a visual
// style. Story jobs reuse stored prompts only on exact sentence equality.
type Scene struct {
	Fingerprint Fingerprint `gorm:"type:text;primaryKey" json:"fingerprint"`
	Style       string      `gorm:"type:text" json:"style"`
	Sentence    string      `gorm:"type:text;not null" json:"sentence"`
	ImagePrompt string      `gorm:"type:text;not null" json:"image_prompt"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName returns the database table name for Scene.
func (Scene) TableName() string {
	return "scenes"
}

// SceneFingerprint keys a scene by sentence text and style.
func SceneFingerprint(sentence, style string) Fingerprint {
	return NewFingerprint(sentence, "scene", style)
}
