package repository

import (
	"context"
	"errors"

	"github.com/timmy/narrator/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SceneRepository stores generated image prompts for reuse.
type SceneRepository struct {
	db *gorm.DB
}

func NewSceneRepository(db *gorm.DB) *SceneRepository {
	return &SceneRepository{db: db}
}

// Find returns the stored scene for an exact sentence and style, or nil.
func (r *SceneRepository) Find(ctx context.Context, sentence, style string) (*domain.Scene, error) {
	var s domain.Scene
	err := r.db.WithContext(ctx).First(&s, "fingerprint = ?", domain.SceneFingerprint(sentence, style)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// Fingerprints normalize case and spacing; reuse requires the exact text.
	if s.Sentence != sentence {
		return nil, nil
	}
	return &s, nil
}

// Save stores or replaces the scene for sentence and style.
func (r *SceneRepository) Save(ctx context.Context, sentence, style, prompt string) error {
	scene := &domain.Scene{
		Fingerprint: domain.SceneFingerprint(sentence, style),
		Style:       style,
		Sentence:    sentence,
		ImagePrompt: prompt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fingerprint"}},
		DoUpdates: clause.AssignmentColumns([]string{"sentence", "image_prompt", "updated_at"}),
	}).Create(scene).Error
}
