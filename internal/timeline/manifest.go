package timeline

import (
	"fmt"
	"os"

	"github.com/timmy/narrator/internal/domain"
	"gopkg.in/yaml.v3"
)

// Plan is the assembled job layout written next to the output as plan.yaml.
type Plan struct {
	JobID     string                   `yaml:"job_id,omitempty"`
	Mode      domain.JobMode           `yaml:"mode"`
	Total     float64                  `yaml:"total_duration"`
	Sentences []string                 `yaml:"sentences"`
	Speech    []string                 `yaml:"speech,omitempty"`
	Segments  []domain.TimelineSegment `yaml:"segments"`
	Captions  []domain.CaptionEntry    `yaml:"captions,omitempty"`
}

// WriteManifest stores p as YAML at path.
func WriteManifest(path string, p *Plan) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	return nil
}

// ReadManifest loads a plan written by WriteManifest.
func ReadManifest(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return &p, nil
}
