package domain

// AssetKind identifies what a generator or cache bucket produces.
type AssetKind string

const (
	AssetSpeech AssetKind = "speech"
	AssetImage  AssetKind = "image"
	AssetVideo  AssetKind = "video"
	AssetAudio  AssetKind = "audio"
	AssetLLM    AssetKind = "llm"
)

// SpeechAsset is the synthesized narration for one sentence. Duration is
// probed from the file and drives all downstream timing.
type SpeechAsset struct {
	Sentence Sentence `json:"sentence"`
	Path     string   `json:"path"`
	Duration float64  `json:"duration"`
}

// VisualKind distinguishes generated stills from stock footage.
type VisualKind string

const (
	VisualImage VisualKind = "image"
	VisualVideo VisualKind = "video"
)

// VisualAsset is either an image tied to one sentence or a stock clip shared
// across the timeline.
type VisualAsset struct {
	Kind VisualKind `json:"kind" yaml:"kind"`
	Path string     `json:"path" yaml:"path"`
	// SourceDuration is the native clip length; zero for images.
	SourceDuration float64 `json:"source_duration" yaml:"source_duration"`
	// TargetDuration is assigned by the timeline assembler.
	TargetDuration float64 `json:"target_duration" yaml:"target_duration"`
}

// Loopable reports whether the asset can be held for any duration.
func (v VisualAsset) Loopable() bool {
	return v.Kind == VisualImage
}

// TimelineSegment places a visual asset on the output timeline.
type TimelineSegment struct {
	Visual   VisualAsset `json:"visual" yaml:"visual"`
	Start    float64     `json:"start" yaml:"start"`
	Duration float64     `json:"duration" yaml:"duration"`
}

// End returns the segment end offset in seconds.
func (s TimelineSegment) End() float64 {
	return s.Start + s.Duration
}

// CaptionEntry is one subtitle cue. Times are seconds from the start of the
// video.
type CaptionEntry struct {
	Index int     `json:"index" yaml:"index"`
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
	Text  string  `json:"text" yaml:"text"`
}

// Duration returns End - Start.
func (c CaptionEntry) Duration() float64 {
	return c.End - c.Start
}
