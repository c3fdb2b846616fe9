package provider

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/narrator/internal/config"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io"
	elevenLabsModel   = "eleven_multilingual_v2"
	openAIBaseURL     = "https://api.openai.com/v1"
	openAITTSModel    = "tts-1"
)

// ElevenLabs synthesizes speech through the ElevenLabs text-to-speech API.
type ElevenLabs struct {
	client *resty.Client
	model  string
}

func NewElevenLabs(cfg config.ProviderConfig) *ElevenLabs {
	base := cfg.BaseURL
	if base == "" {
		base = elevenLabsBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = elevenLabsModel
	}
	c := newClient(base).SetHeader("xi-api-key", cfg.APIKey)
	return &ElevenLabs{client: c, model: model}
}

func (p *ElevenLabs) Name() string { return "elevenlabs" }

type elevenLabsRequest struct {
	Text          string             `json:"text"`
	ModelID       string             `json:"model_id"`
	VoiceSettings elevenLabsSettings `json:"voice_settings"`
}

type elevenLabsSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

func (p *ElevenLabs) Synthesize(ctx context.Context, text, voice, outDir string) (string, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Accept", "audio/mpeg").
		SetPathParam("voice", voice).
		SetBody(elevenLabsRequest{
			Text:    text,
			ModelID: p.model,
			VoiceSettings: elevenLabsSettings{
				Stability:       0.71,
				SimilarityBoost: 0.5,
				UseSpeakerBoost: true,
			},
		}).
		Post("/v1/text-to-speech/{voice}")
	if err := checkResponse(resp, err); err != nil {
		return "", transient(p.Name(), err)
	}
	return writeArtifact(outDir, p.Name(), ".mp3", resp.Body())
}

// OpenAISpeech synthesizes speech through an OpenAI-compatible /audio/speech endpoint.
type OpenAISpeech struct {
	client *resty.Client
	model  string
}

func NewOpenAISpeech(cfg config.ProviderConfig) *OpenAISpeech {
	base := cfg.BaseURL
	if base == "" {
		base = openAIBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openAITTSModel
	}
	c := newClient(base).SetAuthToken(cfg.APIKey)
	return &OpenAISpeech{client: c, model: model}
}

func (p *OpenAISpeech) Name() string { return "openai" }

func (p *OpenAISpeech) Synthesize(ctx context.Context, text, voice, outDir string) (string, error) {
	if voice == "" {
		voice = "alloy"
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"model":           p.model,
			"input":           text,
			"voice":           voice,
			"response_format": "mp3",
		}).
		Post("/audio/speech")
	if err := checkResponse(resp, err); err != nil {
		return "", transient(p.Name(), err)
	}
	if ct := resp.Header().Get("Content-Type"); ct == "application/json" {
		return "", transient(p.Name(), fmt.Errorf("unexpected json body: %s", resp.String()))
	}
	return writeArtifact(outDir, p.Name(), ".mp3", resp.Body())
}
