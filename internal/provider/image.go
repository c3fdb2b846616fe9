package provider

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/narrator/internal/config"
)

const (
	deepInfraBaseURL    = "https://api.deepinfra.com"
	deepInfraModel      = "black-forest-labs/FLUX-1-schnell"
	pollinationsBaseURL = "https://image.pollinations.ai"
	airforceBaseURL     = "https://api.airforce"
	togetherBaseURL     = "https://api.together.xyz"
	togetherModel       = "black-forest-labs/FLUX.1-schnell-Free"
)

// DeepInfra runs FLUX through the DeepInfra inference API.
type DeepInfra struct {
	client *resty.Client
	model  string
}

func NewDeepInfra(cfg config.ProviderConfig) *DeepInfra {
	base := cfg.BaseURL
	if base == "" {
		base = deepInfraBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = deepInfraModel
	}
	return &DeepInfra{client: newClient(base).SetAuthToken(cfg.APIKey), model: model}
}

func (p *DeepInfra) Name() string { return "deepinfra" }

type deepInfraResponse struct {
	Images []string `json:"images"`
}

func (p *DeepInfra) Synthesize(ctx context.Context, req ImageRequest, outDir string) (string, error) {
	var out deepInfraResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"width":               strconv.Itoa(req.Width),
			"height":              strconv.Itoa(req.Height),
			"seed":                "24",
			"num_inference_steps": "5",
			"guidance_scale":      "10",
		}).
		SetBody(map[string]string{"prompt": req.Prompt}).
		SetResult(&out).
		Post("/v1/inference/" + p.model)
	if err := checkResponse(resp, err); err != nil {
		return "", transient(p.Name(), err)
	}
	if len(out.Images) == 0 {
		return "", transient(p.Name(), fmt.Errorf("no image in response"))
	}
	data, err := decodeBase64Image(out.Images[0])
	if err != nil {
		return "", transient(p.Name(), fmt.Errorf("decode image: %w", err))
	}
	return writeArtifact(outDir, p.Name(), ".png", data)
}

// Pollinations fetches images from the keyless pollinations.ai endpoint.
type Pollinations struct {
	client *resty.Client
}

func NewPollinations(cfg config.ProviderConfig) *Pollinations {
	base := cfg.BaseURL
	if base == "" {
		base = pollinationsBaseURL
	}
	return &Pollinations{client: newClient(base)}
}

func (p *Pollinations) Name() string { return "pollinations" }

func (p *Pollinations) Synthesize(ctx context.Context, req ImageRequest, outDir string) (string, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(fluxQuery(req)).
		Get("/prompt/" + url.PathEscape(req.Prompt))
	if err := checkResponse(resp, err); err != nil {
		return "", transient(p.Name(), err)
	}
	return writeArtifact(outDir, p.Name(), ".jpg", resp.Body())
}

// Airforce fetches images from the api.airforce imagine endpoint.
type Airforce struct {
	client *resty.Client
}

func NewAirforce(cfg config.ProviderConfig) *Airforce {
	base := cfg.BaseURL
	if base == "" {
		base = airforceBaseURL
	}
	return &Airforce{client: newClient(base)}
}

func (p *Airforce) Name() string { return "airforce" }

func (p *Airforce) Synthesize(ctx context.Context, req ImageRequest, outDir string) (string, error) {
	q := fluxQuery(req)
	q["prompt"] = req.Prompt
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(q).
		Get("/v1/imagine")
	if err := checkResponse(resp, err); err != nil {
		return "", transient(p.Name(), err)
	}
	return writeArtifact(outDir, p.Name(), ".jpg", resp.Body())
}

func fluxQuery(req ImageRequest) map[string]string {
	return map[string]string{
		"width":  strconv.Itoa(req.Width),
		"height": strconv.Itoa(req.Height),
		"model":  fluxVariant(req.Style),
		"seed":   strconv.Itoa(300 + rand.IntN(1700)),
		"nologo": "true",
	}
}

// Together runs FLUX through the Together images API.
type Together struct {
	client *resty.Client
	model  string
}

func NewTogether(cfg config.ProviderConfig) *Together {
	base := cfg.BaseURL
	if base == "" {
		base = togetherBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = togetherModel
	}
	return &Together{client: newClient(base).SetAuthToken(cfg.APIKey), model: model}
}

func (p *Together) Name() string { return "together" }

type togetherRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	Steps          int    `json:"steps"`
	ResponseFormat string `json:"response_format"`
	Seed           int    `json:"seed"`
}

type togetherResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

func (p *Together) Synthesize(ctx context.Context, req ImageRequest, outDir string) (string, error) {
	var out togetherResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(togetherRequest{
			Model:          p.model,
			Prompt:         req.Prompt,
			Width:          req.Width,
			Height:         req.Height,
			Steps:          4,
			ResponseFormat: "b64_json",
			Seed:           10 + rand.IntN(90),
		}).
		SetResult(&out).
		Post("/v1/images/generations")
	if err := checkResponse(resp, err); err != nil {
		return "", transient(p.Name(), err)
	}
	if len(out.Data) == 0 || out.Data[0].B64JSON == "" {
		return "", transient(p.Name(), fmt.Errorf("no image in response"))
	}
	data, err := decodeBase64Image(out.Data[0].B64JSON)
	if err != nil {
		return "", transient(p.Name(), fmt.Errorf("decode image: %w", err))
	}
	return writeArtifact(outDir, p.Name(), ".png", data)
}
