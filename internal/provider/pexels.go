package provider

import (
	"context"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/narrator/internal/config"
)

const pexelsBaseURL = "https://api.pexels.com"

// Pexels searches the Pexels video library for portrait clips.
type Pexels struct {
	client *resty.Client
}

func NewPexels(cfg config.StockConfig) *Pexels {
	base := cfg.BaseURL
	if base == "" {
		base = pexelsBaseURL
	}
	return &Pexels{client: newClient(base).SetHeader("Authorization", cfg.APIKey)}
}

type pexelsSearchResponse struct {
	Videos []pexelsVideo `json:"videos"`
}

type pexelsVideo struct {
	ID         int               `json:"id"`
	Duration   int               `json:"duration"`
	VideoFiles []pexelsVideoFile `json:"video_files"`
}

type pexelsVideoFile struct {
	Quality string `json:"quality"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Link    string `json:"link"`
}

// Search returns up to limit clip URLs at least minDuration seconds long.
// For each video the largest portrait rendition is chosen.
func (p *Pexels) Search(ctx context.Context, query string, minDuration, limit int) ([]string, error) {
	var out pexelsSearchResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":       query,
			"per_page":    "15",
			"orientation": "portrait",
		}).
		SetResult(&out).
		Get("/videos/search")
	if err := checkResponse(resp, err); err != nil {
		return nil, transient("pexels", err)
	}

	var urls []string
	for _, v := range out.Videos {
		if v.Duration < minDuration {
			continue
		}
		if link := bestPortrait(v.VideoFiles); link != "" {
			urls = append(urls, link)
		}
		if limit > 0 && len(urls) >= limit {
			break
		}
	}
	return urls, nil
}

func bestPortrait(files []pexelsVideoFile) string {
	var best pexelsVideoFile
	for _, f := range files {
		if f.Height <= f.Width || f.Link == "" {
			continue
		}
		if f.Height > best.Height {
			best = f
		}
	}
	return best.Link
}
