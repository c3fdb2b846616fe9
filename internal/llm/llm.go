// Package llm writes scripts, scene descriptions and stock search terms
// with an OpenAI-compatible chat model. Responses are cached by prompt.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/timmy/narrator/internal/config"
	"github.com/timmy/narrator/internal/domain"
	"github.com/timmy/narrator/internal/logger"
	"github.com/timmy/narrator/internal/prompts"
)

// Cache stores raw completions keyed by fingerprint.
type Cache interface {
	Lookup(ctx context.Context, fp domain.Fingerprint) (string, bool, error)
	Store(ctx context.Context, fp domain.Fingerprint, src string) (string, error)
}

// Client wraps the chat completions API.
type Client struct {
	client openai.Client
	model  string
	cache  Cache
}

// New creates a Client. c may be nil to disable response caching.
func New(cfg config.LLMConfig, c Cache) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, domain.Configurationf("llm api key is not set")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	return &Client{client: openai.NewClient(opts...), model: model, cache: c}, nil
}

// ScriptResponse is the structured script reply.
type ScriptResponse struct {
	Script string `json:"script" jsonschema_description:"The voiceover text only"`
}

// SearchTermsResponse is the structured search term reply.
type SearchTermsResponse struct {
	Terms []string `json:"terms" jsonschema_description:"Stock video search terms, most relevant first"`
}

// ImagePromptsResponse is the structured scene description reply.
type ImagePromptsResponse struct {
	ImagePrompts []string `json:"image_prompts" jsonschema_description:"One scene description per paragraph, in order"`
}

// GenerateSchema reflects T into an inline JSON schema for strict output.
func GenerateSchema[T any]() interface{} {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

var (
	scriptSchema       = GenerateSchema[ScriptResponse]()
	searchTermsSchema  = GenerateSchema[SearchTermsResponse]()
	imagePromptsSchema = GenerateSchema[ImagePromptsResponse]()
)

// Script writes a voiceover for prompt.
func (c *Client) Script(ctx context.Context, mode domain.JobMode, prompt string) (string, error) {
	videoType, duration := "fantasy story", "60 seconds"
	if mode == domain.JobModeReels {
		videoType, duration = "motivational quote", "30 seconds"
	}
	var out ScriptResponse
	if err := c.complete(ctx, "script", scriptSchema,
		prompts.ScriptSystemPrompt, prompts.ScriptUserPrompt(videoType, duration, prompt), &out); err != nil {
		return "", err
	}
	script := strings.TrimSpace(strings.ReplaceAll(out.Script, `"`, ""))
	if script == "" {
		return "", fmt.Errorf("llm returned an empty script")
	}
	return script, nil
}

// SearchTerms returns up to max stock search terms for script.
func (c *Client) SearchTerms(ctx context.Context, script string, max int) ([]string, error) {
	var out SearchTermsResponse
	if err := c.complete(ctx, "search_terms", searchTermsSchema,
		prompts.SearchTermsSystemPrompt, prompts.SearchTermsUserPrompt(script, max), &out); err != nil {
		return nil, err
	}
	terms := make([]string, 0, len(out.Terms))
	for _, t := range out.Terms {
		t = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "#"))
		if t != "" {
			terms = append(terms, t)
		}
		if max > 0 && len(terms) == max {
			break
		}
	}
	return terms, nil
}

// ImagePrompts returns one scene description per sentence. A reply with a
// different count is a consistency error.
func (c *Client) ImagePrompts(ctx context.Context, sentences []string, style string) ([]string, error) {
	var out ImagePromptsResponse
	if err := c.complete(ctx, "image_prompts", imagePromptsSchema,
		prompts.ImagePromptsSystemPrompt, prompts.ImagePromptsUserPrompt(sentences, style), &out); err != nil {
		return nil, err
	}
	if len(out.ImagePrompts) != len(sentences) {
		return nil, domain.Consistencyf("expected %d image prompts, got %d", len(sentences), len(out.ImagePrompts))
	}
	return out.ImagePrompts, nil
}

// complete runs one structured completion, serving it from the cache when
// the same model saw the same prompts before.
func (c *Client) complete(ctx context.Context, name string, schema interface{}, system, user string, out interface{}) error {
	fp := domain.NewFingerprint(system+"\n"+user, "llm", c.model, name)
	ctx = logger.WithField(ctx, logger.FieldFingerprint, fp.Short())

	if raw, ok := c.cached(ctx, fp); ok {
		if err := json.Unmarshal(raw, out); err == nil {
			logger.CtxDebug(ctx, "llm cache hit: %s", name)
			return nil
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model: openai.ChatModel(c.model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   name,
					Schema: schema,
					Strict: openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: llm %s: %v", domain.ErrTransientProvider, name, err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return fmt.Errorf("llm %s: empty response", name)
	}
	raw := completion.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("llm %s: parse response: %w", name, err)
	}
	c.remember(ctx, fp, raw)
	return nil
}

func (c *Client) cached(ctx context.Context, fp domain.Fingerprint) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	path, ok, err := c.cache.Lookup(ctx, fp)
	if err != nil || !ok {
		return nil, false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return raw, true
}

func (c *Client) remember(ctx context.Context, fp domain.Fingerprint, raw string) {
	if c.cache == nil {
		return
	}
	tmp, err := os.MkdirTemp("", "narrator-llm-")
	if err != nil {
		return
	}
	defer os.RemoveAll(tmp)
	src := filepath.Join(tmp, "response.json")
	if err := os.WriteFile(src, []byte(raw), 0o644); err != nil {
		return
	}
	if _, err := c.cache.Store(ctx, fp, src); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("llm cache store failed")
	}
}
