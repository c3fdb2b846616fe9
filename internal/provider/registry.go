package provider

import (
	"sort"

	"github.com/timmy/narrator/internal/config"
	"github.com/timmy/narrator/internal/domain"
)

type (
	SpeechFactory func(cfg config.ProviderConfig) SpeechProvider
	ImageFactory  func(cfg config.ProviderConfig) ImageProvider
)

// Registry maps provider identities from configuration to constructors.
type Registry struct {
	speech map[string]SpeechFactory
	image  map[string]ImageFactory
}

// NewRegistry returns a registry with the built-in backends registered.
func NewRegistry() *Registry {
	r := &Registry{
		speech: make(map[string]SpeechFactory),
		image:  make(map[string]ImageFactory),
	}
	r.RegisterSpeech("elevenlabs", func(c config.ProviderConfig) SpeechProvider { return NewElevenLabs(c) })
	r.RegisterSpeech("openai", func(c config.ProviderConfig) SpeechProvider { return NewOpenAISpeech(c) })
	r.RegisterImage("deepinfra", func(c config.ProviderConfig) ImageProvider { return NewDeepInfra(c) })
	r.RegisterImage("pollinations", func(c config.ProviderConfig) ImageProvider { return NewPollinations(c) })
	r.RegisterImage("airforce", func(c config.ProviderConfig) ImageProvider { return NewAirforce(c) })
	r.RegisterImage("together", func(c config.ProviderConfig) ImageProvider { return NewTogether(c) })
	return r
}

// RegisterSpeech adds or replaces a speech backend.
func (r *Registry) RegisterSpeech(name string, f SpeechFactory) {
	r.speech[name] = f
}

// RegisterImage adds or replaces an image backend.
func (r *Registry) RegisterImage(name string, f ImageFactory) {
	r.image[name] = f
}

// SpeechChain builds the primary speech provider followed by its fallbacks.
func (r *Registry) SpeechChain(cfg config.SpeechConfig) ([]SpeechProvider, error) {
	var out []SpeechProvider
	for _, name := range cfg.Chain() {
		f, ok := r.speech[name]
		if !ok {
			return nil, domain.Configurationf("unknown speech provider %q (known: %v)", name, keys(r.speech))
		}
		pc := cfg.Providers[name]
		pc.ResolveEnvVars()
		out = append(out, f(pc))
	}
	return out, nil
}

// ImageChain builds the primary image provider followed by its fallbacks.
func (r *Registry) ImageChain(cfg config.ImageConfig) ([]ImageProvider, error) {
	var out []ImageProvider
	for _, name := range cfg.Chain() {
		f, ok := r.image[name]
		if !ok {
			return nil, domain.Configurationf("unknown image provider %q (known: %v)", name, keys(r.image))
		}
		pc := cfg.Providers[name]
		pc.ResolveEnvVars()
		out = append(out, f(pc))
	}
	return out, nil
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
