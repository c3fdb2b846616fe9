package provider

import "strings"

// StyledPrompt appends the art style to prompt unless the style is one the
// models render natively (realism, anime).
func StyledPrompt(prompt, style string) string {
	s := strings.ToLower(style)
	if style == "" || strings.Contains(s, "human") || strings.Contains(s, "anime") {
		return prompt
	}
	return prompt + " (Art Style: " + style + ")"
}

// fluxVariant picks the flux model tuned for style.
func fluxVariant(style string) string {
	s := strings.ToLower(style)
	switch {
	case strings.Contains(s, "anime"):
		return "flux-anime"
	case strings.Contains(s, "disney"):
		return "flux-disney"
	default:
		return "flux"
	}
}
