// Package prompts holds the LLM prompt templates used to write scripts and
// describe scenes.
package prompts

import (
	"fmt"
	"strings"
)

// ============================================================================
// Script
// ============================================================================

// ScriptSystemPrompt sets the writer persona for voiceover scripts.
const ScriptSystemPrompt = `You are an expert short form video voiceover writer for Instagram Reels and YouTube Shorts.`

// scriptUserTemplate asks for narration only, no stage directions.
const scriptUserTemplate = `You are creating a voiceover for a '%s' video about the prompt below.
Provide only the voiceover text, lasting around %s.
Do not include parentheses, music cues or sound effect tags.

[Prompt]:
%s`

// ScriptUserPrompt fills the script template.
func ScriptUserPrompt(videoType, duration, prompt string) string {
	return fmt.Sprintf(scriptUserTemplate, videoType, duration, strings.TrimSpace(prompt))
}

// ============================================================================
// Stock footage search terms
// ============================================================================

// SearchTermsSystemPrompt asks for stock library queries.
const SearchTermsSystemPrompt = `Generate pexels.com video search terms for the script below. The terms are sent to a search API, so keep each one to two to four plain words.

Examples: Timing and letting go, Weakness and strength, Focus and hustle, Ocean at dawn.`

// SearchTermsUserPrompt fills the search term request.
func SearchTermsUserPrompt(script string, max int) string {
	return fmt.Sprintf("Return at most %d search terms.\n\n[Script]:\n%s", max, strings.TrimSpace(script))
}

// ============================================================================
// Scene descriptions (image prompts)
// ============================================================================

// ImagePromptsSystemPrompt describes how each paragraph becomes one scene.
const ImagePromptsSystemPrompt = `You are a master of detailed visual narratives. For each paragraph of a story, describe one scene for an illustrator.

For each paragraph:
- Describe the scene, environment and characters, keeping recurring characters and objects visually consistent.
- Use keywords and descriptive phrases rather than full sentences.
- Do not include titles, names or captions.

Example:
- A small, dimly lit room with worn wooden furniture, a single flickering candle, and an old woman (slightly hunched, faded shawl, wisps of gray hair) gazing out of a tiny window.`

// ImagePromptsUserPrompt lists the paragraphs and the required count.
func ImagePromptsUserPrompt(sentences []string, style string) string {
	var b strings.Builder
	b.WriteString("[Paragraphs]:\n")
	for _, s := range sentences {
		b.WriteString("- ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	if style != "" {
		fmt.Fprintf(&b, "\nVisual style: %s\n", style)
	}
	fmt.Fprintf(&b, "\nYou must return exactly %d descriptions, one per paragraph, in order.", len(sentences))
	return b.String()
}
