package flows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const SuggestProfileThemeFlowName = "suggestProfileThemeFlow"

const (
	minThemeInputLen = 10
	maxThemeInputLen = 1000
)

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type ThemeInput struct {
	MusicTaste       string `json:"musicTaste"`
	MediaDescription string `json:"mediaDescription"`
}

func (in ThemeInput) Validate() []Issue {
	var issues []Issue
	check := func(path, v string) {
		n := utf8.RuneCountInString(strings.TrimSpace(v))
		switch {
		case n == 0:
			issues = append(issues, Issue{Path: path, Message: "Required"})
		case n < minThemeInputLen:
			issues = append(issues, Issue{Path: path, Message: fmt.Sprintf("must be at least %d characters", minThemeInputLen)})
		case n > maxThemeInputLen:
			issues = append(issues, Issue{Path: path, Message: fmt.Sprintf("must be at most %d characters", maxThemeInputLen)})
		}
	}
	check("musicTaste", in.MusicTaste)
	check("mediaDescription", in.MediaDescription)
	return issues
}

type ThemeSuggestion struct {
	ThemeSuggestion string `json:"themeSuggestion"`
	StyleSuggestion string `json:"styleSuggestion"`
	ColorPalette    string `json:"colorPalette"`
}

// SuggestProfileTheme asks gen for a profile theme, style and palette that
// match the user's music taste and media.
func SuggestProfileTheme(gen Generator) Flow {
	return Define(SuggestProfileThemeFlowName, func(ctx context.Context, in ThemeInput) (ThemeSuggestion, error) {
		if gen == nil {
			return ThemeSuggestion{}, errors.New("theme generator not configured")
		}
		text, err := gen.Generate(ctx, themePrompt(in))
		if err != nil {
			return ThemeSuggestion{}, fmt.Errorf("generate theme: %w", err)
		}
		return parseThemeSuggestion(text)
	})
}

func themePrompt(in ThemeInput) string {
	var b strings.Builder
	b.WriteString("You are a profile theming expert with great taste.\n\n")
	b.WriteString("Based on the user's music taste and media content, suggest a profile theme, a profile style and a color palette to match.\n\n")
	b.WriteString("Music taste: ")
	b.WriteString(strings.TrimSpace(in.MusicTaste))
	b.WriteString("\nMedia description: ")
	b.WriteString(strings.TrimSpace(in.MediaDescription))
	b.WriteString("\n\nRespond with a single JSON object and nothing else, using exactly these keys:\n")
	b.WriteString(`{"themeSuggestion": string, "styleSuggestion": string, "colorPalette": "comma separated list of hex color codes"}`)
	return b.String()
}

func parseThemeSuggestion(text string) (ThemeSuggestion, error) {
	raw, err := extractJSONObject(text)
	if err != nil {
		return ThemeSuggestion{}, err
	}

	var out ThemeSuggestion
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return ThemeSuggestion{}, fmt.Errorf("decode theme suggestion: %w", err)
	}
	out.ThemeSuggestion = strings.TrimSpace(out.ThemeSuggestion)
	out.StyleSuggestion = strings.TrimSpace(out.StyleSuggestion)
	if out.ThemeSuggestion == "" || out.StyleSuggestion == "" {
		return ThemeSuggestion{}, errors.New("theme suggestion is incomplete")
	}

	palette, err := normalizePalette(out.ColorPalette)
	if err != nil {
		return ThemeSuggestion{}, err
	}
	out.ColorPalette = palette
	return out, nil
}

// extractJSONObject returns the outermost {...} in text, which may be
// wrapped in a markdown code fence.
func extractJSONObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", errors.New("model reply contains no JSON object")
	}
	return text[start : end+1], nil
}

func normalizePalette(raw string) (string, error) {
	var colors []string
	for _, part := range strings.Split(raw, ",") {
		c := strings.TrimSpace(part)
		if c == "" {
			continue
		}
		if !strings.HasPrefix(c, "#") {
			c = "#" + c
		}
		if !isHexColor(c[1:]) {
			return "", fmt.Errorf("invalid palette color %q", part)
		}
		colors = append(colors, strings.ToUpper(c))
	}
	if len(colors) == 0 {
		return "", errors.New("theme suggestion has an empty palette")
	}
	return strings.Join(colors, ", "), nil
}

func isHexColor(s string) bool {
	if len(s) != 3 && len(s) != 6 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
