package render

import (
	"strings"
	"unicode/utf8"
)

// Measurer reports the printed width of a string in page units.
type Measurer interface {
	Width(s string) float64
}

// MeasureFunc adapts a function to Measurer.
type MeasureFunc func(s string) float64

func (f MeasureFunc) Width(s string) float64 { return f(s) }

// CharMeasurer treats every rune as one unit wide.
type CharMeasurer struct{}

func (CharMeasurer) Width(s string) float64 { return float64(utf8.RuneCountInString(s)) }

// Wrap breaks text into lines no wider than maxWidth. Explicit newlines are
// kept, words are never split unless a single word is wider than the line.
func Wrap(text string, maxWidth float64, m Measurer) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		lines = append(lines, wrapParagraph(paragraph, maxWidth, m)...)
	}
	return lines
}

func wrapParagraph(paragraph string, maxWidth float64, m Measurer) []string {
	words := strings.Fields(paragraph)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	line := ""
	for _, word := range words {
		if m.Width(word) > maxWidth {
			if line != "" {
				lines = append(lines, line)
			}
			chunks := breakWord(word, maxWidth, m)
			lines = append(lines, chunks[:len(chunks)-1]...)
			line = chunks[len(chunks)-1]
			continue
		}
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if m.Width(candidate) <= maxWidth {
			line = candidate
			continue
		}
		lines = append(lines, line)
		line = word
	}
	return append(lines, line)
}

// breakWord hard-splits a word; every chunk holds at least one rune.
func breakWord(word string, maxWidth float64, m Measurer) []string {
	var chunks []string
	current := ""
	for _, r := range word {
		next := current + string(r)
		if current != "" && m.Width(next) > maxWidth {
			chunks = append(chunks, current)
			next = string(r)
		}
		current = next
	}
	return append(chunks, current)
}
