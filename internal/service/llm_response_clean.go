package service

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reFenceStart = regexp.MustCompile("(?is)^\\s*```[a-z]*\\s*")
	reFenceEnd   = regexp.MustCompile("(?is)\\s*```\\s*$")
	reTitleLabel = regexp.MustCompile(`(?i)^\s*(chat\s+)?title\s*:\s*`)
)

// cleanLLMText quita BOM y fences ``` ... ``` dejando el contenido usable.
func cleanLLMText(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = strings.TrimPrefix(s, "\uFEFF")
	s = reFenceStart.ReplaceAllString(s, "")
	s = reFenceEnd.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// cleanTitle deja una sola linea, sin comillas ni etiqueta "Title:", de hasta maxTitleRunes runas.
func cleanTitle(raw string) string {
	s := cleanLLMText(raw)
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			s = line
			break
		}
	}
	s = reTitleLabel.ReplaceAllString(s, "")
	s = strings.Trim(s, "\"'`“”‘’*#\r\t .")
	if utf8.RuneCountInString(s) > maxTitleRunes {
		s = strings.TrimSpace(string([]rune(s)[:maxTitleRunes]))
	}
	return s
}
