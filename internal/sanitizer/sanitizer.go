// Package sanitizer маскирует чувствительные данные в промптах и ответах
// модели перед записью в журнал.
package sanitizer

import (
	"net/url"
	"strings"
)

// Параметры запроса, значения которых не сохраняются.
var sensitiveParams = []string{
	"token", "access_token", "id_token", "auth", "key", "api_key", "apikey",
	"signature", "sig", "session", "sessionid", "password", "secret",
}

type DataSanitizer struct {
	rules []rule
}

func New() *DataSanitizer {
	return &DataSanitizer{rules: defaultRules}
}

// Sanitize прогоняет текст через все правила по порядку.
func (s *DataSanitizer) Sanitize(text string) string {
	if text == "" {
		return text
	}

	result := text
	for _, r := range s.rules {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}

	return result
}

// SanitizeURL маскирует значения чувствительных параметров запроса.
// Нераспознанный URL возвращается как есть.
func (s *DataSanitizer) SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || (u.RawQuery == "" && u.User == nil) {
		return raw
	}

	query := u.Query()
	changed := false
	for name := range query {
		if isSensitiveParam(name) {
			query.Set(name, "FILTERED")
			changed = true
		}
	}
	if u.User != nil {
		u.User = nil
		changed = true
	}
	if !changed {
		return raw
	}

	if u.RawQuery != "" {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func isSensitiveParam(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range sensitiveParams {
		if lower == p || strings.HasSuffix(lower, "_"+p) {
			return true
		}
	}
	return false
}
