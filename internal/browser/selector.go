package browser

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	colonSpacePattern     = regexp.MustCompile(`^([^:]+):\s+(.+)$`)
	containsDoublePattern = regexp.MustCompile(`:contains\("([^"]*)"\)`)
	containsSinglePattern = regexp.MustCompile(`:contains\('([^']*)'\)`)
	containsBarePattern   = regexp.MustCompile(`:contains\(([^)"']+)\)`)
)

// Псевдоклассы, после которых "tag: текст" не переписывается в :has-text.
var knownPseudoClasses = []string{
	":hover", ":focus", ":active", ":visited", ":link", ":checked",
	":disabled", ":enabled", ":first-child", ":last-child", ":nth-child", ":nth-of-type",
	":has-text", ":has", ":not", ":contains", ":visible",
}

// NormalizeSelector приводит селектор от модели к синтаксису Playwright.
// jQuery :contains() превращается в :has-text(), а ошибочное "button: Принять"
// в button:has-text("Принять"). Второе значение сообщает, был ли селектор изменен.
func NormalizeSelector(selector string) (string, bool) {
	normalized := strings.TrimSpace(selector)
	if normalized == "" {
		return normalized, normalized != selector
	}
	changed := normalized != selector

	if submatch := colonSpacePattern.FindStringSubmatch(normalized); len(submatch) == 3 {
		tagPart := strings.TrimSpace(submatch[1])
		textPart := strings.TrimSpace(submatch[2])

		isPseudo := false
		for _, pseudo := range knownPseudoClasses {
			if strings.HasSuffix(tagPart, pseudo) || strings.Contains(normalized, pseudo+"(") {
				isPseudo = true
				break
			}
		}

		if !isPseudo && tagPart != "" && textPart != "" && !strings.ContainsAny(tagPart, `[("'`) {
			normalized = tagPart + `:has-text(` + quoteText(textPart) + `)`
			changed = true
		}
	}

	rewrite := func(pattern *regexp.Regexp) {
		normalized = pattern.ReplaceAllStringFunc(normalized, func(match string) string {
			submatch := pattern.FindStringSubmatch(match)
			if len(submatch) < 2 {
				return match
			}
			changed = true
			return `:has-text(` + quoteText(strings.TrimSpace(submatch[1])) + `)`
		})
	}
	rewrite(containsDoublePattern)
	rewrite(containsSinglePattern)
	rewrite(containsBarePattern)

	return normalized, changed
}

// ValidateSelector отсекает то, что точно не является селектором: пустую строку и URL.
func ValidateSelector(selector string) error {
	trimmed := strings.TrimSpace(selector)
	if trimmed == "" {
		return fmt.Errorf("селектор не может быть пустым")
	}

	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return fmt.Errorf("селектор не может быть URL: %s", selector)
	}

	if strings.Contains(trimmed, "://") {
		return fmt.Errorf("селектор не может содержать протокол (://): %s", selector)
	}

	return nil
}

// TextSelectors строит селекторы поиска по видимому тексту кнопки:
// сначала среди кнопок, затем среди любых элементов.
func TextSelectors(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	quoted := quoteText(text)
	return []string{
		"button:has-text(" + quoted + ")",
		":has-text(" + quoted + ")",
	}
}

// quoteText оборачивает текст в одинарные кавычки, экранируя обратные слеши и кавычки.
func quoteText(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, `'`, `\'`)
	return "'" + text + "'"
}
