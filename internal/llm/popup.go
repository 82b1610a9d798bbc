package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultHTMLLimit ограничивает число символов HTML, уходящих модели.
const DefaultHTMLLimit = 50000

const popupSystemPrompt = "You are an expert at analyzing HTML and identifying popup elements. Always return valid JSON."

const popupPromptTemplate = `Analyze this HTML page and find the cookie consent or privacy popup and the button that dismisses it.

STEP 1 - DETECT THE POPUP:
Look for overlays, modals, banners and consent forms. Typical keywords:
- English: "cookie", "consent", "privacy", "accept", "agree", "continue"
- Bulgarian: "бисквитки", "съгласие", "поверителност", "приемане"
- Russian: "cookie", "согласие", "конфиденциальность", "принять"
- German: "Cookies", "Zustimmen", "Akzeptieren", "Datenschutz"
- Other languages: similar terms

STEP 2 - FIND THE DISMISS BUTTON:
Search the HTML for the ACTUAL element that dismisses the popup. Look for:
1. Button text containing: "Accept", "Agree", "Continue", "OK", "I Accept", "Приемане на всички", "Съгласен", "Принять"
2. Button elements: <button>, <a>, <input type="submit">, <div role="button">
3. Exact attributes from the HTML: id, class names, name, data-* attributes, aria-label

STEP 3 - BUILD A PRECISE SELECTOR:
- Prefer ID if available: "#consent-accept"
- Use specific classes: ".consent-button.primary"
- Combine attributes: "button[name='agree'].btn-primary"
- Use text content as last resort: "button:has-text('Accept')"

IMPORTANT:
- Return the MOST SPECIFIC selector that exists in the HTML
- If multiple buttons exist, choose the "Accept All" or primary action button
- DO NOT return generic selectors like "button[role='button']"
- DO NOT return URLs as selectors
- Look inside forms, divs and iframes for the button

Return ONLY valid JSON:
{
  "popups_found": true/false,
  "elements": [
    {
      "type": "button",
      "selector": "the-exact-css-selector-from-html",
      "button_text": "the actual button text",
      "confidence": 0.0-1.0
    }
  ]
}

If no consent form found, return: {"popups_found": false, "elements": []}

HTML to analyze:
%s`

// BuildPopupPrompt собирает пользовательский промпт для уже усеченного HTML.
func BuildPopupPrompt(html string) string {
	return fmt.Sprintf(popupPromptTemplate, html)
}

// TruncateHTML обрезает HTML до limit символов (рун, не байт).
func TruncateHTML(html string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(html) <= limit {
		return html
	}

	count := 0
	for i := range html {
		if count == limit {
			return html[:i]
		}
		count++
	}
	return html
}

// ParsePopupResponse разбирает ответ модели, не доверяя ему: отсутствующие поля
// получают нулевые значения, неверные типы приводятся или отбрасываются,
// уверенность зажимается в [0, 1]. На невалидном JSON возвращается отчет
// "попапов нет" вместе с ошибкой.
func ParsePopupResponse(content string) (*PopupReport, error) {
	report := &PopupReport{Candidates: []PopupCandidate{}}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &raw); err != nil {
		return report, fmt.Errorf("invalid popup JSON: %w", err)
	}

	report.PopupsFound = parseBool(raw["popups_found"])

	elements, _ := raw["elements"].([]interface{})
	for _, item := range elements {
		element, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		report.Candidates = append(report.Candidates, parseCandidate(element))
	}

	return report, nil
}

func parseCandidate(element map[string]interface{}) PopupCandidate {
	return PopupCandidate{
		Kind:       getString(element, "type"),
		Selector:   strings.TrimSpace(getString(element, "selector")),
		ButtonText: strings.TrimSpace(getString(element, "button_text")),
		Confidence: clampConfidence(parseFloat(element["confidence"])),
	}
}

// stripCodeFence снимает обертку ```json ... ```, которую модели иногда добавляют.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```")
	if idx := strings.Index(content, "\n"); idx >= 0 {
		content = content[idx+1:]
	} else {
		content = strings.TrimPrefix(content, "json")
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")

	return strings.TrimSpace(content)
}

func getString(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func parseBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && parsed
	case float64:
		return b != 0
	default:
		return false
	}
}

func parseFloat(v interface{}) float64 {
	switch f := v.(type) {
	case float64:
		return f
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return 0
		}
		return parsed
	case bool:
		if f {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func clampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// estimateTokens грубо оценивает размер: ~4 символа на токен.
func estimateTokens(texts ...string) int {
	total := 0
	for _, t := range texts {
		total += utf8.RuneCountInString(t) / 4
	}
	return total
}
