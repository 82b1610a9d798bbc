package ui

import "unicode/utf8"

// FormatStatus возвращает иконку, цвет и текст для статуса извлечения.
func FormatStatus(status string) (icon, color, text string) {
	switch status {
	case "success":
		return IconCheckmark, ColorGreen, "успех"
	case "empty":
		return IconEmpty, ColorYellow, "пусто"
	case "failed":
		return IconCross, ColorRed, "ошибка"
	default:
		return IconCross, ColorGray, status
	}
}

// Truncate обрезает строку до max рун, добавляя многоточие.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "…"
}
