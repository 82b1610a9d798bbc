package sanitizer

import "regexp"

type rule struct {
	name        string
	pattern     *regexp.Regexp
	replacement string
}

// Порядок важен: ключи и токены маскируются раньше, чем общие правила
// успеют разрезать их на части.
var defaultRules = []rule{
	// пароли, в том числе value у input[type=password] в снимке страницы
	{"password", regexp.MustCompile(`(?i)(password|passwd|pwd|пароль)(\s*[:=]\s*)["']?[^"'\s<>]{3,}["']?`), `${1}${2}[FILTERED]`},
	{"password_input", regexp.MustCompile(`(?i)(<input[^>]*type=["']password["'][^>]*value=["'])[^"']+(["'])`), `${1}[FILTERED]${2}`},

	// ключи провайдеров и bearer-токены
	{"openai_key", regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`), `[FILTERED]`},
	{"google_key", regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`), `[FILTERED]`},
	{"stripe_key", regexp.MustCompile(`pk_[a-zA-Z0-9]{24,}`), `[FILTERED]`},
	{"bearer", regexp.MustCompile(`(?i)(bearer\s+)[a-zA-Z0-9._~+/-]{20,}=*`), `${1}[FILTERED]`},
	{"api_key", regexp.MustCompile(`(?i)((?:api|secret|access)[_-]?(?:key|secret|token))(["']?\s*[:=]\s*["']?)[a-zA-Z0-9_-]{16,}`), `${1}${2}[FILTERED]`},
	{"token", regexp.MustCompile(`(?i)((?:csrf|xsrf|auth)?[_-]?token|токен)(["']?\s*[:=]\s*["']?)[a-zA-Z0-9_\-.]{20,}`), `${1}${2}[FILTERED]`},

	// куки и идентификаторы сессий
	{"set_cookie", regexp.MustCompile(`(?i)(set-cookie\s*:\s*)[^\n]{10,}`), `${1}[FILTERED]`},
	{"session", regexp.MustCompile(`(?i)(session[_-]?(?:id|token)|sessid|phpsessid|jsessionid)(["']?\s*[:=]\s*["']?)[a-zA-Z0-9_-]{10,}`), `${1}${2}[FILTERED]`},

	// банковские карты
	{"card", regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`), `[FILTERED_CARD]`},
	{"cvv", regexp.MustCompile(`(?i)(cvv2?|cvc2?)(\s*[:=]\s*)["']?\d{3,4}["']?`), `${1}${2}[FILTERED]`},

	{"email", regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`), `[FILTERED_EMAIL]`},
}
