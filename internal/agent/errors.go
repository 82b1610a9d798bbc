package agent

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrorKind классифицирует сбои извлечения.
type ErrorKind int

const (
	KindDriverInit ErrorKind = iota
	KindPageLoad
	KindOracle
	KindInteraction
	KindEmpty
)

func (k ErrorKind) String() string {
	switch k {
	case KindDriverInit:
		return "driver_init"
	case KindPageLoad:
		return "page_load"
	case KindOracle:
		return "oracle"
	case KindInteraction:
		return "interaction"
	case KindEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

var (
	ErrDriverInit      = errors.New("браузер недоступен")
	ErrPageLoad        = errors.New("страница не загрузилась")
	ErrExtractionEmpty = errors.New("на странице не найден контент статьи")
	ErrInvalidURL      = errors.New("некорректный URL")
)

// Error представляет типизированную ошибку извлечения. Наружу из Agent.Extract выходят
// только KindDriverInit, KindPageLoad и KindEmpty.
type Error struct {
	Kind ErrorKind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.URL)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is сопоставляет ошибку с сентинелом ее вида.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrDriverInit:
		return e.Kind == KindDriverInit
	case ErrPageLoad:
		return e.Kind == KindPageLoad
	case ErrExtractionEmpty:
		return e.Kind == KindEmpty
	default:
		return false
	}
}

func newError(kind ErrorKind, url string, err error) *Error {
	return &Error{Kind: kind, URL: url, Err: err}
}

// KindOf возвращает вид ошибки, если это *Error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// ParseTargetURL принимает только абсолютные http/https URL с хостом.
func ParseTargetURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: пустая строка", ErrInvalidURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: схема %q не поддерживается", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: не указан хост", ErrInvalidURL)
	}

	return u, nil
}
