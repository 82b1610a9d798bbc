package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter ограничивает частоту запросов (RPM) и расход токенов (TPH).
// Оба ограничения построены на token bucket из golang.org/x/time/rate.
type RateLimiter struct {
	requestsPerMinute int
	tokensPerHour     int

	requests *rate.Limiter
	tokens   *rate.Limiter
}

// NewRateLimiter создает новый rate limiter
func NewRateLimiter(requestsPerMinute, tokensPerHour int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60 // дефолт: 60 запросов в минуту
	}
	if tokensPerHour <= 0 {
		tokensPerHour = 90000 // дефолт: 90k токенов в час
	}

	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		tokensPerHour:     tokensPerHour,
		requests:          rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60), requestsPerMinute),
		tokens:            rate.NewLimiter(rate.Limit(float64(tokensPerHour)/3600), tokensPerHour),
	}
}

// Wait блокируется, пока не освободится слот запроса и бюджет на tokens токенов,
// либо пока не отменят ctx.
func (rl *RateLimiter) Wait(ctx context.Context, tokens int) error {
	if err := rl.requests.Wait(ctx); err != nil {
		return fmt.Errorf("превышен лимит запросов (%d RPM): %w", rl.requestsPerMinute, err)
	}

	n := rl.clamp(tokens)
	if n == 0 {
		return nil
	}
	if err := rl.tokens.WaitN(ctx, n); err != nil {
		return fmt.Errorf("превышен лимит токенов (%d TPH), требуется %d: %w", rl.tokensPerHour, n, err)
	}
	return nil
}

// ConsumeTokens списывает токены, израсходованные сверх оценки, без ожидания.
func (rl *RateLimiter) ConsumeTokens(tokens int) {
	if n := rl.clamp(tokens); n > 0 {
		rl.tokens.ReserveN(time.Now(), n)
	}
}

// Stats возвращает текущее число доступных запросов и токенов.
func (rl *RateLimiter) Stats() (requestsAvailable int, tokensAvailable int) {
	return int(rl.requests.Tokens()), int(rl.tokens.Tokens())
}

// clamp ограничивает запрос размером ведра: WaitN отклоняет n больше burst.
func (rl *RateLimiter) clamp(tokens int) int {
	if tokens <= 0 {
		return 0
	}
	if burst := rl.tokens.Burst(); tokens > burst {
		return burst
	}
	return tokens
}
