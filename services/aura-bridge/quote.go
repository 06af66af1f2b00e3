package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"
)

// QuoteNoKeyFallback se vrací, když není nastavený GEMINI_API_KEY (degradovaný režim, ne chyba).
const QuoteNoKeyFallback = "Stay positive and productive! 🌟"

// QuoteFallbacks jsou pevné náhrady při chybě volání modelu.
var QuoteFallbacks = []string{
	"Stay focused and energized! ✨",
	"Breathe deep, the day is yours.",
	"Small steps still move mountains.",
}

const (
	quoteMaxTokens   = 30
	quoteTemperature = 0.7
	quoteMaxRunes    = 120
)

var errNoGenerator = errors.New("generativní model není nakonfigurovaný")

// QuoteEnricher generuje krátký citát podle podmínek v místnosti.
type QuoteEnricher struct {
	gen     TextGenerator // nil = bez API klíče
	timeout time.Duration
	logger  *slog.Logger
}

func NewQuoteEnricher(gen TextGenerator, timeout time.Duration, logger *slog.Logger) *QuoteEnricher {
	return &QuoteEnricher{gen: gen, timeout: timeout, logger: logger}
}

// Enrich nikdy nevrací prázdný text a nikdy nepropaguje chybu ven.
func (q *QuoteEnricher) Enrich(ctx context.Context, r Reading) QuoteResult {
	if q.gen == nil {
		return QuoteResult{Text: QuoteNoKeyFallback, Degraded: true, Err: errNoGenerator}
	}

	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	text, err := q.gen.Generate(ctx, GenerateRequest{
		Prompt:      quotePrompt(r),
		MaxTokens:   quoteMaxTokens,
		Temperature: quoteTemperature,
	})
	if err == nil {
		text = cleanQuote(text)
		if text == "" {
			err = errEmptyResponse
		}
	}
	if err != nil {
		q.logger.Warn("Generování citátu selhalo, použit fallback", "error", err)
		return QuoteResult{Text: pickQuoteFallback(), Degraded: true, Err: err}
	}
	return QuoteResult{Text: text}
}

func quotePrompt(r Reading) string {
	return fmt.Sprintf(
		"Generate a very short (max 10 words) inspirational quote for someone in a room with: "+
			"Temp: %g°C, Humidity: %g%%, CO2: %gppm, Light: %g%%.",
		r.Temperature, r.Humidity, r.CO2, r.Light,
	)
}

// cleanQuote ořízne whitespace a uvozovky kolem odpovědi a omezí délku.
func cleanQuote(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'“”‘’")
	s = strings.TrimSpace(s)
	return truncateRunes(s, quoteMaxRunes, "")
}

func pickQuoteFallback() string {
	return QuoteFallbacks[rand.IntN(len(QuoteFallbacks))]
}

// truncateRunes zkrátí s na limit znaků (runy, ne bajty) včetně markeru.
func truncateRunes(s string, limit int, marker string) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	keep := limit - len([]rune(marker))
	if keep < 0 {
		return string(runes[:limit])
	}
	return string(runes[:keep]) + marker
}
