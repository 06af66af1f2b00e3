package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteEnricher_Success(t *testing.T) {
	gen := staticGenerator(`  "Fresh air, clear mind, bright ideas."  `)
	q := NewQuoteEnricher(gen, time.Second, discardLogger())

	res := q.Enrich(context.Background(), Reading{22.5, 48, 400, 50})

	assert.Equal(t, "Fresh air, clear mind, bright ideas.", res.Text)
	assert.False(t, res.Degraded)
	assert.NoError(t, res.Err)
	require.Equal(t, 1, gen.Calls())

	req := gen.requests[0]
	assert.Equal(t, int32(quoteMaxTokens), req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 0.001)
	for _, want := range []string{"22.5", "48", "400", "50", "10 words"} {
		assert.Contains(t, req.Prompt, want)
	}
}

func TestQuoteEnricher_NoGenerator(t *testing.T) {
	q := NewQuoteEnricher(nil, time.Second, discardLogger())

	res := q.Enrich(context.Background(), Reading{})

	assert.Equal(t, QuoteNoKeyFallback, res.Text)
	assert.True(t, res.Degraded)
}

func TestQuoteEnricher_Fallbacks(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"transport error", failingGenerator(errors.New("connection refused"))},
		{"malformed response", failingGenerator(errEmptyResponse)},
		{"empty text", staticGenerator("   ")},
		{"only quotes", staticGenerator(`""`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuoteEnricher(tt.gen, time.Second, discardLogger())
			res := q.Enrich(context.Background(), Reading{20, 40, 400, 50})

			assert.NotEmpty(t, res.Text)
			assert.Contains(t, QuoteFallbacks, res.Text)
			assert.True(t, res.Degraded)
			assert.Error(t, res.Err)
		})
	}
}

func TestQuoteEnricher_Timeout(t *testing.T) {
	gen := &fakeGenerator{respond: func(GenerateRequest) (string, error) {
		return "", context.DeadlineExceeded
	}}
	q := NewQuoteEnricher(gen, time.Nanosecond, discardLogger())

	res := q.Enrich(context.Background(), Reading{})

	assert.Contains(t, QuoteFallbacks, res.Text)
}

func TestCleanQuote(t *testing.T) {
	assert.Equal(t, "Shine on", cleanQuote("“Shine on”"))
	assert.Equal(t, "Keep going", cleanQuote("'Keep going'\n"))

	long := strings.Repeat("word ", 60)
	assert.LessOrEqual(t, len([]rune(cleanQuote(long))), quoteMaxRunes)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 3, "..."))
	assert.Equal(t, "a...", truncateRunes("abcdef", 4, "..."))
	assert.Equal(t, "žluť", truncateRunes("žluťoučký", 4, ""))
	assert.Equal(t, "ab", truncateRunes("abcdef", 2, "..."))
}
