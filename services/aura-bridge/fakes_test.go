package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeGenerator počítá volání a vrací předpřipravenou odpověď.
type fakeGenerator struct {
	mu       sync.Mutex
	calls    int
	prompts  []string
	requests []GenerateRequest
	respond  func(req GenerateRequest) (string, error)
}

func (f *fakeGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, req.Prompt)
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.respond(req)
}

func (f *fakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func staticGenerator(text string) *fakeGenerator {
	return &fakeGenerator{respond: func(GenerateRequest) (string, error) { return text, nil }}
}

func failingGenerator(err error) *fakeGenerator {
	return &fakeGenerator{respond: func(GenerateRequest) (string, error) { return "", err }}
}

// fakeMailbox vrací fakeSession nebo chybu z Open.
type fakeMailbox struct {
	session *fakeSession
	openErr error
	opens   int
}

func (m *fakeMailbox) Open(context.Context) (MailSession, error) {
	m.opens++
	if m.openErr != nil {
		return nil, m.openErr
	}
	return m.session, nil
}

type fakeSession struct {
	unread    []uint32
	searchErr error
	messages  map[uint32][]byte
	fetchErr  map[uint32]error
	fetched   []uint32
	logouts   int
}

func (s *fakeSession) SearchUnread() ([]uint32, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return append([]uint32(nil), s.unread...), nil
}

func (s *fakeSession) FetchRaw(seq uint32) ([]byte, error) {
	s.fetched = append(s.fetched, seq)
	if err := s.fetchErr[seq]; err != nil {
		return nil, err
	}
	raw, ok := s.messages[seq]
	if !ok {
		return nil, errors.New("no such message")
	}
	return raw, nil
}

func (s *fakeSession) Logout() error {
	s.logouts++
	return nil
}

// fakePublisher si pamatuje publikované payloady.
type fakePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *fakePublisher) Published() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.payloads...)
}

type memoryReadingLog struct {
	lines []string
	err   error
}

func (l *memoryReadingLog) Append(at time.Time, r Reading) error {
	if l.err != nil {
		return l.err
	}
	l.lines = append(l.lines, formatReadingLine(at, r))
	return nil
}

func rawEmail(from, subject, body string) []byte {
	return []byte("From: " + from + "\r\n" +
		"To: me@example.com\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" + body + "\r\n")
}
