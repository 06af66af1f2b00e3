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

func newTestEnricher(mb Mailbox, gen TextGenerator, n int) *EmailEnricher {
	return NewEmailEnricher(mb, gen, n, time.Second, discardLogger())
}

func TestEmailEnricher_NoUnread(t *testing.T) {
	sess := &fakeSession{}
	gen := staticGenerator("should not be called")
	e := newTestEnricher(&fakeMailbox{session: sess}, gen, 3)

	res := e.Enrich(context.Background())

	assert.Equal(t, "No new emails", res.Summary)
	assert.False(t, res.Degraded)
	assert.Equal(t, 0, gen.Calls(), "generator must not be invoked for an empty mailbox")
	assert.Equal(t, 1, sess.logouts)
}

func TestEmailEnricher_OpenFails(t *testing.T) {
	gen := staticGenerator("x")
	e := newTestEnricher(&fakeMailbox{openErr: errors.New("AUTHENTICATIONFAILED")}, gen, 3)

	res := e.Enrich(context.Background())

	assert.Equal(t, EmailFailedFallback, res.Summary)
	assert.True(t, res.Degraded)
	assert.Error(t, res.Err)
	assert.Equal(t, 0, gen.Calls())
}

func TestEmailEnricher_SearchFailsStillLogsOut(t *testing.T) {
	sess := &fakeSession{searchErr: errors.New("BAD search")}
	e := newTestEnricher(&fakeMailbox{session: sess}, nil, 3)

	res := e.Enrich(context.Background())

	assert.Equal(t, EmailFailedFallback, res.Summary)
	assert.Equal(t, 1, sess.logouts)
}

func TestEmailEnricher_SummarizesNewestFirst(t *testing.T) {
	sess := &fakeSession{
		unread: []uint32{1, 2, 3, 4, 5},
		messages: map[uint32][]byte{
			3: rawEmail("Carol <carol@example.com>", "Lunch", "Pizza today?"),
			4: rawEmail("Dave <dave@example.com>", "Invoice", "Please pay by Friday."),
			5: rawEmail("Eve <eve@example.com>", "Server down", "Urgent: prod is down."),
		},
	}
	gen := &fakeGenerator{respond: func(req GenerateRequest) (string, error) {
		switch {
		case strings.Contains(req.Prompt, "Eve"):
			return "Eve reports prod is down, urgent.", nil
		case strings.Contains(req.Prompt, "Dave"):
			return "Dave asks for the invoice\n to be paid.", nil
		default:
			return "Carol suggests pizza.", nil
		}
	}}
	e := newTestEnricher(&fakeMailbox{session: sess}, gen, 3)

	res := e.Enrich(context.Background())

	assert.Equal(t, []uint32{5, 4, 3}, sess.fetched)
	assert.Equal(t, 3, gen.Calls())
	assert.Equal(t, "Eve reports prod is down, urgent. | Dave asks for the invoice to be paid. | Carol suggests pizza.", res.Summary)
	assert.Equal(t, 1, sess.logouts)
	assert.Equal(t, int32(emailSummaryTokens), gen.requests[0].MaxTokens)
	assert.Contains(t, gen.prompts[0], "Subject: Server down")
	assert.Contains(t, gen.prompts[0], "Body: Urgent: prod is down.")
}

func TestEmailEnricher_GeneratorFailureUsesManualSummary(t *testing.T) {
	sess := &fakeSession{
		unread:   []uint32{7},
		messages: map[uint32][]byte{7: rawEmail(`"Alice Smith" <alice@example.com>`, "Quarterly report", "See attached.")},
	}
	e := newTestEnricher(&fakeMailbox{session: sess}, failingGenerator(errors.New("503")), 3)

	res := e.Enrich(context.Background())

	assert.Equal(t, "Alice Smith: Quarterly report", res.Summary)
}

func TestEmailEnricher_NoGeneratorUsesManualSummary(t *testing.T) {
	sess := &fakeSession{
		unread: []uint32{1, 2},
		messages: map[uint32][]byte{
			1: rawEmail("bob@example.com", "", "hi"),
			2: rawEmail("Ann <ann@example.com>", "ASAP: sign contract", "today"),
		},
	}
	e := newTestEnricher(&fakeMailbox{session: sess}, nil, 3)

	res := e.Enrich(context.Background())

	assert.Equal(t, "Ann: ASAP: sign contract | bob@example.com: (no subject)", res.Summary)
}

func TestEmailEnricher_SkipsBrokenMessages(t *testing.T) {
	sess := &fakeSession{
		unread:   []uint32{1, 2},
		messages: map[uint32][]byte{1: rawEmail("Ann <ann@example.com>", "Hello", "hi")},
		fetchErr: map[uint32]error{2: errors.New("fetch timeout")},
	}
	e := newTestEnricher(&fakeMailbox{session: sess}, nil, 3)

	res := e.Enrich(context.Background())

	assert.Equal(t, "Ann: Hello", res.Summary)
}

func TestEmailEnricher_AllMessagesBroken(t *testing.T) {
	sess := &fakeSession{
		unread:   []uint32{1, 2},
		fetchErr: map[uint32]error{1: errors.New("x"), 2: errors.New("y")},
	}
	e := newTestEnricher(&fakeMailbox{session: sess}, nil, 3)

	res := e.Enrich(context.Background())

	assert.Equal(t, "2 unread emails", res.Summary)
	assert.True(t, res.Degraded)
	assert.Equal(t, 1, sess.logouts)
}

func TestEmailEnricher_SummaryBounded(t *testing.T) {
	sess := &fakeSession{unread: []uint32{1, 2, 3}, messages: map[uint32][]byte{}}
	for _, id := range sess.unread {
		sess.messages[id] = rawEmail("Spam <spam@example.com>", "Offer", "buy")
	}
	gen := staticGenerator(strings.Repeat("long summary ", 20))
	e := newTestEnricher(&fakeMailbox{session: sess}, gen, 3)

	res := e.Enrich(context.Background())

	assert.LessOrEqual(t, len([]rune(res.Summary)), emailSummaryMaxRunes)
	assert.True(t, strings.HasSuffix(res.Summary, truncationMarker))
}

func TestParseMessage_Multipart(t *testing.T) {
	raw := "From: \"Bob Builder\" <bob@example.com>\r\n" +
		"Subject: =?UTF-8?Q?Caf=C3=A9_meeting?=\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=\"XYZ\"\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>html body</p>\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"plain   body\r\nhere\r\n" +
		"--XYZ--\r\n"

	msg, err := parseMessage(strings.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, "Bob Builder", msg.Sender)
	assert.Equal(t, "Café meeting", msg.Subject)
	assert.Equal(t, "plain body here", msg.Body)
}

func TestParseMessage_SinglePartBodyTruncated(t *testing.T) {
	raw := rawEmail("Ann <ann@example.com>", "Long", strings.Repeat("a", 2000))

	msg, err := parseMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)

	assert.Len(t, []rune(msg.Body), emailBodyMaxRunes)
}

func TestSenderName(t *testing.T) {
	tests := []struct {
		from string
		want string
	}{
		{`"Alice Smith" <alice@example.com>`, "Alice Smith"},
		{"Bob <bob@example.com>", "Bob"},
		{"<noreply@example.com>", "noreply@example.com"},
		{"carol@example.com", "carol@example.com"},
		{"", "unknown sender"},
	}
	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			assert.Equal(t, tt.want, senderName(tt.from))
		})
	}
}

func TestJoinSummaries(t *testing.T) {
	assert.Equal(t, "a | b", joinSummaries([]string{"a", "b"}))

	long := joinSummaries([]string{strings.Repeat("x", 400)})
	assert.Len(t, []rune(long), 300)
	assert.True(t, strings.HasSuffix(long, "..."))
}
