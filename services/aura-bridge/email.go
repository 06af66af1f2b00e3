package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset" // dekódování ne-UTF-8 subjectů a těl
	"github.com/emersion/go-message/mail"
)

const (
	NoNewEmails         = "No new emails"
	EmailFailedFallback = "Email check failed"

	emailSummaryMaxRunes = 300
	emailBodyMaxRunes    = 500
	emailSubjectMaxRunes = 50
	emailSeparator       = " | "
	truncationMarker     = "..."
	emailSummaryTokens   = 80
)

// Mailbox otevírá sezení k poštovnímu serveru (dial + login + select INBOX).
type Mailbox interface {
	Open(ctx context.Context) (MailSession, error)
}

// MailSession je jedno přihlášené sezení nad INBOXem.
// Logout se musí zavolat na každé cestě, i chybové.
type MailSession interface {
	SearchUnread() ([]uint32, error)
	FetchRaw(seq uint32) ([]byte, error)
	Logout() error
}

// mailMessage drží jen to, co potřebujeme pro souhrn.
type mailMessage struct {
	Sender  string
	Subject string
	Body    string
}

// EmailEnricher shrne nejnovější nepřečtené emaily do jednoho krátkého řetězce.
type EmailEnricher struct {
	mailbox     Mailbox
	gen         TextGenerator // nil = ruční souhrn (odesílatel: předmět)
	maxMessages int
	genTimeout  time.Duration
	logger      *slog.Logger
}

func NewEmailEnricher(mailbox Mailbox, gen TextGenerator, maxMessages int, genTimeout time.Duration, logger *slog.Logger) *EmailEnricher {
	if maxMessages <= 0 {
		maxMessages = 3
	}
	return &EmailEnricher{
		mailbox:     mailbox,
		gen:         gen,
		maxMessages: maxMessages,
		genTimeout:  genTimeout,
		logger:      logger,
	}
}

// Enrich nikdy nevrací chybu ven, vždy vrátí neprázdný souhrn.
func (e *EmailEnricher) Enrich(ctx context.Context) EmailResult {
	sess, err := e.mailbox.Open(ctx)
	if err != nil {
		e.logger.Warn("Přihlášení k poště selhalo", "error", err)
		return EmailResult{Summary: EmailFailedFallback, Degraded: true, Err: err}
	}
	defer func() {
		if err := sess.Logout(); err != nil {
			e.logger.Debug("IMAP logout selhal", "error", err)
		}
	}()

	ids, err := sess.SearchUnread()
	if err != nil {
		e.logger.Warn("Hledání nepřečtených emailů selhalo", "error", err)
		return EmailResult{Summary: EmailFailedFallback, Degraded: true, Err: err}
	}
	if len(ids) == 0 {
		return EmailResult{Summary: NoNewEmails}
	}

	// Sekvenční čísla rostou s časem doručení -> poslední N jsou nejnovější.
	slices.Sort(ids)
	selected := ids[max(0, len(ids)-e.maxMessages):]

	summaries := make([]string, 0, len(selected))
	for i := len(selected) - 1; i >= 0; i-- {
		seq := selected[i]
		raw, err := sess.FetchRaw(seq)
		if err != nil {
			e.logger.Warn("Email nejde stáhnout, přeskakuji", "seq", seq, "error", err)
			continue
		}
		msg, err := parseMessage(bytes.NewReader(raw))
		if err != nil {
			e.logger.Warn("Email nejde naparsovat, přeskakuji", "seq", seq, "error", err)
			continue
		}
		summaries = append(summaries, e.summarize(ctx, msg))
	}

	if len(summaries) == 0 {
		return EmailResult{Summary: fmt.Sprintf("%d unread emails", len(ids)), Degraded: true}
	}
	return EmailResult{Summary: joinSummaries(summaries)}
}

// summarize požádá model o 1-2 věty; při chybě složí souhrn ručně.
func (e *EmailEnricher) summarize(ctx context.Context, msg mailMessage) string {
	if e.gen == nil {
		return manualSummary(msg)
	}

	if e.genTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.genTimeout)
		defer cancel()
	}

	text, err := e.gen.Generate(ctx, GenerateRequest{
		Prompt:    emailPrompt(msg),
		MaxTokens: emailSummaryTokens,
	})
	text = strings.Join(strings.Fields(text), " ")
	if err != nil || text == "" {
		e.logger.Debug("Souhrn emailu z modelu selhal, použit ruční", "sender", msg.Sender, "error", err)
		return manualSummary(msg)
	}
	return text
}

func emailPrompt(msg mailMessage) string {
	return fmt.Sprintf(
		"Summarize this email in 1-2 short sentences. Mention the key content and keep any urgency words "+
			"(urgent, asap, important) if the email uses them.\nFrom: %s\nSubject: %s\nBody: %s",
		msg.Sender, msg.Subject, msg.Body,
	)
}

func manualSummary(msg mailMessage) string {
	subject := truncateRunes(msg.Subject, emailSubjectMaxRunes, "")
	if subject == "" {
		subject = "(no subject)"
	}
	return fmt.Sprintf("%s: %s", msg.Sender, subject)
}

func joinSummaries(parts []string) string {
	return truncateRunes(strings.Join(parts, emailSeparator), emailSummaryMaxRunes, truncationMarker)
}

// parseMessage vytáhne odesílatele, předmět a text z RFC 822 zprávy.
func parseMessage(r io.Reader) (mailMessage, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return mailMessage{}, fmt.Errorf("MIME parse: %w", err)
	}
	defer mr.Close()

	var msg mailMessage
	subject, err := mr.Header.Subject()
	if err != nil {
		subject = mr.Header.Get("Subject")
	}
	msg.Subject = strings.TrimSpace(subject)

	from, err := mr.Header.Text("From")
	if err != nil {
		from = mr.Header.Get("From")
	}
	msg.Sender = senderName(from)

	mediaType, _, _ := mr.Header.ContentType()
	multipart := strings.HasPrefix(mediaType, "multipart/")

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Rozbitá část těla není důvod zahodit celý email, hlavičky už máme.
			break
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		if multipart {
			ct, _, _ := h.ContentType()
			if ct != "text/plain" {
				continue
			}
		}
		body, err := io.ReadAll(io.LimitReader(p.Body, 16*1024))
		if err != nil {
			break
		}
		msg.Body = truncateRunes(strings.Join(strings.Fields(string(body)), " "), emailBodyMaxRunes, "")
		break
	}
	return msg, nil
}

// senderName vrátí jméno před <adresou>, jinak celý From header.
func senderName(from string) string {
	from = strings.TrimSpace(from)
	if i := strings.Index(from, "<"); i >= 0 {
		name := strings.Trim(strings.TrimSpace(from[:i]), `"'`)
		name = strings.TrimSpace(name)
		if name != "" {
			return name
		}
		addr := from[i+1:]
		if j := strings.Index(addr, ">"); j >= 0 {
			addr = addr[:j]
		}
		if addr = strings.TrimSpace(addr); addr != "" {
			return addr
		}
	}
	if from == "" {
		return "unknown sender"
	}
	return from
}
