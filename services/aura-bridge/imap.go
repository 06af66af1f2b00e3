package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// IMAPMailbox je produkční Mailbox nad go-imap (TLS, typicky imap.gmail.com:993).
type IMAPMailbox struct {
	Addr     string
	Username string
	Password string
	Timeout  time.Duration

	// TLSConfig je volitelný, nil znamená systémové CA a ServerName z Addr.
	TLSConfig *tls.Config
}

// Open se připojí, přihlásí a otevře INBOX.
// Když selže login nebo select, spojení se ukončí ještě tady.
func (m *IMAPMailbox) Open(ctx context.Context) (MailSession, error) {
	dialer := &net.Dialer{Timeout: m.Timeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	c, err := client.DialWithDialerTLS(dialer, m.Addr, m.TLSConfig)
	if err != nil {
		return nil, fmt.Errorf("IMAP dial %s: %w", m.Addr, err)
	}
	// Timeout na každou síťovou operaci, go-imap v1 context nepodporuje.
	c.Timeout = m.Timeout

	if err := c.Login(m.Username, m.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("IMAP login: %w", err)
	}
	if _, err := c.Select("INBOX", false); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("IMAP select INBOX: %w", err)
	}
	return &imapSession{c: c}, nil
}

type imapSession struct {
	c *client.Client
}

func (s *imapSession) SearchUnread() ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := s.c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("IMAP search UNSEEN: %w", err)
	}
	return ids, nil
}

// FetchRaw stáhne celou zprávu přes BODY.PEEK[], takže ji neoznačí jako přečtenou.
func (s *imapSession) FetchRaw(seq uint32) ([]byte, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(seq)
	section := &imap.BodySectionName{Peek: true}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.c.Fetch(seqset, []imap.FetchItem{section.FetchItem()}, messages)
	}()

	var raw []byte
	var readErr error
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			readErr = errors.New("server nevrátil tělo zprávy")
			continue
		}
		raw, readErr = io.ReadAll(body)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("IMAP fetch %d: %w", seq, err)
	}
	if readErr != nil {
		return nil, readErr
	}
	if raw == nil {
		return nil, fmt.Errorf("IMAP fetch %d: zpráva nenalezena", seq)
	}
	return raw, nil
}

// Logout zavře mailbox (CLOSE) a ukončí sezení.
func (s *imapSession) Logout() error {
	closeErr := s.c.Close()
	if err := s.c.Logout(); err != nil {
		return err
	}
	return closeErr
}
