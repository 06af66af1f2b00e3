package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Publisher je jediná operace, kterou pipeline potřebuje od transportu.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
}

// Pipeline zpracuje jednu příchozí zprávu od začátku do konce.
// Mezi zprávami nedrží žádný stav.
type Pipeline struct {
	quotes    *QuoteEnricher
	emails    *EmailEnricher
	publisher Publisher
	readings  ReadingLog // může být nil
	logger    *slog.Logger
	now       func() time.Time
}

func NewPipeline(quotes *QuoteEnricher, emails *EmailEnricher, publisher Publisher, readings ReadingLog, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		quotes:    quotes,
		emails:    emails,
		publisher: publisher,
		readings:  readings,
		logger:    logger,
		now:       time.Now,
	}
}

// Handle: normalizace -> obohacení (citát + emaily souběžně) -> urgence -> publikace.
// Vrací *FormatError pro nečitelný payload a chybu publikace; obohacení nikdy neselže.
func (p *Pipeline) Handle(ctx context.Context, payload []byte) error {
	// KROK 1: Normalizace
	reading, err := NormalizeReading(payload)
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			p.logger.Warn("Zpráva odmítnuta", "payload", fe.Payload, "důvod", fe.Reason, "error", fe.Err)
		}
		return err
	}
	p.logger.Info("Měření přijato",
		"temperature", reading.Temperature,
		"humidity", reading.Humidity,
		"co2", reading.CO2,
		"light", reading.Light,
	)

	// Řádek do lokálního logu; chyba zápisu nesmí zastavit publikaci.
	if p.readings != nil {
		if err := p.readings.Append(p.now(), reading); err != nil {
			p.logger.Error("Zápis do logu měření selhal", "error", err)
		}
	}

	// KROK 2: Obohacení. Obě volání jsou nezávislá, nesdílí žádný stav.
	var (
		quote QuoteResult
		email EmailResult
		g     errgroup.Group
	)
	g.Go(func() error {
		quote = p.quotes.Enrich(ctx, reading)
		return nil
	})
	g.Go(func() error {
		email = p.emails.Enrich(ctx)
		return nil
	})
	_ = g.Wait()

	// KROK 3: Urgence
	urgency := ClassifyUrgency(email.Summary)

	// KROK 4: Sestavení a publikace
	msg := OutboundMessage{
		Temperature:  reading.Temperature,
		Humidity:     reading.Humidity,
		CO2:          reading.CO2,
		Light:        reading.Light,
		Quote:        quote.Text,
		EmailSummary: email.Summary,
		Urgency:      urgency,
	}
	out, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("serializace výstupní zprávy: %w", err)
	}

	if err := p.publisher.Publish(ctx, out); err != nil {
		p.logger.Error("Chyba při publikaci do MQTT", "error", err)
		return fmt.Errorf("publikace: %w", err)
	}

	p.logger.Debug("Zpráva obohacena a odeslána",
		"quote", msg.Quote,
		"email_summary", msg.EmailSummary,
		"urgency", msg.Urgency,
		"quote_degraded", quote.Degraded,
		"email_degraded", email.Degraded,
	)
	return nil
}
