package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ReadingSaver je to, co Persister potřebuje od úložiště (v testech fake).
type ReadingSaver interface {
	SaveReading(ctx context.Context, id uuid.UUID, receivedAt time.Time, reading EnrichedReading) error
}

// Persister převádí MQTT zprávy na záznamy v úložišti. Žádné retry.
type Persister struct {
	store       ReadingSaver
	saveTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
	newID       func() uuid.UUID
}

func NewPersister(store ReadingSaver, saveTimeout time.Duration, logger *slog.Logger) *Persister {
	return &Persister{
		store:       store,
		saveTimeout: saveTimeout,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.New,
	}
}

// Handle zpracuje jeden payload. Chyby loguje a vrací (kvůli testům), zpráva se dál neopakuje.
func (p *Persister) Handle(ctx context.Context, payload []byte) error {
	// A. Deserializace a validace
	reading, err := decodeReading(payload)
	if err != nil {
		p.logger.Error("Neplatná zpráva", "payload", string(payload), "error", err)
		return err
	}

	// B. Uložení (context s timeoutem, aby DB operace nevisela věčně)
	saveCtx, cancel := context.WithTimeout(ctx, p.saveTimeout)
	defer cancel()

	id := p.newID()
	if err := p.store.SaveReading(saveCtx, id, p.now(), reading); err != nil {
		p.logger.Error("Chyba při ukládání dat", "id", id, "error", err)
		return fmt.Errorf("uložení %s: %w", id, err)
	}

	// Logujeme jen debug, v produkci by to bylo moc spamu.
	p.logger.Debug("Data uložena", "id", id, "urgency", reading.Urgency)
	return nil
}
