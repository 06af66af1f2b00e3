package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// latestReadingKey musí odpovídat klíči, který plní data-persister.
const latestReadingKey = "aura:reading:last"

// ErrNoReading: zatím nepřišlo žádné měření.
var ErrNoReading = errors.New("žádné měření")

// ReadingStore je rozhraní, přes které API čte data (v testech fake).
type ReadingStore interface {
	Latest(ctx context.Context) (ReadingDTO, error)
	History(ctx context.Context, since time.Time) ([]ReadingDTO, error)
}

// Service drží spojení na databáze a obsahuje metody pro získání dat.
type Service struct {
	db    *pgxpool.Pool // Pool pro SQL dotazy (TimescaleDB)
	redis *redis.Client // Klient pro Key-Value store (Valkey)
}

// NewService je konstruktor (Dependency Injection).
func NewService(db *pgxpool.Pool, rdb *redis.Client) *Service {
	return &Service{db: db, redis: rdb}
}

const readingColumns = `id::text, time, temperature, humidity, co2, light, quote, email_summary, urgency`

// Latest vrátí poslední zprávu. Primárně z Valkey, po expiraci klíče z Postgres.
func (s *Service) Latest(ctx context.Context) (ReadingDTO, error) {
	raw, err := s.redis.Get(ctx, latestReadingKey).Bytes()
	switch {
	case err == nil:
		var dto ReadingDTO
		if err := json.Unmarshal(raw, &dto); err != nil {
			return ReadingDTO{}, fmt.Errorf("poškozená hodnota ve Valkey: %w", err)
		}
		return dto, nil
	case !errors.Is(err, redis.Nil):
		return ReadingDTO{}, fmt.Errorf("čtení z Valkey: %w", err)
	}

	row := s.db.QueryRow(ctx, `SELECT `+readingColumns+` FROM enriched_readings ORDER BY time DESC LIMIT 1`)
	dto, err := scanReading(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ReadingDTO{}, ErrNoReading
	}
	if err != nil {
		return ReadingDTO{}, fmt.Errorf("selhal SQL dotaz na poslední měření: %w", err)
	}
	return dto, nil
}

// History vrací zprávy od since vzestupně podle času (pro grafy).
func (s *Service) History(ctx context.Context, since time.Time) ([]ReadingDTO, error) {
	// Index na time zajistí, že tento dotaz bude rychlý i při milionech řádků.
	query := `SELECT ` + readingColumns + `
		FROM enriched_readings
		WHERE time >= $1
		ORDER BY time ASC`

	rows, err := s.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("chyba načítání historie: %w", err)
	}
	defer rows.Close()

	readings := make([]ReadingDTO, 0, 100)
	for rows.Next() {
		dto, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, dto)
	}
	return readings, rows.Err()
}

func scanReading(row pgx.Row) (ReadingDTO, error) {
	var d ReadingDTO
	err := row.Scan(&d.ID, &d.Time, &d.Temperature, &d.Humidity, &d.CO2, &d.Light, &d.Quote, &d.EmailSummary, &d.Urgency)
	return d, err
}
