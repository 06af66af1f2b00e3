package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// LatestReadingKey je klíč ve Valkey s poslední obohacenou zprávou. home-api čte stejný klíč.
const LatestReadingKey = "aura:reading:last"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS enriched_readings (
		id            UUID PRIMARY KEY,
		time          TIMESTAMPTZ NOT NULL,
		temperature   DOUBLE PRECISION NOT NULL,
		humidity      DOUBLE PRECISION NOT NULL,
		co2           DOUBLE PRECISION NOT NULL,
		light         DOUBLE PRECISION NOT NULL,
		quote         TEXT NOT NULL,
		email_summary TEXT NOT NULL,
		urgency       TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS enriched_readings_time_idx ON enriched_readings (time DESC)`,
}

// Repository zapouzdřuje práci s databázemi.
// Zbytek aplikace (main) neví, jak se píše SQL, jen volá metody repozitáře.
type Repository struct {
	pgPool    *pgxpool.Pool // Pool spojení do TimescaleDB
	redis     *redis.Client // Klient pro Valkey
	latestTTL time.Duration
}

// NewRepository vytvoří a ověří připojení k oběma databázím a založí tabulku.
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	// 1. Připojení k Postgres
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("chyba konfigurace DB: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("DB není dostupná: %w", err)
	}

	// 2. Připojení k Valkey (Redis)
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.ValkeyAddr,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("Valkey není dostupný: %w", err)
	}

	r := &Repository{pgPool: pool, redis: rdb, latestTTL: cfg.LatestTTL}
	if err := r.ensureSchema(ctx); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repository) ensureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.pgPool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("vytvoření schématu: %w", err)
		}
	}
	return nil
}

// Close uzavře spojení při ukončení aplikace.
func (r *Repository) Close() {
	r.pgPool.Close()
	r.redis.Close()
}

// SaveReading uloží zprávu do obou úložišť (Hot Path & Cold Path).
func (r *Repository) SaveReading(ctx context.Context, id uuid.UUID, receivedAt time.Time, reading EnrichedReading) error {
	// A. TimescaleDB je "Source of Truth" pro historii.
	query := `INSERT INTO enriched_readings
		(id, time, temperature, humidity, co2, light, quote, email_summary, urgency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pgPool.Exec(ctx, query,
		id.String(), receivedAt,
		reading.Temperature, reading.Humidity, reading.CO2, reading.Light,
		reading.Quote, reading.EmailSummary, reading.Urgency,
	)
	if err != nil {
		return fmt.Errorf("chyba insertu do PG: %w", err)
	}

	// B. Valkey drží jen poslední zprávu pro dashboard. Expirace (LATEST_TTL), ať nezůstane viset stará data.
	value, err := json.Marshal(StoredReading{ID: id.String(), Time: receivedAt, EnrichedReading: reading})
	if err != nil {
		return fmt.Errorf("serializace pro Valkey: %w", err)
	}
	if err := r.redis.Set(ctx, LatestReadingKey, value, r.latestTTL).Err(); err != nil {
		// Data už jsou v PG, ale měli bychom o tom vědět.
		return fmt.Errorf("chyba update Valkey: %w", err)
	}
	return nil
}
