package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EnrichedReading je zpráva, kterou aura-bridge posílá na výstupní topic.
// Názvy klíčů musí odpovídat OutboundMessage v bridge.
type EnrichedReading struct {
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	CO2          float64 `json:"co2"`
	Light        float64 `json:"light"`
	Quote        string  `json:"quote"`
	EmailSummary string  `json:"email_summary"`
	Urgency      string  `json:"urgency"`
}

// StoredReading = uložený řádek. Stejný tvar jde do Valkey i z home-api ven.
type StoredReading struct {
	ID   string    `json:"id"`
	Time time.Time `json:"time"`
	EnrichedReading
}

var errInvalidUrgency = errors.New("urgency musí být high nebo low")

// decodeReading ověří, že payload má tvar výstupu z bridge.
func decodeReading(payload []byte) (EnrichedReading, error) {
	var r EnrichedReading
	if err := json.Unmarshal(payload, &r); err != nil {
		return EnrichedReading{}, fmt.Errorf("neplatný JSON: %w", err)
	}
	if r.Urgency != "high" && r.Urgency != "low" {
		return EnrichedReading{}, fmt.Errorf("%w: %q", errInvalidUrgency, r.Urgency)
	}
	return r, nil
}
