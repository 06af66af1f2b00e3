package main

import "time"

// ReadingDTO je obohacené měření tak, jak ho vidí frontend.
// Tvar odpovídá StoredReading z data-persisteru (stejný JSON leží ve Valkey).
type ReadingDTO struct {
	ID   string    `json:"id"`
	Time time.Time `json:"time"`

	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	CO2         float64 `json:"co2"`
	Light       float64 `json:"light"`

	Quote        string `json:"quote"`
	EmailSummary string `json:"email_summary"`

	// Urgency: "high" | "low", podle toho UI zvýrazní kartu s poštou.
	Urgency string `json:"urgency"`
}
