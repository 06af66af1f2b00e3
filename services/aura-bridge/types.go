package main

// Reading je kanonická podoba jednoho měření z ESP32.
// Po normalizaci jsou vždy vyplněna všechna čtyři pole (žádné range checky).
type Reading struct {
	Temperature float64 // °C
	Humidity    float64 // %
	CO2         float64 // ppm, default 400
	Light       float64 // %, default 50
}

// Urgency je odvozený příznak z emailového souhrnu.
type Urgency string

const (
	UrgencyHigh Urgency = "high"
	UrgencyLow  Urgency = "low"
)

// OutboundMessage je jediný tvar zprávy, který posíláme dál (displej / dashboard).
// Pořadí polí = pořadí klíčů v JSONu.
type OutboundMessage struct {
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	CO2          float64 `json:"co2"`
	Light        float64 `json:"light"`
	Quote        string  `json:"quote"`
	EmailSummary string  `json:"email_summary"`
	Urgency      Urgency `json:"urgency"`
}

// QuoteResult je výsledek Quote Enricheru.
// Text není nikdy prázdný; Err jen říká, proč jsme sáhli po fallbacku.
type QuoteResult struct {
	Text     string
	Degraded bool
	Err      error
}

// EmailResult je výsledek Email Enricheru. Summary má max 300 znaků a není prázdný.
type EmailResult struct {
	Summary  string
	Degraded bool
	Err      error
}
