package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	defaultCO2   = 400.0
	defaultLight = 50.0
)

// FormatError znamená, že payload ze senzoru nejde převést na Reading.
// Zpráva se zahodí, nic se nepublikuje a nic se neopakuje.
type FormatError struct {
	Payload string
	Reason  string
	Err     error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("neplatný formát dat %q: %s: %v", e.Payload, e.Reason, e.Err)
	}
	return fmt.Sprintf("neplatný formát dat %q: %s", e.Payload, e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }

type payloadFormat int

const (
	formatDelimited payloadFormat = iota
	formatJSON
)

// detectFormat rozhodne, kterým parserem payload půjde.
func detectFormat(raw string) payloadFormat {
	if strings.HasPrefix(raw, "{") {
		return formatJSON
	}
	return formatDelimited
}

// NormalizeReading převede surový payload (JSON objekt nebo "t,h[,c,l]") na Reading.
func NormalizeReading(payload []byte) (Reading, error) {
	raw := string(bytes.TrimSpace(payload))
	if raw == "" {
		return Reading{}, &FormatError{Payload: raw, Reason: "prázdná zpráva"}
	}

	var (
		r   Reading
		err error
	)
	switch detectFormat(raw) {
	case formatJSON:
		r, err = parseJSONReading(raw)
	default:
		r, err = parseDelimitedReading(raw)
	}
	if err != nil {
		return Reading{}, err
	}

	// NaN/Inf by neprošly přes json.Marshal na výstupu
	for _, v := range []float64{r.Temperature, r.Humidity, r.CO2, r.Light} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Reading{}, &FormatError{Payload: raw, Reason: "hodnota není konečné číslo"}
		}
	}
	return r, nil
}

func parseJSONReading(raw string) (Reading, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return Reading{}, &FormatError{Payload: raw, Reason: "JSON nejde naparsovat", Err: err}
	}

	// temperature/humidity bez hodnoty = 0, co2/light mají výchozí hodnoty
	get := func(key string, fallback float64) (float64, error) {
		v, ok := fields[key]
		if !ok || string(v) == "null" {
			return fallback, nil
		}
		f, err := jsonNumber(v)
		if err != nil {
			return 0, &FormatError{Payload: raw, Reason: fmt.Sprintf("pole %s není číslo", key), Err: err}
		}
		return f, nil
	}

	var (
		r   Reading
		err error
	)
	if r.Temperature, err = get("temperature", 0); err != nil {
		return Reading{}, err
	}
	if r.Humidity, err = get("humidity", 0); err != nil {
		return Reading{}, err
	}
	if r.CO2, err = get("co2", defaultCO2); err != nil {
		return Reading{}, err
	}
	if r.Light, err = get("light", defaultLight); err != nil {
		return Reading{}, err
	}
	return r, nil
}

// jsonNumber bere JSON číslo i číselný string ("22.5"), nic jiného.
func jsonNumber(v json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return 0, fmt.Errorf("hodnota %s", string(v))
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func parseDelimitedReading(raw string) (Reading, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 && len(parts) != 4 {
		return Reading{}, &FormatError{
			Payload: raw,
			Reason:  fmt.Sprintf("očekávány 2 nebo 4 hodnoty, přišlo %d", len(parts)),
		}
	}

	values := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Reading{}, &FormatError{Payload: raw, Reason: fmt.Sprintf("pole %d není číslo", i+1), Err: err}
		}
		values[i] = f
	}

	r := Reading{
		Temperature: values[0],
		Humidity:    values[1],
		CO2:         defaultCO2,
		Light:       defaultLight,
	}
	if len(values) == 4 {
		r.CO2 = values[2]
		r.Light = values[3]
	}
	return r, nil
}
