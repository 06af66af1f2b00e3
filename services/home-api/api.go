package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxSpanDays chrání násobení na time.Duration před přetečením.
const maxSpanDays = 3650

// RangePolicy určuje, jak dlouhou historii lze vyžádat.
type RangePolicy struct {
	Default time.Duration
	Max     time.Duration
}

// APIHandler sdružuje metody pro obsluhu HTTP požadavků.
type APIHandler struct {
	store   ReadingStore
	history RangePolicy
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewAPIHandler vytváří novou instanci handleru.
func NewAPIHandler(store ReadingStore, history RangePolicy, timeout time.Duration, logger *slog.Logger) *APIHandler {
	return &APIHandler{store: store, history: history, timeout: timeout, logger: logger, now: time.Now}
}

// RegisterRoutes mapuje URL cesty na konkrétní Go funkce (router Go 1.22+ s metodami).
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	// Karta s aktuálním stavem
	mux.HandleFunc("GET /api/readings/latest", h.handleLatest)
	// Graf
	mux.HandleFunc("GET /api/readings/history", h.handleHistory)
}

// handleLatest: GET /api/readings/latest
func (h *APIHandler) handleLatest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	reading, err := h.store.Latest(ctx)
	if errors.Is(err, ErrNoReading) {
		http.Error(w, "Zatím žádné měření", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("Chyba při získávání posledního měření", "error", err)
		http.Error(w, "Interní chyba serveru", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, reading)
}

// handleHistory: GET /api/readings/history?range=24h
func (h *APIHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	dur, err := h.history.Parse(r.URL.Query().Get("range"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	readings, err := h.store.History(ctx, h.now().UTC().Add(-dur))
	if err != nil {
		h.logger.Error("Chyba při získávání historie", "range", dur, "error", err)
		http.Error(w, "Chyba při načítání dat", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, readings)
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Chyba při zápisu JSON odpovědi", "error", err)
	}
}

// Parse: prázdné = Default, jinak parseSpan omezený na (0, Max].
func (p RangePolicy) Parse(s string) (time.Duration, error) {
	if s == "" {
		return p.Default, nil
	}
	dur, err := parseSpan(s)
	if err != nil {
		return 0, fmt.Errorf("neplatný rozsah %q: %w", s, err)
	}
	if dur > p.Max {
		return 0, fmt.Errorf("rozsah %q je delší než povolených %s", s, p.Max)
	}
	return dur, nil
}

// parseSpan: Go duration ("1h", "30m") nebo počet dní ("7d"), vždy kladná.
func parseSpan(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 || n > maxSpanDays {
			return 0, fmt.Errorf("počet dní musí být 1..%d", maxSpanDays)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("očekáváno např. 1h, 24h nebo 7d")
	}
	if dur <= 0 {
		return 0, errors.New("rozsah musí být kladný")
	}
	return dur, nil
}

// CorsMiddleware přidává HTTP hlavičky, které povolí prohlížeči
// volat toto API běžící na jiném portu/doméně.
func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Povolíme přístup odkudkoliv (*) - v produkci zde má být konkrétní doména.
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Preflight request, odpovíme OK a končíme.
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
