package main

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// ReadingLog je volitelný append-only textový log normalizovaných měření.
type ReadingLog interface {
	Append(at time.Time, r Reading) error
}

// FileReadingLog píše jeden řádek na měření.
// Stejně jako log-collector: Open-Write-Close pro každý zápis, aby fungovala rotace (logrotate).
type FileReadingLog struct {
	path string
	mu   sync.Mutex
}

func NewFileReadingLog(path string) *FileReadingLog {
	return &FileReadingLog{path: path}
}

func (l *FileReadingLog) Append(at time.Time, r Reading) error {
	line := formatReadingLine(at, r)

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("nelze otevřít log měření: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("zápis do logu měření: %w", err)
	}
	return nil
}

// formatReadingLine -> "2025-01-02 15:04:05 - T:22.5, H:48, C:400, L:50"
func formatReadingLine(at time.Time, r Reading) string {
	return fmt.Sprintf("%s - T:%g, H:%g, C:%g, L:%g",
		at.Format(time.DateTime), r.Temperature, r.Humidity, r.CO2, r.Light)
}
