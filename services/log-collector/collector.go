package main

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var errBadTopic = errors.New("topic neodpovídá logs/<služba>")

// Collector zapisuje logy služeb do souborů <dir>/<služba>.log.
type Collector struct {
	dir    string
	logger *slog.Logger
}

func NewCollector(dir string, logger *slog.Logger) *Collector {
	return &Collector{dir: dir, logger: logger}
}

// Handle zpracuje jednu logovací zprávu z topicu, např. "logs/aura-bridge".
func (c *Collector) Handle(topic string, payload []byte) error {
	serviceName, err := serviceFromTopic(topic)
	if err != nil {
		c.logger.Warn("Ignoruji zprávu se špatným formátem topicu", "topic", topic, "error", err)
		return err
	}
	if err := appendLogToFile(c.dir, serviceName, payload); err != nil {
		c.logger.Error("Chyba při zápisu do souboru", "service", serviceName, "error", err)
		return err
	}
	return nil
}

// serviceFromTopic vrátí druhou úroveň topicu. Název se stane jménem souboru,
// takže nesmí obsahovat nic, co by vedlo mimo adresář s logy.
func serviceFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 || parts[1] == "" {
		return "", errBadTopic
	}
	name := parts[1]
	if name == "." || name == ".." || strings.ContainsAny(name, `\`+"\x00") || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: neplatný název služby %q", errBadTopic, name)
	}
	return name, nil
}

// appendLogToFile otevře (nebo vytvoří) soubor a připíše na konec nový řádek.
// Open-Write-Close pro každý zápis: pro logování to stačí a nevadí rotace logů (rsyslog).
func appendLogToFile(dir, serviceName string, data []byte) error {
	filename := filepath.Join(dir, fmt.Sprintf("%s.log", serviceName))

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return err
	}
	// MQTT payload nový řádek mít nemusí, slog ho ale posílá.
	if !bytes.HasSuffix(data, []byte("\n")) {
		if _, err := f.WriteString("\n"); err != nil {
			return err
		}
	}
	return nil
}
