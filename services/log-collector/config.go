package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config služby Log Collector. Sbírá logy všech služeb AuraLink stacku,
// které je publikují na logs/<služba>.
type Config struct {
	MQTTBroker   string
	MQTTClientID string

	// LogTopic musí mít tvar logs/..., název služby se bere z druhé úrovně.
	LogTopic string

	// LogDir: adresář s <služba>.log soubory, v Dockeru namapovaný volume.
	LogDir string

	LogLevel string
}

// LoadConfig načte konfiguraci z ENV a ověří, že topic i adresář dávají smysl.
func LoadConfig() (Config, error) {
	cfg := Config{
		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://mqtt:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "aura-log-collector"),
		LogTopic:     getEnv("LOG_TOPIC", "logs/#"),
		LogDir:       getEnv("LOG_DIR", "/var/log/auralink"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}

	var errs []error
	if !strings.HasPrefix(cfg.LogTopic, "logs/") || cfg.LogTopic == "logs/" {
		errs = append(errs, fmt.Errorf("LOG_TOPIC %q: očekávám logs/<služba> nebo logs/#", cfg.LogTopic))
	}
	if !filepath.IsAbs(cfg.LogDir) {
		errs = append(errs, fmt.Errorf("LOG_DIR %q: cesta musí být absolutní", cfg.LogDir))
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// getEnv vrací fallback i pro prázdnou hodnotu.
func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
