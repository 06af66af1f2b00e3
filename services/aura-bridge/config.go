package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config drží konfiguraci bridge. Zdroj pravdy jsou ENV proměnné (12-Factor),
// volitelný YAML soubor (CONFIG_PATH) dává jen výchozí hodnoty pod nimi.
type Config struct {
	// MQTT
	MQTTBroker   string
	MQTTPort     string
	MQTTClientID string
	InputTopic   string // odsud čteme data z ESP32
	OutputTopic  string // sem posíláme obohacený JSON

	// Pošta (IMAP)
	EmailUser       string
	EmailPass       string
	IMAPServer      string
	MailTimeout     time.Duration
	MailMaxMessages int

	// Generativní model. Prázdný klíč = citáty i souhrny v degradovaném režimu.
	GeminiAPIKey string
	GeminiModel  string
	GenAITimeout time.Duration

	// App
	ReadingsLogPath string // prázdné = vypnuto
	HTTPPort        string
	LogLevel        string
}

// fileConfig odpovídá struktuře YAML souboru.
type fileConfig struct {
	MQTT struct {
		Broker      string `yaml:"broker"`
		Port        string `yaml:"port"`
		ClientID    string `yaml:"client_id"`
		TopicSensor string `yaml:"topic_sensor"`
		TopicOutput string `yaml:"topic_backend"`
	} `yaml:"mqtt"`
	Email struct {
		User        string `yaml:"user"`
		Pass        string `yaml:"pass"`
		Server      string `yaml:"server"`
		Timeout     string `yaml:"timeout"`
		MaxMessages string `yaml:"max_messages"`
	} `yaml:"email"`
	Gemini struct {
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		Timeout string `yaml:"timeout"`
	} `yaml:"gemini"`
	ReadingsLog string `yaml:"readings_log"`
	HTTPPort    string `yaml:"http_port"`
	LogLevel    string `yaml:"log_level"`
}

// LoadConfig načte .env (pokud existuje), volitelný YAML a ENV.
// Chybějící povinná hodnota je fatální chyba startu.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("nelze načíst .env: %w", err)
	}
	return loadConfig(os.LookupEnv)
}

type lookupFunc func(string) (string, bool)

func loadConfig(lookup lookupFunc) (Config, error) {
	var fc fileConfig
	if path, ok := lookup("CONFIG_PATH"); ok && path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("čtení config souboru %s: %w", path, err)
		}
		// ${VAR} reference v YAML rozbalíme stejným lookupem.
		expanded := os.Expand(string(data), func(key string) string {
			v, _ := lookup(key)
			return v
		})
		if err := yaml.Unmarshal([]byte(expanded), &fc); err != nil {
			return Config{}, fmt.Errorf("parse config YAML: %w", err)
		}
	}

	get := func(key, fileValue, fallback string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		if fileValue != "" {
			return fileValue
		}
		return fallback
	}

	cfg := Config{
		MQTTBroker:   get("MQTT_BROKER", fc.MQTT.Broker, ""),
		MQTTPort:     get("MQTT_PORT", fc.MQTT.Port, ""),
		MQTTClientID: get("MQTT_CLIENT_ID", fc.MQTT.ClientID, "aura-bridge"),
		InputTopic:   get("MQTT_TOPIC_SENSOR", fc.MQTT.TopicSensor, ""),
		OutputTopic:  get("MQTT_TOPIC_BACKEND", fc.MQTT.TopicOutput, ""),

		EmailUser:  get("EMAIL_USER", fc.Email.User, ""),
		EmailPass:  get("EMAIL_PASS", fc.Email.Pass, ""),
		IMAPServer: get("IMAP_SERVER", fc.Email.Server, "imap.gmail.com:993"),

		GeminiAPIKey: get("GEMINI_API_KEY", fc.Gemini.APIKey, ""),
		GeminiModel:  get("GEMINI_MODEL", fc.Gemini.Model, "gemini-2.0-flash"),

		ReadingsLogPath: get("READINGS_LOG_PATH", fc.ReadingsLog, "sensor_data.log"),
		HTTPPort:        get("HTTP_PORT", fc.HTTPPort, "8080"),
		LogLevel:        get("LOG_LEVEL", fc.LogLevel, "info"),
	}
	// READINGS_LOG_PATH="" explicitně log vypne.
	if v, ok := lookup("READINGS_LOG_PATH"); ok && v == "" {
		cfg.ReadingsLogPath = ""
	}

	var errs []error
	var err error
	if cfg.MailTimeout, err = parseDuration("MAIL_TIMEOUT", get("MAIL_TIMEOUT", fc.Email.Timeout, "15s")); err != nil {
		errs = append(errs, err)
	}
	if cfg.GenAITimeout, err = parseDuration("GENAI_TIMEOUT", get("GENAI_TIMEOUT", fc.Gemini.Timeout, "10s")); err != nil {
		errs = append(errs, err)
	}
	if cfg.MailMaxMessages, err = strconv.Atoi(get("MAIL_MAX_MESSAGES", fc.Email.MaxMessages, "3")); err != nil || cfg.MailMaxMessages <= 0 {
		errs = append(errs, fmt.Errorf("MAIL_MAX_MESSAGES musí být kladné celé číslo"))
	}
	if _, err := strconv.Atoi(cfg.MQTTPort); cfg.MQTTPort != "" && err != nil {
		errs = append(errs, fmt.Errorf("MQTT_PORT není číslo: %q", cfg.MQTTPort))
	}

	if missing := cfg.missingRequired(); len(missing) > 0 {
		errs = append(errs, fmt.Errorf("chybí povinná konfigurace: %s", strings.Join(missing, ", ")))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

func (c Config) missingRequired() []string {
	required := []struct {
		key, value string
	}{
		{"MQTT_BROKER", c.MQTTBroker},
		{"MQTT_PORT", c.MQTTPort},
		{"MQTT_TOPIC_SENSOR", c.InputTopic},
		{"MQTT_TOPIC_BACKEND", c.OutputTopic},
		{"EMAIL_USER", c.EmailUser},
		{"EMAIL_PASS", c.EmailPass},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	return missing
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s není platná doba (např. 10s): %q", key, value)
	}
	return d, nil
}

// LogValue skryje hesla a klíče, když config logujeme při startu.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("broker", BrokerURL(c.MQTTBroker, c.MQTTPort)),
		slog.String("input_topic", c.InputTopic),
		slog.String("output_topic", c.OutputTopic),
		slog.String("imap_server", c.IMAPServer),
		slog.String("email_user", c.EmailUser),
		slog.Bool("genai_enabled", c.GeminiAPIKey != ""),
		slog.String("genai_model", c.GeminiModel),
		slog.Int("mail_max_messages", c.MailMaxMessages),
		slog.String("readings_log", c.ReadingsLogPath),
	)
}

// parseLogLevel: debug|info|warn|error, cokoliv jiného = info.
func parseLogLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}
