package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

const serviceName = "aura-bridge"

func main() {
	// 1. Konfigurace. Bez ní nemá smysl cokoliv poslouchat.
	cfg, err := LoadConfig()
	if err != nil {
		slog.Error("Kritická chyba konfigurace", "error", err)
		os.Exit(1)
	}
	level := parseLogLevel(cfg.LogLevel)
	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Generativní model (volitelný). Bez klíče běžíme v degradovaném režimu.
	var gen TextGenerator
	if cfg.GeminiAPIKey != "" {
		g, err := NewGeminiGenerator(ctx, GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.GenAITimeout,
		})
		if err != nil {
			bootLogger.Error("Kritická chyba: GenAI klient", "error", err)
			os.Exit(1)
		}
		gen = g
	} else {
		bootLogger.Warn("GEMINI_API_KEY chybí, citáty a souhrny budou náhradní")
	}

	// 3. MQTT. Problém slepice-vejce: logger do MQTT potřebuje klienta,
	// takže transport i dispatcher vytvoříme s bootLoggerem a hlavní logger až potom.
	var pipeline *Pipeline
	dispatcher := NewDispatcher(func(ctx context.Context, payload []byte) error {
		return pipeline.Handle(ctx, payload)
	}, bootLogger)

	transport := NewMQTTTransport(TransportConfig{
		BrokerURL:   BrokerURL(cfg.MQTTBroker, cfg.MQTTPort),
		ClientID:    cfg.MQTTClientID,
		InputTopic:  cfg.InputTopic,
		OutputTopic: cfg.OutputTopic,
	}, dispatcher, bootLogger)

	// --- SETUP LOGGERU ---
	// Stdout + logs/aura-bridge (log-collector z toho dělá soubor)
	multi := io.MultiWriter(os.Stdout, NewMqttLogWriter(transport.Client(), serviceName))
	logger := slog.New(slog.NewJSONHandler(multi, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	dispatcher.logger = logger

	logger.Info("Spouštím službu AuraLink Bridge", "config", cfg)

	// 4. Wiring pipeline
	mailbox := &IMAPMailbox{
		Addr:     cfg.IMAPServer,
		Username: cfg.EmailUser,
		Password: cfg.EmailPass,
		Timeout:  cfg.MailTimeout,
	}
	var readings ReadingLog
	if cfg.ReadingsLogPath != "" {
		readings = NewFileReadingLog(cfg.ReadingsLogPath)
	}
	pipeline = NewPipeline(
		NewQuoteEnricher(gen, cfg.GenAITimeout, logger),
		NewEmailEnricher(mailbox, gen, cfg.MailMaxMessages, cfg.GenAITimeout, logger),
		transport,
		readings,
		logger,
	)

	// Worker musí běžet dřív, než přijde první zpráva.
	dispatcher.Start(ctx)

	if err := transport.Connect(); err != nil {
		logger.Error("Fatal MQTT Error", "error", err)
		os.Exit(1)
	}
	logger.Info("Připojeno k MQTT", "broker", BrokerURL(cfg.MQTTBroker, cfg.MQTTPort))

	// 5. Healthcheck
	health := NewHealthServer(transport.IsConnected, logger)
	go health.Run(ctx, cfg.HTTPPort)

	// 6. Graceful Shutdown - blokujeme, dokud nepřijde SIGINT/SIGTERM.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Ukončuji službu...")
	dispatcher.Stop()
	transport.Close()
	cancel()
}
