package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		slog.Error("Kritická chyba konfigurace", "error", err)
		os.Exit(1)
	}

	// 1. Setup Logger
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("Startuji Data Persister",
		"broker", cfg.MQTTBroker,
		"topic", cfg.InputTopic,
		"save_timeout", cfg.SaveTimeout,
		"latest_ttl", cfg.LatestTTL,
	)

	// 2. Inicializace Repozitáře (DB + Redis)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := NewRepository(ctx, cfg)
	if err != nil {
		logger.Error("Kritická chyba připojení k databázím", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("Databáze připojeny")

	persister := NewPersister(repo, cfg.SaveTimeout, logger)

	// 3. MQTT Klient Setup
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTTBroker)
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetAutoReconnect(true)

	// --- HLAVNÍ LOGIKA ---
	// Chyby už zalogoval Persister.
	opts.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		_ = persister.Handle(ctx, msg.Payload())
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		logger.Error("MQTT connection failed", "error", token.Error())
		os.Exit(1)
	}
	defer client.Disconnect(250)

	// 4. Subscribe (posloucháme na výstupu z aura-bridge)
	if token := client.Subscribe(cfg.InputTopic, 0, nil); token.Wait() && token.Error() != nil {
		logger.Error("Subscribe failed", "error", token.Error())
		os.Exit(1)
	}
	logger.Info("Poslouchám na topicu", "topic", cfg.InputTopic)

	// 5. Graceful Shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Vypínám službu...")
}
