package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		slog.Error("Neplatná konfigurace", "error", err)
		os.Exit(1)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	// 1. Vlastní logger jen na stdout, abychom viděli, že collector běží.
	// Do MQTT ho neposíláme, jinak by četl sám sebe.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	logger.Info("Startuji Log Collector", "dir", cfg.LogDir, "topic", cfg.LogTopic)

	// 2. Příprava adresáře pro logy (včetně podadresářů), 0755.
	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		logger.Error("Nelze vytvořit adresář pro logy", "error", err)
		os.Exit(1)
	}

	collector := NewCollector(cfg.LogDir, logger)

	// 3. Připojení k MQTT. Callback se spustí pro každou logovací zprávu z jakékoliv služby.
	opts := mqtt.NewClientOptions().AddBroker(cfg.MQTTBroker).SetClientID(cfg.MQTTClientID)
	opts.SetAutoReconnect(true)
	opts.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		_ = collector.Handle(msg.Topic(), msg.Payload())
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		logger.Error("MQTT Connection failed", "error", token.Error())
		os.Exit(1)
	}
	defer client.Disconnect(250)

	// 4. Subscribe
	if token := client.Subscribe(cfg.LogTopic, 0, nil); token.Wait() && token.Error() != nil {
		logger.Error("Subscribe failed", "error", token.Error())
		os.Exit(1)
	}
	logger.Info("Poslouchám logy", "topic", cfg.LogTopic)

	// 5. Wait loop
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
}
