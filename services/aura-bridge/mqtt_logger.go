package main

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MqttLogWriter je io.Writer, který každý logovací řádek pošle na logs/<služba>.
// Odtud si ho bere log-collector a píše do souboru.
type MqttLogWriter struct {
	client mqtt.Client
	topic  string
}

func NewMqttLogWriter(client mqtt.Client, serviceName string) *MqttLogWriter {
	return &MqttLogWriter{
		client: client,
		topic:  fmt.Sprintf("logs/%s", serviceName),
	}
}

// Write neblokuje: Token.Wait() nevoláme (fire-and-forget).
// Dokud klient není připojený, řádky jdou jen na stdout.
func (w *MqttLogWriter) Write(p []byte) (int, error) {
	if !w.client.IsConnectionOpen() {
		return len(p), nil
	}
	// slog buffer po návratu znovu použije, proto kopie.
	payload := make([]byte, len(p))
	copy(payload, p)
	w.client.Publish(w.topic, 0, false, payload)
	return len(p), nil
}
