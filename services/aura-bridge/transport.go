package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 250 // ms
	dispatchBuffer    = 8
)

// MessageHandler zpracuje jeden payload (v produkci Pipeline.Handle).
type MessageHandler func(ctx context.Context, payload []byte) error

// Dispatcher zajistí, že zprávy zpracovává vždy jen jedna goroutina, jedna po druhé.
// Paho callback jen vloží payload do kanálu, takže pomalé obohacení neblokuje router knihovny.
type Dispatcher struct {
	inbox   chan []byte
	handler MessageHandler
	logger  *slog.Logger
	wg      sync.WaitGroup

	mu     sync.Mutex // chrání closed a zavření inboxu
	closed bool
}

func NewDispatcher(handler MessageHandler, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		inbox:   make(chan []byte, dispatchBuffer),
		handler: handler,
		logger:  logger,
	}
}

// Start spustí worker; skončí po Stop() nebo zrušení ctx.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		discarded := 0
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-d.inbox:
				if !ok {
					if discarded > 0 {
						d.logger.Warn("Ukončení: zprávy ve frontě zahozeny", "count", discarded)
					}
					return
				}
				// Po Stop() už nic nového nezačínáme, jen vyprázdníme frontu.
				if d.stopping() {
					discarded++
					continue
				}
				// Chyby už zalogovala pipeline, tady jen zpráva končí.
				_ = d.handler(ctx, payload)
			}
		}
	}()
}

func (d *Dispatcher) stopping() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Submit nikdy neblokuje. Plný buffer = zpráva se zahodí (žádná retry fronta).
func (d *Dispatcher) Submit(payload []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	select {
	case d.inbox <- payload:
		return true
	default:
		d.logger.Warn("Zpracování nestíhá, zpráva zahozena", "bytes", len(payload))
		return false
	}
}

// Stop zavře frontu a počká jen na rozpracovanou zprávu, čekající zprávy se zahodí.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.inbox)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// MQTTTransport vlastní jediný MQTT klient procesu.
type MQTTTransport struct {
	client      mqtt.Client
	inputTopic  string
	outputTopic string
}

// TransportConfig - nastavení pro připojení k brokeru.
type TransportConfig struct {
	BrokerURL   string
	ClientID    string
	InputTopic  string
	OutputTopic string
}

// BrokerURL složí adresu z MQTT_BROKER a MQTT_PORT ("tcp://host:port"),
// pokud broker už schéma obsahuje, nechá ho být.
func BrokerURL(broker, port string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return fmt.Sprintf("tcp://%s:%s", broker, port)
}

// NewMQTTTransport připraví klienta. Subscribe se děje v OnConnect,
// takže po reconnectu se odběr obnoví sám.
func NewMQTTTransport(cfg TransportConfig, dispatcher *Dispatcher, logger *slog.Logger) *MQTTTransport {
	t := &MQTTTransport{
		inputTopic:  cfg.InputTopic,
		outputTopic: cfg.OutputTopic,
	}

	opts := mqtt.NewClientOptions().AddBroker(cfg.BrokerURL).SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		onMessage := func(_ mqtt.Client, msg mqtt.Message) {
			// Payload kopírujeme, paho buffer může znovu použít.
			payload := append([]byte(nil), msg.Payload()...)
			dispatcher.Submit(payload)
		}
		if err := subscribe(c, t.inputTopic, onMessage, publishTimeout); err != nil {
			logger.Error("Subscribe selhal", "topic", t.inputTopic, "error", err)
			return
		}
		logger.Info("Poslouchám na topicu", "topic", t.inputTopic)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("Spojení s MQTT brokerem ztraceno", "error", err)
	})

	t.client = mqtt.NewClient(opts)
	return t
}

// subscribe počká na SUBACK. Nepotvrzený odběr po timeoutu je chyba, ne úspěch.
func subscribe(c mqtt.Client, topic string, onMessage mqtt.MessageHandler, wait time.Duration) error {
	token := c.Subscribe(topic, 0, onMessage)
	if !token.WaitTimeout(wait) {
		return fmt.Errorf("subscribe %s: broker neodpověděl do %s", topic, wait)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// Connect je blokující; chyba při startu je fatální pro volajícího.
func (t *MQTTTransport) Connect() error {
	token := t.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT connect: %w", err)
	}
	return nil
}

// Client zpřístupní klienta pro MqttLogWriter.
func (t *MQTTTransport) Client() mqtt.Client { return t.client }

// IsConnected pro healthcheck.
func (t *MQTTTransport) IsConnected() bool { return t.client.IsConnectionOpen() }

// Publish odešle obohacenou zprávu (QoS 0, bez retain) a čeká na token s timeoutem.
func (t *MQTTTransport) Publish(ctx context.Context, payload []byte) error {
	token := t.client.Publish(t.outputTopic, 0, false, payload)

	wait := publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < wait {
			wait = d
		}
	}
	if !token.WaitTimeout(wait) {
		return errors.New("MQTT publish timeout")
	}
	return token.Error()
}

// Close odpojí klienta s krátkým timeoutem.
func (t *MQTTTransport) Close() {
	t.client.Disconnect(disconnectQuiesce)
}
