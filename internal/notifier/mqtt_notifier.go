// internal/notifier/mqtt_notifier.go
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"weather-alert-bot/internal/types"
	"weather-alert-bot/pkg/logger"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const mqttPublishTimeout = 5 * time.Second

// MQTTOptions - параметры брокера
type MQTTOptions struct {
	Broker   string
	Port     int
	Topic    string
	ClientID string
}

// publisher - часть mqtt.Client, нужная для публикации
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTNotifier дублирует уведомления в топик MQTT
type MQTTNotifier struct {
	counter
	client    mqtt.Client
	pub       publisher
	topic     string
	now       func() time.Time
	mu        sync.RWMutex
	connected bool
}

type mqttEnvelope struct {
	Kind   types.MessageKind  `json:"kind"`
	Level  types.MessageLevel `json:"level"`
	Title  string             `json:"title"`
	Body   string             `json:"body"`
	SentAt time.Time          `json:"sent_at"`
}

// NewMQTTNotifier создает клиента брокера. Подключение - через Connect.
func NewMQTTNotifier(opts MQTTOptions) *MQTTNotifier {
	n := &MQTTNotifier{topic: opts.Topic, now: time.Now}

	clientOpts := mqtt.NewClientOptions()
	clientOpts.AddBroker(fmt.Sprintf("tcp://%s:%d", opts.Broker, opts.Port))
	clientOpts.SetClientID(opts.ClientID)
	clientOpts.SetCleanSession(true)
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetConnectRetry(true)
	clientOpts.SetConnectRetryInterval(5 * time.Second)
	clientOpts.SetMaxReconnectInterval(60 * time.Second)
	clientOpts.SetKeepAlive(30 * time.Second)
	clientOpts.SetPingTimeout(10 * time.Second)

	clientOpts.SetOnConnectHandler(func(_ mqtt.Client) {
		n.setConnected(true)
		logger.Info("✅ [MQTT] Подключен к %s:%d", opts.Broker, opts.Port)
	})
	clientOpts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		n.setConnected(false)
		logger.Warn("⚠️ [MQTT] Соединение потеряно: %v", err)
	})

	n.client = mqtt.NewClient(clientOpts)
	n.pub = n.client
	return n
}

// Connect ждет первого подключения с учетом ctx
func (n *MQTTNotifier) Connect(ctx context.Context) error {
	if n.IsConnected() {
		return nil
	}

	token := n.client.Connect()
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// Close отключается от брокера
func (n *MQTTNotifier) Close() {
	if n.client != nil && n.client.IsConnected() {
		n.client.Disconnect(250)
	}
	n.setConnected(false)
}

func (n *MQTTNotifier) setConnected(v bool) {
	n.mu.Lock()
	n.connected = v
	n.mu.Unlock()
}

// IsConnected возвращает состояние соединения
func (n *MQTTNotifier) IsConnected() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.connected
}

// Send публикует сообщение с QoS 1
func (n *MQTTNotifier) Send(ctx context.Context, msg types.Message) error {
	err := n.publish(ctx, msg)
	n.record(n.Name(), err)
	return err
}

func (n *MQTTNotifier) publish(ctx context.Context, msg types.Message) error {
	if !n.IsConnected() {
		return &NotifyError{Channel: n.Name(), Err: fmt.Errorf("mqtt client not connected")}
	}

	data, err := json.Marshal(mqttEnvelope{
		Kind:   msg.Kind,
		Level:  msg.Level,
		Title:  msg.Title,
		Body:   msg.Body,
		SentAt: n.now().UTC(),
	})
	if err != nil {
		return &NotifyError{Channel: n.Name(), Err: fmt.Errorf("marshal message: %w", err)}
	}

	token := n.pub.Publish(n.topic, 1, false, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return &NotifyError{Channel: n.Name(), Err: ctx.Err()}
	case <-time.After(mqttPublishTimeout):
		return &NotifyError{Channel: n.Name(), Err: fmt.Errorf("publish timeout for topic %s", n.topic)}
	}
	if err := token.Error(); err != nil {
		return &NotifyError{Channel: n.Name(), Err: fmt.Errorf("publish: %w", err)}
	}

	logger.Debug("📡 [MQTT] Опубликовано в %s: %s", n.topic, msg.Title)
	return nil
}

// Name возвращает имя
func (n *MQTTNotifier) Name() string {
	return "mqtt"
}

// Stats возвращает статистику
func (n *MQTTNotifier) Stats() []Stats {
	return []Stats{n.snapshot()}
}
