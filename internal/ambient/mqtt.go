package ambient

import (
	"time"

	"github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/rmcsoft/seqplay/internal/config"
)

// MQTTSource subscribes to a topic carrying the reduced-motion signal.
// Retained messages give the current value right after connecting.
type MQTTSource struct {
	client mqtt.Client
	topic  string
	sink   Sink
	log    logrus.FieldLogger
}

// NewMQTTSource creates a source for the broker described by cfg.
func NewMQTTSource(cfg config.MQTT, sink Sink, logger logrus.FieldLogger) *MQTTSource {
	s := &MQTTSource{
		topic: cfg.Topic,
		sink:  sink,
		log:   logger.WithField("topic", cfg.Topic),
	}

	options := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetAutoReconnect(true).
		SetOnConnectHandler(s.handleOnConnect).
		SetConnectionLostHandler(s.handleConnectionLost)
	s.client = mqtt.NewClient(options)
	return s
}

// Start connects to the broker. The subscription is renewed on every
// reconnect.
func (s *MQTTSource) Start() error {
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// Stop disconnects from the broker.
func (s *MQTTSource) Stop() {
	s.client.Disconnect(250)
}

func (s *MQTTSource) handleOnConnect(client mqtt.Client) {
	s.log.Info("Connected to the motion preference broker")
	token := client.Subscribe(s.topic, 1, s.handleMessage)
	if token.Wait() && token.Error() != nil {
		s.log.WithError(token.Error()).Error("Failed to subscribe")
	}
}

func (s *MQTTSource) handleConnectionLost(client mqtt.Client, err error) {
	s.log.WithError(err).Warn("Lost the motion preference broker")
}

func (s *MQTTSource) handleMessage(client mqtt.Client, msg mqtt.Message) {
	reduced, ok := ParseSignal(string(msg.Payload()))
	if !ok {
		s.log.WithField("payload", string(msg.Payload())).Warn("Ignoring unknown motion signal")
		return
	}
	s.sink.SetAmbient(reduced)
}
