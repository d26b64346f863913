package pubsub

import "github.com/charmbracelet/log"

// noop is used when no Pub/Sub project is configured. Messages are dropped
// after being logged, and decoding still works for push requests.
type noop struct{}

func NewNoop() PubSubClient {
	return noop{}
}

func (noop) SendMessage(topic EventType, data any) error {
	log.Debug("Pub/Sub disabled, dropping message", "topic", topic)
	return nil
}

func (noop) ProcessMessage(data []byte, returnValue any) error {
	return decode(data, returnValue)
}

func (noop) Close() {}
