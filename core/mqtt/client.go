package mqtt

// Publisher sends payloads to an MQTT broker.
type Publisher interface {
	// Publish delivers payload on topic with the publisher's QoS settings.
	Publish(topic string, payload []byte) error
}
