package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	coremqtt "github.com/kilianp07/stationfinder/core/mqtt"
	"github.com/kilianp07/stationfinder/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client. An empty
// broker disables MQTT publishing.
type Config struct {
	Broker      string      `json:"broker"`
	ClientID    string      `json:"client_id"`
	Username    string      `json:"username"`
	Password    string      `json:"password"`
	TopicPrefix string      `json:"topic_prefix"`
	UseTLS      bool        `json:"use_tls"`
	ClientCert  string      `json:"client_cert"`
	ClientKey   string      `json:"client_key"`
	CABundle    string      `json:"ca_bundle"`
	AuthMethod  string      `json:"auth_method"`
	QoS         byte        `json:"qos"`
	Retain      bool        `json:"retain"`
	LWTTopic    string      `json:"lwt_topic"`
	LWTPayload  string      `json:"lwt_payload"`
	LWTQoS      byte        `json:"lwt_qos"`
	LWTRetain   bool        `json:"lwt_retain"`
	MaxRetries  int         `json:"max_retries"`
	BackoffMS   int         `json:"backoff_ms"`
	TLSConfig   *tls.Config `json:"-"`
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool { return c.Broker != "" }

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "stationfinder"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "stationfinder"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS == 0 {
		c.BackoffMS = 100
	}
}

// Validate checks the configured values.
func (c Config) Validate() error {
	if c.QoS > 2 || c.LWTQoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2")
	}
	switch c.AuthMethod {
	case "", "username_password", "certificate", "both":
	default:
		return fmt.Errorf("unknown auth_method %s", c.AuthMethod)
	}
	if c.MaxRetries < 0 || c.BackoffMS < 0 {
		return fmt.Errorf("max_retries and backoff_ms must not be negative")
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// PahoClient implements the core Publisher interface using Eclipse Paho.
type PahoClient struct {
	cli        pahoClient
	qos        byte
	retain     bool
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

var _ coremqtt.Publisher = (*PahoClient)(nil)

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the MQTT broker.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		logger:     log,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// Publish sends payload to topic, retrying with exponential backoff.
func (p *PahoClient) Publish(topic string, payload []byte) error {
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, p.qos, p.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published %d bytes to %s", len(payload), topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	return fmt.Errorf("%w: %s: %v", coremqtt.ErrPublishFailed, topic, publishErr)
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
