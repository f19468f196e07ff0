package mqtt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	coremqtt "github.com/kilianp07/stationfinder/core/mqtt"
)

// helper to generate self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile = dir + "/cert.pem"
	keyFile = dir + "/key.pem"
	caFile = dir + "/ca.pem"
	if err := os.WriteFile(certFile, certPEM, 0644); err != nil {
		t.Fatalf("write cert: %v", err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0644); err != nil {
		t.Fatalf("write key: %v", err)
	}
	if err := os.WriteFile(caFile, certPEM, 0644); err != nil {
		t.Fatalf("write ca: %v", err)
	}
	return
}

func stubClient(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() {
		newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) }
	})
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	if err != nil {
		t.Fatalf("load tls: %v", err)
	}
	if len(tlsCfg.Certificates) == 0 {
		t.Fatalf("no certs loaded")
	}
	if tlsCfg.RootCAs == nil {
		t.Fatalf("no root CAs")
	}
	if _, err := (Config{UseTLS: true}).LoadTLSConfig(); err == nil {
		t.Fatal("expected error without certificate paths")
	}
}

func TestNewClientOptionsAuth(t *testing.T) {
	opts, err := NewClientOptions(Config{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("opts: %v", err)
	}
	if opts.Username != "u" || opts.Password != "p" {
		t.Fatalf("auth not set")
	}
	opts, err = NewClientOptions(Config{Broker: "tcp://localhost:1883", Username: "u", AuthMethod: "certificate"})
	if err != nil {
		t.Fatalf("opts: %v", err)
	}
	if opts.Username != "" {
		t.Fatalf("username must not be used for certificate auth")
	}
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	var c Config
	if c.Enabled() {
		t.Fatal("empty broker must disable mqtt")
	}
	c.SetDefaults()
	if c.TopicPrefix != "stationfinder" || c.MaxRetries != 3 || c.BackoffMS != 100 {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	for _, bad := range []Config{{QoS: 3}, {AuthMethod: "token"}, {MaxRetries: -1}} {
		if err := bad.Validate(); err == nil {
			t.Errorf("expected error for %+v", bad)
		}
	}
}

func TestPublishQoSAndRetain(t *testing.T) {
	mc := &mockClient{}
	stubClient(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", QoS: 1, Retain: true})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if mc.opts.ClientID != "stationfinder" {
		t.Fatalf("default client id not applied: %s", mc.opts.ClientID)
	}
	if err := cli.Publish("a/b", []byte("{}")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(mc.published) != 1 || mc.published[0].qos != 1 || !mc.published[0].retained || mc.published[0].topic != "a/b" {
		t.Fatalf("unexpected publish %+v", mc.published)
	}
}

func TestLWTConfigured(t *testing.T) {
	mc := &mockClient{}
	stubClient(t, mc)
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", LWTTopic: "lwt", LWTPayload: "bye", LWTQoS: 1}
	cli, err := NewPahoClient(cfg)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if !mc.opts.WillEnabled {
		t.Fatalf("will not enabled")
	}
	if mc.opts.WillTopic != "lwt" || string(mc.opts.WillPayload) != "bye" {
		t.Fatalf("will options incorrect")
	}
	cli.Disconnect()
	if len(mc.published) != 0 {
		t.Fatalf("unexpected publish on disconnect")
	}
}

func TestRetryLogic(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	stubClient(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 1, BackoffMS: 1})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if err := cli.Publish("t", nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(mc.published) != 2 {
		t.Fatalf("expected retries")
	}
}

func TestPublishGivesUp(t *testing.T) {
	fail := fmt.Errorf("net fail")
	mc := &mockClient{publishErrs: []error{fail, fail, fail}}
	stubClient(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", MaxRetries: 2, BackoffMS: 1})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	err = cli.Publish("t", nil)
	if !errors.Is(err, coremqtt.ErrPublishFailed) {
		t.Fatalf("expected ErrPublishFailed, got %v", err)
	}
	if len(mc.published) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(mc.published))
	}
}

func TestConnectError(t *testing.T) {
	mc := &mockClient{connectErr: fmt.Errorf("refused")}
	stubClient(t, mc)
	if _, err := NewPahoClient(Config{Broker: "tcp://localhost:1883"}); err == nil {
		t.Fatal("expected connect error")
	}
}

// mockClient implements pahoClient for tests
type mockClient struct {
	opts      *paho.ClientOptions
	published []struct {
		topic    string
		qos      byte
		retained bool
	}
	publishErrs []error
	connectErr  error
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.connectErr != nil {
		return &dummyToken{err: m.connectErr}
	}
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(nil)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) {}
func (m *mockClient) Publish(topic string, qos byte, retained bool, _ interface{}) paho.Token {
	m.published = append(m.published, struct {
		topic    string
		qos      byte
		retained bool
	}{topic, qos, retained})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }
