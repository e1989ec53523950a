package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/alexflint/go-arg"
)

const (
	MySQL    DbDriver = "mysql"
	Postgres DbDriver = "postgres"
)

type DbDriver string

var supportedDbTypes = map[DbDriver]bool{
	Postgres: true,
	MySQL:    true,
}

type Config struct {
	SkipMigrations         bool     `arg:"--skip-migrations,env:SKIP_MIGRATIONS"`
	DBDriver               DbDriver `arg:"--db-driver,env:DB_DRIVER"`
	DBDSN                  string   `arg:"--db-dsn,env:DB_DSN,required"`
	KafkaHost              []string `arg:"--kafka-host,env:KAFKA_HOST,required"`
	KafkaTopic             string   `arg:"--kafka-topic,env:KAFKA_TOPIC"`
	KafkaConsumerGroup     string   `arg:"--kafka-consumer-group,env:KAFKA_CONSUMER_GROUP"`
	KafkaReplicationFactor int16    `arg:"--kafka-replication-factor,env:KAFKA_REPLICATION_FACTOR"`
	TLSEnable              bool     `arg:"--kafka-tls,env:TLS_ENABLE"`
	TLSSkipVerifyPeer      bool     `arg:"--kafka-tls-verify-peer,env:TLS_SKIP_VERIFY_PEER"`
	SMTPConn               string   `arg:"--smtp-conn,env:SMTP_CONN,required"`
	MailDefaultFrom        string   `arg:"--mail-default-from,env:MAIL_DEFAULT_FROM"`
	Port                   int      `arg:"--port,env:PORT"`
	Prefetch               int      `arg:"--prefetch,env:PREFETCH"`
	RunCleanup             bool     `arg:"--cleanup,env:RUN_CLEANUP"`
	RunOptimize            bool     `arg:"--optimize,env:RUN_OPTIMIZE"`
	SidecarProxyUrl        string   `arg:"--sidecar-proxy-url,env:SIDECAR_PROXY_URL"`
}

func NewConfig() (*Config, error) {
	c := &Config{
		DBDriver:               Postgres,
		KafkaTopic:             "email",
		KafkaConsumerGroup:     "mail-relay",
		KafkaReplicationFactor: 1,
		Port:                   80,
		Prefetch:               3,
	}
	arg.MustParse(c)

	if !supportedDbTypes[c.DBDriver] {
		return nil, fmt.Errorf("the DB_DRIVER provided (%s) is not supported", c.DBDriver)
	}

	if c.Prefetch < 1 {
		return nil, fmt.Errorf("PREFETCH must be at least 1, got %d", c.Prefetch)
	}

	if _, err := url.Parse(c.SMTPConn); err != nil {
		return nil, fmt.Errorf("the SMTP_CONN provided is not a valid URL: %w", err)
	}

	return c, nil
}

func (c *Config) GetListenAddr() string {
	return ":" + strconv.Itoa(c.Port)
}

func (c *Config) GetDependencySystemAddresses() []string {
	return c.KafkaHost
}

// GetRetentionHorizon returns the instant before which fulfilled requests
// are eligible for deletion.
func (c *Config) GetRetentionHorizon(now time.Time) time.Time {
	return now.AddDate(0, -1, 0)
}

func (c Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"SkipMigrations":         c.SkipMigrations,
		"DBDriver":               c.DBDriver,
		"DBDSN":                  "xxxxx",
		"KafkaHost":              c.KafkaHost,
		"KafkaTopic":             c.KafkaTopic,
		"KafkaConsumerGroup":     c.KafkaConsumerGroup,
		"KafkaReplicationFactor": c.KafkaReplicationFactor,
		"TLSEnable":              c.TLSEnable,
		"TLSSkipVerifyPeer":      c.TLSSkipVerifyPeer,
		"SMTPConn":               "xxxxx",
		"MailDefaultFrom":        c.MailDefaultFrom,
		"Port":                   c.Port,
		"Prefetch":               c.Prefetch,
		"RunCleanup":             c.RunCleanup,
		"RunOptimize":            c.RunOptimize,
		"SidecarProxyUrl":        c.SidecarProxyUrl,
	})
}

func (d DbDriver) MySQL() bool {
	return d == MySQL
}

func (d DbDriver) Postgres() bool {
	return d == Postgres
}

func (d DbDriver) String() string {
	return string(d)
}
