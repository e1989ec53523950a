//go:build integration
// +build integration

package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net/http/httptest"
	"os"
	"time"

	"inviqa/mail-relay/config"
	h "inviqa/mail-relay/integration/http"
	"inviqa/mail-relay/kafka"
	mt "inviqa/mail-relay/mail/test"
	"inviqa/mail-relay/queue"
	"inviqa/mail-relay/request"
	"inviqa/mail-relay/request/data"
)

const (
	testModeDocker = "docker"
	waitTimeout    = time.Second * 30
)

var (
	cfg         *config.Config
	db          *sql.DB
	repo        request.Repository
	server      *httptest.Server
	transport   *mt.MockTransport
	supervisor  *kafka.Supervisor
	coordinator *queue.Coordinator
	keyId       uint
)

func init() {
	server = httptest.NewServer(h.GetHttpTestHandlerFunc())
	setupConfig()

	db, _ = data.NewDB(cfg)
	repo = request.NewRepository(data.NewGateway(db), cfg)

	purgeTables()
	keyId = insertAuthKey("integration-key", "")

	startRelay(context.Background())
}

func setupConfig() *config.Config {
	runInDocker := os.Getenv("GO_TEST_MODE") == testModeDocker

	cfg = &config.Config{
		DBDriver:               config.Postgres,
		KafkaHost:              []string{"localhost:9092"},
		KafkaTopic:             "email-integration",
		KafkaConsumerGroup:     "mail-relay-integration",
		KafkaReplicationFactor: 1,
		Prefetch:               3,
		SidecarProxyUrl:        server.URL,
	}

	host, port := "localhost", 15432
	if os.Getenv("DB_DRIVER") == string(config.MySQL) {
		cfg.DBDriver = config.MySQL
		port = 13306
	}

	if runInDocker {
		host = cfg.DBDriver.String()
		port = port - 10000
		cfg.KafkaHost = []string{"kafka:29092"}
	}

	if cfg.DBDriver.MySQL() {
		cfg.DBDSN = fmt.Sprintf("mail-relay:mail-relay@tcp(%s:%d)/mail-relay?parseTime=true", host, port)
	} else {
		cfg.DBDSN = fmt.Sprintf("postgres://mail-relay:mail-relay@%s:%d/mail-relay?sslmode=disable", host, port)
	}

	return cfg
}

func startRelay(ctx context.Context) {
	saramaCfg := kafka.NewSaramaConfig(false, false, cfg.Prefetch)

	supervisor = kafka.NewSupervisor(cfg.KafkaHost, cfg.KafkaTopic, cfg.KafkaReplicationFactor, saramaCfg)
	go supervisor.Run(ctx)

	transport = mt.NewMockTransport()
	coordinator = queue.New(repo, supervisor, transport, nil)
	go coordinator.Run(ctx)

	go kafka.NewConsumer(cfg.KafkaHost, cfg.KafkaConsumerGroup, cfg.KafkaTopic, saramaCfg, coordinator).Consume(ctx)
}

// waitUntilFulfilled polls the store until every id is fulfilled or the
// timeout is reached.
func waitUntilFulfilled(ids ...uint) bool {
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		done := true
		for _, id := range ids {
			r, err := repo.Get(context.Background(), id)
			if err != nil || r.Pending() {
				done = false
				break
			}
		}
		if done {
			return true
		}
		time.Sleep(time.Millisecond * 200)
	}

	return false
}

// waitForSends waits until the transport has been handed id at least n times.
func waitForSends(id uint, n int) bool {
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		count := 0
		for _, r := range transport.Sent() {
			if r.Id == id {
				count++
			}
		}
		if count >= n {
			return true
		}
		time.Sleep(time.Millisecond * 200)
	}

	return false
}
