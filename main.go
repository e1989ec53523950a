package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	nr "github.com/newrelic/go-agent/v3/newrelic"

	"inviqa/mail-relay/config"
	h "inviqa/mail-relay/http"
	"inviqa/mail-relay/job"
	"inviqa/mail-relay/kafka"
	"inviqa/mail-relay/log"
	"inviqa/mail-relay/mail"
	"inviqa/mail-relay/newrelic"
	"inviqa/mail-relay/prometheus"
	"inviqa/mail-relay/queue"
	"inviqa/mail-relay/request"
	"inviqa/mail-relay/request/data"
)

func main() {
	nrApp, stopAgent := newrelic.StartAgent()
	defer stopAgent()

	ctx, cancel := context.WithCancel(context.Background())
	cfg, err := config.NewConfig()
	if err != nil {
		log.Logger.Fatalf("unable to create configuration: %s", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	db, dbClose := data.NewDB(cfg)
	defer dbClose()

	gw := data.NewGateway(db)

	var exitCode int
	switch {
	case cfg.RunCleanup:
		exitCode = job.RunCleanup(ctx, request.NewRepository(gw, cfg), cfg)
	case cfg.RunOptimize:
		exitCode = job.RunOptimize(ctx, gw, cfg)
	default:
		runMainApp(ctx, nrApp, gw, cfg)
	}

	if exitCode > 0 {
		dbClose() // we call this manually because os.Exit() does not respect defer
		os.Exit(exitCode)
	}
}

func runMainApp(ctx context.Context, nrApp *nr.Application, gw *data.Gateway, cfg *config.Config) {
	gw.StartProbe(ctx)
	repo := request.NewRepository(gw, cfg)

	transport, err := mail.NewTransport(cfg.SMTPConn)
	if err != nil {
		log.Logger.Fatalf("unable to configure the SMTP transport: %s", err)
	}

	saramaCfg := kafka.NewSaramaConfig(cfg.TLSEnable, cfg.TLSSkipVerifyPeer, cfg.Prefetch)
	supervisor := kafka.NewSupervisor(cfg.KafkaHost, cfg.KafkaTopic, cfg.KafkaReplicationFactor, saramaCfg)
	go supervisor.Run(ctx)

	coordinator := queue.New(repo, supervisor, transport, nrApp)
	go coordinator.Run(ctx)

	consumer := kafka.NewConsumer(cfg.KafkaHost, cfg.KafkaConsumerGroup, cfg.KafkaTopic, saramaCfg, coordinator)
	go consumer.Consume(ctx)

	go prometheus.ObserveQueueSize(repo, ctx)
	go prometheus.ObserveTotalSize(repo, ctx)
	go prometheus.ObserveBuffers(ctx, coordinator, supervisor, gw)
	go job.StartCleanup(ctx, repo, cfg, job.CleanupInterval)

	log.Logger.WithField("config", cfg).Debug("mail relay started")

	h.StartServer(ctx, cfg, h.Dependencies{
		Coordinator: coordinator,
		Keys:        repo,
		DB:          gw,
		NrApp:       nrApp,
	})
}
