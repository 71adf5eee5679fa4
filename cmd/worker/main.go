package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"

	"github.com/callsense/callsense/internal/pkg/analysis"
	"github.com/callsense/callsense/internal/pkg/config"
	"github.com/callsense/callsense/internal/pkg/inform"
	"github.com/callsense/callsense/internal/pkg/pipeline"
	"github.com/callsense/callsense/internal/pkg/postgres"
	"github.com/callsense/callsense/internal/pkg/storage"
	"github.com/callsense/callsense/internal/pkg/transcription"
	"github.com/callsense/callsense/internal/pkg/worker"
)

func main() {
	cFile := flag.String("c", "", "config yaml file")
	flag.Parse()
	cfg, err := config.Load(*cFile)
	if err != nil {
		log.Fatal().Err(err).Msg("can't load config")
	}
	config.InitLog(cfg)

	printBanner()

	ctx := context.Background()

	dbPool, err := initDBPool(ctx, cfg.GetString("db.url"))
	if err != nil {
		log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		log.Fatal().Err(err).Msg("can't init db")
	}

	gueClient, err := gue.NewClient(pgxv5.NewConnPool(dbPool))
	if err != nil {
		log.Fatal().Err(err).Msg("can't init gue")
	}

	sender, err := postgres.NewSender(dbPool)
	if err != nil {
		log.Fatal().Err(err).Msg("can't init gue sender")
	}

	filer, err := storage.NewFiler(ctx, storage.FilerOptions{Bucket: cfg.GetString("filer.bucket"),
		URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"),
		Key: cfg.GetString("filer.key"), Secure: cfg.GetBool("filer.secure")})
	if err != nil {
		log.Fatal().Err(err).Msg("can't init filer")
	}

	gateway, err := storage.NewGateway(storage.Options{LocalPrefix: cfg.GetString("storage.localPrefix"),
		LocalRoot: cfg.GetString("storage.localRoot"), Loader: filer})
	if err != nil {
		log.Fatal().Err(err).Msg("can't init storage gateway")
	}

	transcriber, err := transcription.NewClient(cfg.GetString("stt.url"), cfg.GetString("stt.key"))
	if err != nil {
		log.Fatal().Err(err).Msg("can't init transcriber")
	}

	analyzer, err := analysis.NewClient(cfg.GetString("llm.url"), cfg.GetString("llm.key"),
		cfg.GetString("llm.model"))
	if err != nil {
		log.Fatal().Err(err).Msg("can't init analyzer")
	}

	pipe, err := pipeline.NewService(pipeline.ServiceData{DB: db, Orgs: db, Fetcher: gateway,
		Transcriber: transcriber, Analyzer: analyzer, Events: pipeline.NewQueueEventSender(sender)})
	if err != nil {
		log.Fatal().Err(err).Msg("can't init pipeline")
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	doneCh, err := worker.StartWorkerService(ctx, &worker.ServiceData{GueClient: gueClient,
		WorkerCount: cfg.GetInt("worker.count"), Pipeline: pipe, MsgSender: sender,
		Timeout: cfg.GetDuration("worker.timeout"), Testing: cfg.GetBool("worker.testing")})
	if err != nil {
		log.Fatal().Err(err).Msg("can't start worker service")
	}

	informDoneCh, err := startInform(ctx, cfg, gueClient, db)
	if err != nil {
		log.Fatal().Err(err).Msg("can't start inform service")
	}

	waitCh := make(chan os.Signal, 2)
	signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-waitCh:
		log.Info().Msg("Got exit signal")
	case <-doneCh:
		log.Info().Msg("Service exit")
	case <-informDoneCh:
		log.Info().Msg("Inform service exit")
	}
	cancelFunc()
	select {
	case <-doneCh:
		log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		log.Warn().Msg("Timeout graceful shutdown")
	}
}

func startInform(ctx context.Context, cfg *viper.Viper, gueClient *gue.Client, db *postgres.DB) (chan struct{}, error) {
	maker, err := inform.NewTemplateMaker(cfg)
	if err != nil {
		return nil, fmt.Errorf("can't init email maker: %w", err)
	}
	var sender inform.Sender
	if cfg.GetString("smtp.fakeUrl") != "" {
		sender, err = inform.NewFakeEmailSender(cfg)
	} else {
		sender, err = inform.NewSMTPSender(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("can't init email sender: %w", err)
	}
	var loc *time.Location
	if tz := cfg.GetString("mail.timezone"); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("can't load timezone: %w", err)
		}
	}
	return inform.StartWorkerService(ctx, &inform.ServiceData{GueClient: gueClient,
		WorkerCount: cfg.GetInt("worker.count"), EmailSender: sender, EmailMaker: maker,
		DB: db, Location: loc})
}

func initDBPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	dbConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, err
	}
	// db may still be starting
	err = backoff.Retry(func() error { return dbPool.Ping(ctx) },
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 10))
	if err != nil {
		dbPool.Close()
		return nil, err
	}
	return dbPool, nil
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
              ____
  _________ _/ / /_______  ____  ________
 / ___/ __ ` + "`" + `/ / / ___/ _ \/ __ \/ ___/ _ \
/ /__/ /_/ / / (__  )  __/ / / (__  )  __/
\___/\__,_/_/_/____/\___/_/ /_/____/\___/  v: %s

   worker
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version))
}
