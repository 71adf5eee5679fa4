package main

import (
	"context"
	"flag"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/rs/zerolog/log"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"

	"github.com/callsense/callsense/internal/pkg/analysis"
	"github.com/callsense/callsense/internal/pkg/config"
	"github.com/callsense/callsense/internal/pkg/pipeline"
	"github.com/callsense/callsense/internal/pkg/postgres"
	"github.com/callsense/callsense/internal/pkg/storage"
	"github.com/callsense/callsense/internal/pkg/transcription"
	"github.com/callsense/callsense/internal/pkg/webservice"
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

	sender, err := postgres.NewSender(dbPool)
	if err != nil {
		log.Fatal().Err(err).Msg("can't init gue sender")
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

	gueClient, err := gue.NewClient(pgxv5.NewConnPool(dbPool))
	if err != nil {
		log.Fatal().Err(err).Msg("can't init gue")
	}

	wsHandler := webservice.NewWSConnKeeper()

	ctxH, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	_, err = webservice.StartStatusHandler(ctxH, &webservice.HandlerData{GueClient: gueClient,
		WorkerCount: cfg.GetInt("worker.count"), DB: db, WSHandler: wsHandler})
	if err != nil {
		log.Fatal().Err(err).Msg("can't start status handler")
	}

	data := &webservice.Data{Port: cfg.GetInt("port"), Saver: filer, DB: db, Orgs: db,
		MsgSender: sender, Pipeline: pipe, Reporter: analyzer, WSHandler: wsHandler,
		JWTSecret: cfg.GetString("auth.secret")}
	if err := webservice.StartWebServer(data); err != nil {
		log.Fatal().Err(err).Msg("can't start web server")
	}
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

   api
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version))
}
