package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/rs/zerolog/log"

	"github.com/callsense/callsense/internal/pkg/config"
	"github.com/callsense/callsense/internal/pkg/postgres"
	"github.com/callsense/callsense/internal/pkg/sweep"
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

	sender, err := postgres.NewSender(dbPool)
	if err != nil {
		log.Fatal().Err(err).Msg("can't init gue sender")
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	doneCh, err := sweep.StartService(ctx, &sweep.ServiceData{DB: db, MsgSender: sender,
		Interval: cfg.GetDuration("sweep.interval"), MaxAge: cfg.GetDuration("sweep.maxAge")})
	if err != nil {
		log.Fatal().Err(err).Msg("can't start sweep service")
	}

	waitCh := make(chan os.Signal, 2)
	signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-waitCh:
		log.Info().Msg("Got exit signal")
	case <-doneCh:
		log.Info().Msg("Service exit")
	}
	cancelFunc()
	select {
	case <-doneCh:
		log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		log.Warn().Msg("Timeout graceful shutdown")
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

   sweep
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version))
}
