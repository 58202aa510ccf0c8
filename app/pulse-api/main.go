package main

import (
	"fmt"
	"github.com/ardanlabs/conf"
	"github.com/burakkagann/berlin-pulse/app/pulse-api/pulseapi"
	"github.com/burakkagann/berlin-pulse/foundation/database"
	logger "log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "PULSE_API : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	var cfg struct {
		conf.Version
		Args conf.Args
		DB   struct {
			User         string `conf:"default:postgres"`
			Password     string `conf:"default:postgres,noprint"`
			Host         string `conf:"default:0.0.0.0"`
			Name         string `conf:"default:berlin_pulse"`
			DisableTLS   bool   `conf:"default:true"`
			MaxOpenConns int    `conf:"default:10"`
			MaxIdleConns int    `conf:"default:2"`
		}
		Web struct {
			Port              int `conf:"default:8080"`
			StaleAfterSeconds int `conf:"default:600"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Serve collected Berlin transit data and collection health"
	const prefix = "PULSEAPI"
	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	log.Println("main: Initializing database support")

	db, err := database.Open(database.Config{
		User:         cfg.DB.User,
		Password:     cfg.DB.Password,
		Host:         cfg.DB.Host,
		Name:         cfg.DB.Name,
		DisableTLS:   cfg.DB.DisableTLS,
		MaxOpenConns: cfg.DB.MaxOpenConns,
		MaxIdleConns: cfg.DB.MaxIdleConns,
	})
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	defer func() {
		log.Printf("main: Database Stopping : %s", cfg.DB.Host)
		err = db.Close()
		if err != nil {
			log.Printf("main: error closing database: %v", err)
		}
	}()

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	pulseapi.RunWebService(log, db, cfg.Web.Port,
		time.Duration(cfg.Web.StaleAfterSeconds)*time.Second, shutdown)
	return nil
}
