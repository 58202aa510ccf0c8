package main

import (
	"fmt"
	"github.com/ardanlabs/conf"
	"github.com/burakkagann/berlin-pulse/app/pulse-collector/collector"
	"github.com/burakkagann/berlin-pulse/foundation/database"
	"github.com/nats-io/nats.go"
	"github.com/robfig/cron/v3"
	logger "log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "PULSE_COLLECTOR : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
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
		API struct {
			BaseURL               string `conf:"default:https://v6.bvg.transport.rest"`
			RequestTimeoutSeconds int    `conf:"default:30"`
			RetryAttempts         int    `conf:"default:3"`
			RetryDelaySeconds     int    `conf:"default:5"`
		}
		Collect struct {
			VehicleIntervalSeconds   int    `conf:"default:30"`
			DepartureIntervalSeconds int    `conf:"default:60"`
			MaxResultsPerSector      int    `conf:"default:100"`
			DepartureDurationMinutes int    `conf:"default:60"`
			MaxDeparturesPerStop     int    `conf:"default:100"`
			RetentionDays            int    `conf:"default:7"`
			CleanupSeconds           int    `conf:"default:86400"`
			RouteRefreshSeconds      int    `conf:"default:3600"`
			HealthCheckSeconds       int    `conf:"default:300"`
			StaleAfterSeconds        int    `conf:"default:600"`
			RoutesFile               string `conf:"help:optional yaml file with target routes for geometry discovery"`
		}
		NATS struct {
			URL string `conf:"help:optional nats server url for the live record feed"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Collect Berlin transit real-time data into database"
	const prefix = "COLLECTOR"
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

	// =========================================================================
	// App Starting

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	// =========================================================================
	// Start Database

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

	// =========================================================================
	// Optional NATS live feed

	var natsConn *nats.Conn
	if cfg.NATS.URL != "" {
		log.Printf("main: Connecting to NATS at %s", cfg.NATS.URL)
		natsConn, err = nats.Connect(cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("connecting to nats: %w", err)
		}
		defer natsConn.Close()
	}

	routes, err := collector.LoadTargetRoutes(cfg.Collect.RoutesFile)
	if err != nil {
		return fmt.Errorf("loading target routes: %w", err)
	}

	collectorCfg := collector.Config{
		APIBaseURL:               cfg.API.BaseURL,
		RequestTimeoutSeconds:    cfg.API.RequestTimeoutSeconds,
		RetryAttempts:            cfg.API.RetryAttempts,
		RetryDelaySeconds:        cfg.API.RetryDelaySeconds,
		VehicleIntervalSeconds:   cfg.Collect.VehicleIntervalSeconds,
		DepartureIntervalSeconds: cfg.Collect.DepartureIntervalSeconds,
		MaxResultsPerSector:      cfg.Collect.MaxResultsPerSector,
		DepartureDurationMinutes: cfg.Collect.DepartureDurationMinutes,
		MaxDeparturesPerStop:     cfg.Collect.MaxDeparturesPerStop,
	}

	// =========================================================================
	// Initial route discovery, then continuous collection

	log.Println("main: Running initial route geometry discovery")
	discovered := collector.DiscoverRouteGeometries(log, db, natsConn, collectorCfg, routes)
	log.Printf("main: Initial route discovery completed: %d routes discovered", discovered)

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// loopShutdown is closed to stop every collection loop at once
	loopShutdown := make(chan struct{})

	maintenance := cron.New()
	_, err = maintenance.AddFunc(fmt.Sprintf("@every %ds", cfg.Collect.CleanupSeconds), func() {
		collector.CleanupOldData(log, db, cfg.Collect.RetentionDays)
	})
	if err != nil {
		return fmt.Errorf("scheduling cleanup job: %w", err)
	}
	_, err = maintenance.AddFunc(fmt.Sprintf("@every %ds", cfg.Collect.RouteRefreshSeconds), func() {
		collector.DiscoverRouteGeometries(log, db, natsConn, collectorCfg, routes)
	})
	if err != nil {
		return fmt.Errorf("scheduling route refresh job: %w", err)
	}
	staleAfter := time.Duration(cfg.Collect.StaleAfterSeconds) * time.Second
	_, err = maintenance.AddFunc(fmt.Sprintf("@every %ds", cfg.Collect.HealthCheckSeconds), func() {
		collector.CheckCollectionHealth(log, db, staleAfter)
	})
	if err != nil {
		return fmt.Errorf("scheduling health check job: %w", err)
	}
	maintenance.Start()
	defer maintenance.Stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		collector.RunVehicleCollectionLoop(log, db, natsConn, collectorCfg, loopShutdown)
	}()
	go func() {
		defer wg.Done()
		collector.RunDepartureCollectionLoop(log, db, natsConn, collectorCfg, loopShutdown)
	}()

	log.Println("main: All collection processes started")

	<-shutdown
	log.Println("main: Shutdown signal received")
	close(loopShutdown)
	wg.Wait()

	return nil
}
