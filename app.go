package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/kcz17/regionstats/config"
	"github.com/kcz17/regionstats/dataset"
	"github.com/kcz17/regionstats/logging"
	"github.com/kcz17/regionstats/querylog"
	"github.com/kcz17/regionstats/responsetimecollector"
	"github.com/kcz17/regionstats/serving"
	"github.com/kcz17/regionstats/telemetry"
)

// newLoader builds the dataset source selected by cfg. The returned closer
// releases any connection held by the source.
func newLoader(cfg *config.Config) (dataset.Loader, io.Closer, error) {
	switch *cfg.Dataset.Source {
	case "file":
		return dataset.NewFileLoader(cfg.Dataset.File.Path), nil, nil
	case "redis":
		loader := dataset.NewRedisLoader(dataset.RedisOptions{
			Addr:        cfg.Dataset.Redis.Addr,
			Password:    cfg.Dataset.Redis.Password,
			DB:          cfg.Dataset.Redis.DB,
			Key:         cfg.Dataset.Redis.Key,
			DialTimeout: *cfg.Dataset.LoadTimeout,
		})
		return loader, loader, nil
	case "sqlite":
		loader, err := dataset.NewSQLiteLoader(cfg.Dataset.SQLite.Path, cfg.Dataset.SQLite.Table)
		if err != nil {
			return nil, nil, err
		}
		return loader, loader, nil
	default:
		return nil, nil, fmt.Errorf("expected dataset source one of {file|redis|sqlite}; got %s", *cfg.Dataset.Source)
	}
}

// instrumentLoader reports every successful load to the logger and to
// Prometheus, then caches the dataset if cfg asks for it.
func instrumentLoader(cfg *config.Config, loader dataset.Loader, logger logging.Logger) dataset.Loader {
	loader = dataset.Instrument(loader, func(records int, d time.Duration) {
		logger.LogDatasetLoad(records, d.Seconds())
		telemetry.DatasetRecords.Set(float64(records))
		telemetry.DatasetLoadDuration.Observe(d.Seconds())
	})
	if *cfg.Dataset.Cache {
		loader = dataset.NewCachedLoader(loader)
	}
	return loader
}

// service is a Server together with the resources it does not own.
type service struct {
	server       *serving.Server
	loaderCloser io.Closer
}

func (s *service) Shutdown() error {
	err := s.server.Shutdown()
	if s.loaderCloser != nil {
		if closeErr := s.loaderCloser.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

func newService(cfg *config.Config) (svc *service, err error) {
	logger, err := logging.New(*cfg.Logging.Driver, logging.InfluxDBOptions{
		Host:   cfg.Logging.InfluxDB.Host,
		Token:  cfg.Logging.InfluxDB.Token,
		Org:    cfg.Logging.InfluxDB.Org,
		Bucket: cfg.Logging.InfluxDB.Bucket,
	})
	if err != nil {
		return nil, err
	}

	var queryLogOptions querylog.Options
	queryLogOptions.InfluxDB.Host = cfg.QueryLog.InfluxDB.Host
	queryLogOptions.InfluxDB.Token = cfg.QueryLog.InfluxDB.Token
	queryLogOptions.InfluxDB.Org = cfg.QueryLog.InfluxDB.Org
	queryLogOptions.InfluxDB.Bucket = cfg.QueryLog.InfluxDB.Bucket
	queryLogOptions.Redis.Addr = cfg.QueryLog.Redis.Addr
	queryLogOptions.Redis.Password = cfg.QueryLog.Redis.Password
	queryLogOptions.Redis.DB = cfg.QueryLog.Redis.DB
	queryLogOptions.Redis.Queue = cfg.QueryLog.Redis.Queue
	queryLog, err := querylog.New(*cfg.QueryLog.Driver, queryLogOptions)
	if err != nil {
		logger.Close()
		return nil, err
	}

	loader, loaderCloser, err := newLoader(cfg)
	if err != nil {
		queryLog.Close()
		logger.Close()
		return nil, err
	}
	// Until the server exists, this function owns the logger, query log and
	// loader connection.
	defer func() {
		if err != nil {
			queryLog.Close()
			logger.Close()
			if loaderCloser != nil {
				loaderCloser.Close()
			}
		}
	}()

	collector, err := responsetimecollector.New(*cfg.Monitoring.Collector, *cfg.Monitoring.Window)
	if err != nil {
		return nil, err
	}
	monitor, err := serving.NewMonitorLoop(collector, logger, *cfg.Monitoring.Interval)
	if err != nil {
		return nil, err
	}

	shape, err := serving.ParseResponseShape(*cfg.Server.ResponseShape)
	if err != nil {
		return nil, err
	}

	prometheusPath := ""
	if *cfg.Monitoring.Prometheus.Enabled {
		prometheusPath = *cfg.Monitoring.Prometheus.Path
	}

	server, err := serving.NewServer(&serving.ServerOptions{
		Loader:      instrumentLoader(cfg, loader, logger),
		LoadTimeout: *cfg.Dataset.LoadTimeout,
		CORS: &serving.CORSPolicy{
			AllowOrigins:  cfg.CORS.AllowOrigins,
			AllowMethods:  cfg.CORS.AllowMethods,
			AllowHeaders:  cfg.CORS.AllowHeaders,
			ExposeHeaders: cfg.CORS.ExposeHeaders,
			MaxAge:        *cfg.CORS.MaxAge,
		},
		ResponseShape:      shape,
		Monitor:            monitor,
		Logger:             logger,
		QueryLog:           queryLog,
		PrometheusPath:     prometheusPath,
		ReadTimeout:        *cfg.Server.ReadTimeout,
		WriteTimeout:       *cfg.Server.WriteTimeout,
		MaxRequestBodySize: *cfg.Server.MaxRequestBodySize,
	})
	if err != nil {
		return nil, err
	}

	if *cfg.Dataset.Cache {
		ctx, cancel := context.WithTimeout(context.Background(), *cfg.Dataset.LoadTimeout)
		defer cancel()
		if err = server.Preload(ctx); err != nil {
			return nil, err
		}
		log.Println("dataset preloaded")
	}

	return &service{server: server, loaderCloser: loaderCloser}, nil
}
