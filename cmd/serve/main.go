// Package classification Cluster Builder Service.
//
// Launches clusters on OpenStack from a catalogue of cluster types and bills them through the
// middleware.
//
// Terms Of Service:
//
// there are no TOS at this moment, use at your own risk we take no responsibility
//
//    Version: 0.1.0
//    Contact: <info@openflighthpc.org> https://github.com/openflighthpc/cluster-builder
//
//    Consumes:
//      - application/json
//
//    Produces:
//      - application/json
//
//    SecurityDefinitions:
//      oauth2:
//        type: apiKey
//        in: header
//        name: Authorization
// swagger:meta
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/openflighthpc/cluster-builder/internal/handler"
	"github.com/openflighthpc/cluster-builder/internal/log"
	"github.com/openflighthpc/cluster-builder/internal/middleware"
	"github.com/openflighthpc/cluster-builder/internal/server"
	"github.com/openflighthpc/cluster-builder/pkg/billing"
	"github.com/openflighthpc/cluster-builder/pkg/cloudasset"
	"github.com/openflighthpc/cluster-builder/pkg/cluster"
	"github.com/openflighthpc/cluster-builder/pkg/clustertype"
	"github.com/openflighthpc/cluster-builder/pkg/config"
	"github.com/openflighthpc/cluster-builder/pkg/health"
	"github.com/openflighthpc/cluster-builder/pkg/openstack"
)

const (
	billingTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.New()
	if err != nil {
		return err
	}

	logger := log.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := handler.RegisterValidation(); err != nil {
		return err
	}
	if err := openstack.RegisterValidation(); err != nil {
		return err
	}

	fetcher := clustertype.NewHTTPFetcher(logger, cfg.RemoteFetchTimeout)
	clusterTypeRepository := clustertype.NewRepository(logger, afero.NewOsFs(), cfg.ClusterTypesDir, fetcher)

	connector := openstack.NewConnector(logger)
	billingClient := billing.NewClient(logger, []byte(cfg.JWTSecret), billingTimeout)
	clusterService := cluster.NewService(logger, clusterTypeRepository, cluster.OpenStack(connector), billingClient)
	assetService := cloudasset.NewService(logger, cloudasset.OpenStack(connector))

	authentication := middleware.NewAuthentication(logger, []byte(cfg.JWTSecret))

	r := server.GetEngine(logger, cfg.CORSAllowedOrigins)
	router := r.Group(cfg.BasePath)
	server.Redoc(router, cfg.BasePath)
	health.Routes(router)
	clustertype.Routes(router, clustertype.NewHandler(clusterTypeRepository))
	cluster.Routes(router, authentication, cluster.NewHandler(clusterService))
	cloudasset.Routes(router, cloudasset.NewHandler(assetService))

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           r.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Listening", "address", srv.Addr, "basePath", cfg.BasePath, "clusterTypesDir", cfg.ClusterTypesDir)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
