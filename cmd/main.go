package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"moresql-service/configs"
	"moresql-service/internal/procedure"
	"moresql-service/pkg/db"
	"moresql-service/pkg/logger"
	"moresql-service/pkg/redis"
)

// stack holds what serve and call share: the connected pool, the
// optional cache and the service built on them.
type stack struct {
	conf    *configs.Config
	logger  *logrus.Logger
	conn    *db.Db
	cache   *redis.Redisdb
	service *procedure.Service
}

func (rt *stack) Close() {
	if rt.cache != nil {
		_ = rt.cache.Close()
	}
	if rt.conn != nil {
		rt.conn.Close()
	}
}

func newStack(ctx context.Context) (*stack, error) {
	conf, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}

	log, err := logger.New(conf.LogConfig.Level, conf.LogConfig.Format)
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}

	conn, err := db.NewConnection(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}
	rt := &stack{conf: conf, logger: log, conn: conn}

	deps := procedure.ServiceDeps{
		Invoker: procedure.NewInvoker(procedure.NewRepository(conn)),
		Logger:  log,
		Timeout: conf.StatementTimeout,
	}
	if conf.RedisConfig.Addr != "" {
		cache, err := redis.NewRedis(ctx, conf)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.cache = cache
		deps.Cache = cache
	}
	rt.service = procedure.NewService(deps)
	return rt, nil
}

func App(rt *stack) (http.Handler, error) {
	routes, err := procedure.LoadRoutes(rt.conf.RoutesFile)
	if err != nil {
		return nil, err
	}

	router := http.NewServeMux()

	// controllers
	if _, err := procedure.NewController(router, procedure.ControllerDeps{
		Service: rt.service,
		Routes:  routes,
		Logger:  rt.logger,
		Pinger:  rt.conn,
	}); err != nil {
		return nil, err
	}
	router.Handle("GET /metrics", promhttp.Handler())

	rt.logger.WithField("routes", len(routes)).Info("routes loaded")
	return router, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "moresql",
		Short:         "Expose PostgreSQL stored procedures as HTTP endpoints",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newCallCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
