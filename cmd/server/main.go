package main

import (
	"context"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solarium-dev/solarium/modules"
	"github.com/solarium-dev/solarium/pkg/application"
	"github.com/solarium-dev/solarium/pkg/configuration"
	"github.com/solarium-dev/solarium/pkg/eventbus"
	"github.com/solarium-dev/solarium/pkg/metrics"
	"github.com/solarium-dev/solarium/pkg/middleware"
	"github.com/solarium-dev/solarium/pkg/server"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.ConnectionString())
	if err != nil {
		panic(err)
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		Logger:   logger,
		EventBus: eventbus.NewEventPublisher(logger),
	})
	if err := modules.Load(app); err != nil {
		panic(err)
	}
	if err := app.Migrations().Run(context.Background()); err != nil {
		panic(err)
	}

	app.RegisterMiddleware(
		middleware.ProvideDB(pool),
		middleware.ProvideLogger(logger),
		middleware.RequestParams(),
		middleware.LogRequests(),
	)
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	srv := &server.HTTPServer{
		Controllers: app.Controllers(),
		Middlewares: app.Middleware(),
	}
	logger.Infof("listening on %s", conf.SocketAddress)
	if err := srv.Start(conf.SocketAddress); err != nil {
		panic(err)
	}
}
