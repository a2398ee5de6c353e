package main

import (
	"flag"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/config"
	"github.com/tumbleweedd/fulfillment_pipeline/migrations"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/databases/postgres"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/logger"
)

func main() {
	var dsn string

	flag.StringVar(&dsn, "dsn", "", "postgres connection string")

	cfg := config.InitConfig()

	log := logger.NewSlogLogger(logger.SlogEnvironment(cfg.Env))

	if dsn == "" {
		dsn = cfg.Postgres.ConnectionString()
	}

	if err := postgres.ValidateDSN(dsn); err != nil {
		panic(err)
	}

	if err := postgres.Migrate(dsn, migrations.FS); err != nil {
		panic(err)
	}

	log.Info("migrations applied")
}
