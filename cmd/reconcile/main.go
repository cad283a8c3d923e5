// Command reconcile replays the movement log against stored positions and
// reports any drift. Exit status 2 means drift was found.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/franchiseops/stockcore/internal/ledger"
	"github.com/franchiseops/stockcore/internal/reporting"
	"github.com/franchiseops/stockcore/pkg/config"
	"github.com/franchiseops/stockcore/pkg/db"
	"github.com/franchiseops/stockcore/pkg/enums"
	pkgerrors "github.com/franchiseops/stockcore/pkg/errors"
	"github.com/franchiseops/stockcore/pkg/logger"
	"github.com/franchiseops/stockcore/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "reconcile"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	kindFlag := flag.String("kind", "", "restrict to one location kind: warehouse|truck")
	locationFlag := flag.String("location", "", "restrict to one location id")
	flag.Parse()

	var kind enums.LocationKind
	if *kindFlag != "" {
		parsed, err := enums.ParseLocationKind(*kindFlag)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		kind = parsed
	}
	locationID := uuid.Nil
	if *locationFlag != "" {
		parsed, err := uuid.Parse(*locationFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -location: %v\n", err)
			os.Exit(1)
		}
		locationID = parsed
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "reconcile",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		fatal(logg, "failed to bootstrap database", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		fatal(logg, "failed to run dev migrations", err)
	}

	repo := ledger.NewRepository(dbClient.DB())
	service, err := reporting.NewService(repo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create reporting service", err)
		os.Exit(1)
	}

	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting reconcile run")

	drifts, err := service.Reconcile(ctx, kind, locationID)
	if err != nil {
		logg.Error(logg.WithFields(ctx, pkgerrors.Dump(err).Fields()), "reconcile run failed", err)
		os.Exit(1)
	}

	if len(drifts) == 0 {
		logg.Info(ctx, "no drift found")
		return
	}

	for _, drift := range drifts {
		fmt.Printf("%s/%s product=%s on_hand=%s movement_sum=%s delta=%s\n",
			drift.Key.LocationKind,
			drift.Key.LocationID,
			drift.Key.ProductID,
			drift.OnHand,
			drift.MovementSum,
			drift.OnHand.Sub(drift.MovementSum),
		)
	}
	logg.Warn(ctx, fmt.Sprintf("%d positions drifted from the movement log", len(drifts)))
	os.Exit(2)
}

// fatal logs the full error dump, Postgres details included, and exits.
func fatal(logg *logger.Logger, msg string, err error) {
	ctx := logg.WithFields(context.Background(), pkgerrors.Dump(err).Fields())
	logg.Error(ctx, msg, err)
	os.Exit(1)
}
