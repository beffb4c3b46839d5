package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/planetary-radio/ringocc/internal/ringfit"
	"github.com/planetary-radio/ringocc/internal/storage"
	"github.com/planetary-radio/ringocc/internal/timesys"
)

// Run fits every configured ring feature. A failure on one feature is
// logged and does not abort the rest of the batch.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if config.Kernel != "" {
		timesys.SetDefaultKernel(config.Kernel)
	}

	var store storage.Store
	if config.Database != "" {
		s := storage.NewSqliteStore(config.Database)
		defer s.Close()
		store = s
	}

	var failed int
	for _, feature := range config.Features {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fitFeature(ctx, feature, store, logger); err != nil {
			logger.Error("feature fit failed",
				slog.String("name", feature.Name),
				slog.String("file", feature.File),
				slog.String("error", err.Error()))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d feature fit(s) failed", failed)
	}
	return nil
}

func fitFeature(ctx context.Context, feature FeatureConfig, store storage.Store, logger *slog.Logger) error {
	opts := ringfit.Options{
		DataLims: feature.DataLimsKm,
		Logger:   logger,
	}
	if feature.Lineshape != "" {
		shape, err := ringfit.ParseLineshape(feature.Lineshape)
		if err != nil {
			return err
		}
		opts.Shape = shape
	}

	res, err := ringfit.FitFeature(feature.File, feature.CentGuessKm, opts)
	if err != nil {
		return err
	}

	logger.Info("feature fitted",
		slog.String("name", feature.Name),
		slog.String("obsid", res.ObsID),
		slog.String("flag", res.Flag.String()),
		slog.Float64("cent_km", res.CentKm),
		slog.Float64("cent_km_err", res.CentKmErr),
		slog.String("cent_oet_utc", res.CentOETUTC))

	if store != nil {
		fitID, err := store.StoreFit(ctx, nil, res)
		if err != nil {
			return fmt.Errorf("archiving fit: %w", err)
		}
		logger.Debug("fit archived", slog.Int64("fit_id", fitID))
	}
	return nil
}
