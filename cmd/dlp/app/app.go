package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/planetary-radio/ringocc/internal/dlp"
	"github.com/planetary-radio/ringocc/internal/occult"
	"github.com/planetary-radio/ringocc/internal/profilefile"
	"github.com/planetary-radio/ringocc/internal/storage"
)

// Run loads the observation named by config, splits it by profile
// direction and assembles one diffraction-limited profile per half. A
// failure in one half is logged and does not abort the other.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	occ, err := loadOccultation(&config.Input, logger)
	if err != nil {
		return fmt.Errorf("failed to load observation: %w", err)
	}
	occ = occ.TrimToGeometry()

	ing, egr, err := occult.Split(occ)
	if err != nil {
		return fmt.Errorf("failed to split observation: %w", err)
	}

	assembler := dlp.Assembler{
		DrKm:         config.Profile.DrKm,
		ProfileRange: config.Profile.RangeKm,
		Logger:       logger,
	}
	if config.Profile.ThresholdTau > 0 {
		assembler.Threshold = dlp.StaticThreshold{Tau: config.Profile.ThresholdTau}
	}

	var store storage.Store
	if config.Output.Database != "" {
		s := storage.NewSqliteStore(config.Output.Database)
		defer s.Close()
		store = s
	}

	var failed int
	for _, half := range []struct {
		occ *occult.Occultation
		dir string
	}{
		{ing, "I"},
		{egr, "E"},
	} {
		if half.occ == nil {
			continue
		}
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = processHalf(ctx, half.occ, half.dir, &assembler, config, store, logger); err != nil {
			logger.Error("profile assembly failed",
				slog.String("direction", half.dir),
				slog.String("error", err.Error()))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d profile(s) failed", failed)
	}
	return nil
}

func processHalf(ctx context.Context, occ *occult.Occultation, dir string, assembler *dlp.Assembler, config *Config, store storage.Store, logger *slog.Logger) error {
	p, err := assembler.Build(occ)
	if err != nil {
		return err
	}
	logger.Info("profile assembled",
		slog.String("direction", dir),
		slog.String("samples", humanize.Comma(int64(p.Len()))))

	base := profilefile.FileBase(config.Output.Year, config.Output.DOY,
		config.Output.Band, config.Output.Station, dir, p.DrKm)

	if config.Output.WriteFiles {
		outDir := filepath.Join(config.Output.Directory,
			profilefile.DirName(config.Output.Rev, config.Output.Year, config.Output.DOY,
				config.Output.Band, config.Output.Station, dir))
		if err = os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		tabPath, err := profilefile.Write(outDir, base, p)
		if err != nil {
			return fmt.Errorf("writing profile: %w", err)
		}
		if stat, err := os.Stat(tabPath); err == nil {
			logger.Info("profile written",
				slog.String("path", tabPath),
				slog.String("size", humanize.Bytes(uint64(stat.Size()))))
		}
	}

	if store != nil {
		runID, err := store.CreateRun(ctx, base, dir, p.DrKm, config.Profile)
		if err != nil {
			return fmt.Errorf("registering run: %w", err)
		}
		if err = store.StoreProfile(ctx, runID, p); err != nil {
			return fmt.Errorf("archiving profile: %w", err)
		}
		logger.Info("profile archived",
			slog.Int64("run_id", runID),
			slog.String("samples", humanize.Comma(int64(p.Len()))))
	}
	return nil
}

func loadOccultation(config *InputConfig, logger *slog.Logger) (*occult.Occultation, error) {
	raw, err := occult.LoadRawSignal(config.Signal)
	if err != nil {
		return nil, err
	}
	geo, err := occult.LoadGeometry(config.Geometry, occult.Direction(config.Direction))
	if err != nil {
		return nil, err
	}
	cal, err := occult.LoadCalibration(config.Calibration)
	if err != nil {
		return nil, err
	}

	// The calibrated complex signal rides the raw time base. When no
	// separate export exists, the raw samples are taken as already
	// calibrated upstream.
	if config.CalibratedSignal != "" {
		if cal.IQ, err = occult.LoadCalibratedSignal(config.CalibratedSignal); err != nil {
			return nil, err
		}
	} else {
		cal.IQ = raw.Clone().IQ
	}

	logger.Info("observation loaded",
		slog.String("raw_samples", humanize.Comma(int64(len(raw.TimeSec)))),
		slog.String("geometry_samples", humanize.Comma(int64(len(geo.TimeSec)))),
		slog.String("cal_samples", humanize.Comma(int64(len(cal.TimeSec)))),
		slog.String("direction", config.Direction))

	return &occult.Occultation{Raw: raw, Geo: geo, Cal: cal}, nil
}
