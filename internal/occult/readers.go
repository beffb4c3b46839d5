package occult

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// The loaders below read the comma-delimited exports of the external
// collaborators (raw signal reader, geometry engine, calibration
// engine). Blank lines and lines starting with '#' are skipped.

// LoadRawSignal reads a raw signal export with columns
// (time_spm, I, Q).
func LoadRawSignal(path string) (*RawSignalSeries, error) {
	rows, err := loadColumns(path, 3)
	if err != nil {
		return nil, fmt.Errorf("loading raw signal: %w", err)
	}
	s := &RawSignalSeries{
		TimeSec: rows[0],
		IQ:      make([]complex128, len(rows[0])),
	}
	for i := range s.IQ {
		s.IQ[i] = complex(rows[1][i], rows[2][i])
	}
	return s, nil
}

// LoadGeometry reads a geometry export with columns
// (time_spm, rho_km, rho_dot_kms, B_deg, D_km, F_km, ret_spm, set_spm,
// phi_ora_deg, phi_rl_deg). The profile direction is not part of the
// table and must be supplied by the caller.
func LoadGeometry(path string, dir Direction) (*GeometrySeries, error) {
	rows, err := loadColumns(path, 10)
	if err != nil {
		return nil, fmt.Errorf("loading geometry: %w", err)
	}
	return &GeometrySeries{
		TimeSec:   rows[0],
		RhoKm:     rows[1],
		RhoDotKms: rows[2],
		BDeg:      rows[3],
		DKm:       rows[4],
		FKm:       rows[5],
		RetSec:    rows[6],
		SetSec:    rows[7],
		PhiOraDeg: rows[8],
		PhiRlDeg:  rows[9],
		Direction: dir,
	}, nil
}

// LoadCalibration reads a calibration export with columns
// (time_spm, f_sky_hz, p_free). The calibrated complex signal rides the
// raw time base and is attached separately, either from its own export
// via LoadCalibratedSignal or by adopting the raw signal when the
// upstream pipeline already calibrated it in place.
func LoadCalibration(path string) (*CalibrationSeries, error) {
	rows, err := loadColumns(path, 3)
	if err != nil {
		return nil, fmt.Errorf("loading calibration: %w", err)
	}
	return &CalibrationSeries{
		TimeSec:        rows[0],
		SkyFreqHz:      rows[1],
		FreeSpacePower: rows[2],
	}, nil
}

// LoadCalibratedSignal reads a calibrated signal export with columns
// (time_spm, I, Q) and returns the complex samples. The time column is
// ignored: the samples are defined to be aligned with the raw series.
func LoadCalibratedSignal(path string) ([]complex128, error) {
	rows, err := loadColumns(path, 3)
	if err != nil {
		return nil, fmt.Errorf("loading calibrated signal: %w", err)
	}
	iq := make([]complex128, len(rows[0]))
	for i := range iq {
		iq[i] = complex(rows[1][i], rows[2][i])
	}
	return iq, nil
}

func loadColumns(path string, want int) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cols := make([][]float64, want)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, ",")
		if len(fields) < want {
			return nil, fmt.Errorf("%s:%d: %d columns, want %d", path, line, len(fields), want)
		}
		for c := 0; c < want; c++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(fields[c]), 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: column %d: %w", path, line, c, err)
			}
			cols[c] = append(cols[c], v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(cols[0]) == 0 {
		return nil, fmt.Errorf("%s: no data rows", path)
	}
	return cols, nil
}
