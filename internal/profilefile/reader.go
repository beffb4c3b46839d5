package profilefile

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Columns is the ring-feature fitter's view of a profile table: the six
// contract columns, in row order.
type Columns struct {
	RhoKm        []float64 // column 0
	LongitudeDeg []float64 // column 3
	Tau          []float64 // column 6
	PhaseRad     []float64 // column 7
	OETSec       []float64 // column 9
	RETSec       []float64 // column 10
}

// Read loads the contract columns from a comma-delimited profile table.
func Read(path string) (*Columns, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("profilefile: %w", err)
	}
	defer f.Close()

	var cols Columns
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, ",")
		if len(fields) < 11 {
			return nil, fmt.Errorf("profilefile: %s:%d: %d columns, want at least 11", path, line, len(fields))
		}
		vals := make([]float64, 6)
		for i, idx := range [6]int{0, 3, 6, 7, 9, 10} {
			v, err := strconv.ParseFloat(strings.TrimSpace(fields[idx]), 64)
			if err != nil {
				return nil, fmt.Errorf("profilefile: %s:%d: column %d: %w", path, line, idx, err)
			}
			vals[i] = v
		}
		cols.RhoKm = append(cols.RhoKm, vals[0])
		cols.LongitudeDeg = append(cols.LongitudeDeg, vals[1])
		cols.Tau = append(cols.Tau, vals[2])
		cols.PhaseRad = append(cols.PhaseRad, vals[3])
		cols.OETSec = append(cols.OETSec, vals[4])
		cols.RETSec = append(cols.RETSec, vals[5])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("profilefile: %s: %w", path, err)
	}
	return &cols, nil
}
