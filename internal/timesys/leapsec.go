// Package timesys converts observation times expressed as year,
// day-of-year and seconds past midnight into calendar UTC strings,
// using the leap-second table of a NAIF text kernel. The kernel is a
// process-wide resource: it is loaded once and shared.
package timesys

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var monthNames = [12]string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

// Kernel is a parsed leap-second kernel: the dates at which a positive
// leap second was inserted (the table lists the UTC midnights where
// TAI-UTC increments).
type Kernel struct {
	insertions []time.Time
}

// Load parses the DELTET/DELTA_AT table of a NAIF leap-second text
// kernel.
func Load(path string) (*Kernel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("timesys: %w", err)
	}
	defer f.Close()

	var k Kernel
	sc := bufio.NewScanner(f)
	inTable := false
	for sc.Scan() {
		line := sc.Text()
		if !inTable {
			if strings.Contains(line, "DELTET/DELTA_AT") {
				inTable = true
			} else {
				continue
			}
		}
		for _, field := range strings.Fields(line) {
			if !strings.HasPrefix(field, "@") {
				continue
			}
			when, err := parseKernelDate(strings.TrimPrefix(field, "@"))
			if err != nil {
				return nil, fmt.Errorf("timesys: %s: %w", path, err)
			}
			k.insertions = append(k.insertions, when)
		}
		if inTable && strings.Contains(line, ")") {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("timesys: %s: %w", path, err)
	}
	if len(k.insertions) == 0 {
		return nil, fmt.Errorf("timesys: %s: no DELTET/DELTA_AT entries", path)
	}
	return &k, nil
}

// parseKernelDate parses the @YYYY-MON-D form used in LSK kernels.
func parseKernelDate(s string) (time.Time, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("malformed kernel date %q", s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed kernel date %q", s)
	}
	month := 0
	for i, m := range monthNames {
		if strings.EqualFold(parts[1], m) {
			month = i + 1
			break
		}
	}
	if month == 0 {
		return time.Time{}, fmt.Errorf("malformed kernel date %q", s)
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed kernel date %q", s)
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// dayLengthSec returns the number of UTC seconds in the given day:
// 86401 when the table inserts a leap second at the following midnight.
func (k *Kernel) dayLengthSec(year, doy int) float64 {
	next := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, doy)
	for _, when := range k.insertions {
		if when.Equal(next) {
			return 86401
		}
	}
	return 86400
}

// UTC converts (year, day-of-year, seconds past midnight) to a calendar
// UTC string of the form "2005 MAY 03 01:01:01.500000". Times past the
// end of the day roll into the following day, accounting for inserted
// leap seconds; a time inside an inserted leap second renders as
// second 60.
func (k *Kernel) UTC(year, doy int, spm float64) (string, error) {
	if spm < 0 || math.IsNaN(spm) {
		return "", fmt.Errorf("timesys: negative seconds past midnight %g", spm)
	}
	for {
		dayLen := k.dayLengthSec(year, doy)
		if spm < dayLen {
			break
		}
		spm -= dayLen
		doy++
		if doy > daysInYear(year) {
			doy = 1
			year++
		}
	}

	var hh, mm int
	var sec float64
	if spm >= 86400 {
		// Inside an inserted leap second.
		hh, mm, sec = 23, 59, spm-86400+60
	} else {
		hh = int(spm / 3600)
		mm = int(math.Mod(spm, 3600) / 60)
		sec = math.Mod(spm, 60)
	}

	date := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, doy-1)
	return fmt.Sprintf("%04d %s %02d %02d:%02d:%09.6f",
		date.Year(), monthNames[date.Month()-1], date.Day(), hh, mm, sec), nil
}

func daysInYear(year int) int {
	if time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC).YearDay() == 366 {
		return 366
	}
	return 365
}

var (
	defaultMu     sync.Mutex
	defaultPath   = "naif0012.tls"
	defaultOnce   sync.Once
	defaultKernel *Kernel
	defaultErr    error
)

// SetDefaultKernel sets the kernel path used by Default. It must be
// called before the first Default call to take effect.
func SetDefaultKernel(path string) {
	defaultMu.Lock()
	defaultPath = path
	defaultMu.Unlock()
}

// Default returns the process-wide kernel, loading it on first use.
// Repeated loads of the same table would be safe but wasteful, so the
// load happens exactly once.
func Default() (*Kernel, error) {
	defaultOnce.Do(func() {
		defaultMu.Lock()
		path := defaultPath
		defaultMu.Unlock()
		defaultKernel, defaultErr = Load(path)
	})
	return defaultKernel, defaultErr
}
