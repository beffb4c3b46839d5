package profilefile

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/planetary-radio/ringocc/internal/dlp"
)

// Column layout of the .TAB table. Positions 0 (radius), 3 (ring
// longitude), 6 (optical depth), 7 (phase), 9 (observed event time) and
// 10 (ring event time) are the interoperability contract and must never
// move.
//
//	 0  ring-intercept radius, km
//	 1  radius correction due to improved pole, km
//	 2  radius correction due to timing offset, km
//	 3  ring longitude, deg
//	 4  observed ring azimuth, deg
//	 5  normalized power
//	 6  optical depth
//	 7  phase, rad
//	 8  threshold optical depth
//	 9  observed event time, s past midnight
//	10  ring event time, s past midnight
//	11  spacecraft event time, s past midnight
//	12  ring opening angle, deg

// Write stores a profile as base.TAB plus base.LBL under dir, creating
// the directory if needed. It returns the path of the written table.
func Write(dir, base string, p *dlp.Profile) (tabPath string, err error) {
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("profilefile: creating %s: %w", dir, err)
	}
	tabPath = filepath.Join(dir, base+".TAB")
	if err = writeTable(tabPath, p); err != nil {
		return "", err
	}
	if err = writeLabel(filepath.Join(dir, base+".LBL"), base, p); err != nil {
		return "", err
	}
	return tabPath, nil
}

func writeTable(path string, p *dlp.Profile) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("profilefile: creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	for i := 0; i < p.Len(); i++ {
		_, err = fmt.Fprintf(w, "%14.6f,%10.6f,%10.6f,%12.6f,%12.6f,%14.6E,%14.6E,%10.6f,%14.6E,%14.4f,%14.4f,%14.4f,%10.6f\n",
			p.RhoKm[i],
			p.RhoCorrPoleKm[i],
			p.RhoCorrTimingKm[i],
			degrees(p.PhiRlRad[i]),
			degrees(p.PhiOraRad[i]),
			p.PowerNorm[i],
			p.Tau[i],
			p.PhaseRad[i],
			p.TauThreshold[i],
			p.OETSec[i],
			p.RETSec[i],
			p.SETSec[i],
			degrees(p.BRad[i]),
		)
		if err != nil {
			return fmt.Errorf("profilefile: writing %s: %w", path, err)
		}
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("profilefile: writing %s: %w", path, err)
	}
	return nil
}

func writeLabel(path, base string, p *dlp.Profile) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("profilefile: creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	put := func(k, v string) {
		if err == nil {
			_, err = fmt.Fprintf(w, "%-32s = %s\n", k, v)
		}
	}
	put("PDS_VERSION_ID", "PDS3")
	put("PRODUCT_ID", base)
	put("PRODUCT_TYPE", "DIFFRACTION_LIMITED_PROFILE")
	put("PROFILE_DIRECTION", string(p.Direction))
	put("RADIAL_SAMPLING_INTERVAL", fmt.Sprintf("%g <km>", p.DrKm))
	put("ROWS", fmt.Sprintf("%d", p.Len()))
	if p.Len() > 0 {
		put("MINIMUM_RING_RADIUS", fmt.Sprintf("%.6f <km>", p.RhoKm[0]))
		put("MAXIMUM_RING_RADIUS", fmt.Sprintf("%.6f <km>", p.RhoKm[p.Len()-1]))
	}
	if h := p.History; h != nil {
		put("PRODUCER_ID", h.User)
		put("PRODUCER_HOST", h.Host)
		put("PRODUCT_CREATION_TIME", h.RunDate)
		keys := make([]string, 0, len(h.Params))
		for k := range h.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			put("PARAMETER_"+k, h.Params[k])
		}
	}
	if err != nil {
		return fmt.Errorf("profilefile: writing %s: %w", path, err)
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("profilefile: writing %s: %w", path, err)
	}
	return nil
}

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
