// Package profilefile reads and writes diffraction-limited profiles in
// the archival two-artifact form: a comma-delimited .TAB data table and
// a .LBL companion metadata file, named and stored following the PDS
// hierarchy. The column positions of the table are a fixed contract
// consumed by the ring-feature fitter and by the existing corpus of
// profile files.
package profilefile

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Metadata identifies an occultation profile from its PDS-style path.
type Metadata struct {
	Rev       string // Three-digit revolution number, e.g. "007"
	Direction string // Direction token from the directory name, "I", "E", "CI" or "CE"
	Year      int
	DOY       int    // Day of year
	Band      string // Single-character radio band, e.g. "X"
	Station   string // Receiving station digits, e.g. "43"
	Source    string // "TC" or "EM", inferred from file-name length
	ResM      string // Reconstruction resolution token in meters
	ObsID     string // 22-character observation identifier
}

// ParsePath extracts profile metadata from a path following the PDS
// naming convention, e.g.
//
//	.../Rev007E_RSS_2005_123_X43_E/RSS_2005_123_X43_E_DLP_0250M.TAB
//
// The directory component encodes revolution, direction and
// year/day-of-year/band+station at fixed offsets; the file name's 7th
// underscore-delimited token carries the resolution.
func ParsePath(path string) (*Metadata, error) {
	dir := filepath.Base(filepath.Dir(path))
	dparts := strings.Split(dir, "_")
	if len(dparts) < 5 || len(dparts[0]) < 7 || !strings.HasPrefix(dparts[0], "Rev") {
		return nil, fmt.Errorf("profilefile: directory %q does not follow the naming convention", dir)
	}
	rev := dparts[0][3:6]
	profdir := dparts[0][6:]

	year, err := strconv.Atoi(dparts[2])
	if err != nil {
		return nil, fmt.Errorf("profilefile: year in %q: %w", dir, err)
	}
	doy, err := strconv.Atoi(dparts[3])
	if err != nil {
		return nil, fmt.Errorf("profilefile: day of year in %q: %w", dir, err)
	}
	bandStation := dparts[4]
	if len(bandStation) < 2 {
		return nil, fmt.Errorf("profilefile: band/station token %q too short", bandStation)
	}

	name := filepath.Base(path)
	fparts := strings.Split(strings.TrimSuffix(name, filepath.Ext(name)), "_")
	if len(fparts) < 7 {
		return nil, fmt.Errorf("profilefile: file name %q does not follow the naming convention", name)
	}
	res := resolutionToken(fparts[6])

	// TC files carry a date+serial suffix, which makes the name longer.
	src := "EM"
	if len(name) >= 40 {
		src = "TC"
	}

	m := Metadata{
		Rev:       rev,
		Direction: profdir,
		Year:      year,
		DOY:       doy,
		Band:      bandStation[:1],
		Station:   bandStation[1:],
		Source:    src,
		ResM:      res,
	}
	m.ObsID = "RSS_" + rev + profdir[len(profdir)-1:] + "_" + bandStation + "_" + src + "_" + res + "m"
	return &m, nil
}

// resolutionToken normalises the resolution token to meters: the unit
// suffix is dropped and "KM"-style tokens are expanded, so "0250M"
// yields "0250" and "01KM" yields "01000".
func resolutionToken(tok string) string {
	switch {
	case strings.HasSuffix(tok, "KM"):
		res := strings.TrimSuffix(tok, "KM")
		if len(res) >= 2 {
			res = res[:2]
		}
		return res + "000"
	case strings.HasSuffix(tok, "M"):
		return strings.TrimSuffix(tok, "M")
	}
	return tok
}

// DirName composes the PDS-convention directory component, e.g.
// Rev007E_RSS_2005_123_X43_E.
func DirName(rev string, year, doy int, band, station, direction string) string {
	return fmt.Sprintf("Rev%s%s_RSS_%04d_%03d_%s%s_%s", rev, direction, year, doy, band, station, direction)
}

// FileBase composes the PDS-convention file base name for a profile at
// radial sampling drKm, e.g. RSS_2005_123_X43_E_DLP_0250M.
func FileBase(year, doy int, band, station, direction string, drKm float64) string {
	meters := int(drKm*1000 + 0.5)
	var res string
	if meters >= 1000 && meters%1000 == 0 {
		res = fmt.Sprintf("%02dKM", meters/1000)
	} else {
		res = fmt.Sprintf("%04dM", meters)
	}
	return fmt.Sprintf("RSS_%04d_%03d_%s%s_%s_DLP_%s", year, doy, band, station, direction, res)
}
