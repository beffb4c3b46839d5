package occult

import (
	"errors"
	"testing"
)

func TestSplit_Chord(t *testing.T) {
	occ := chordObservation()
	ing, egr, err := Split(occ)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if ing == nil || egr == nil {
		t.Fatal("chord split must produce both halves")
	}
	if ing.Geo.Direction != Ingress || egr.Geo.Direction != Egress {
		t.Errorf("directions %s/%s, want INGRESS/EGRESS", ing.Geo.Direction, egr.Geo.Direction)
	}

	// The radial velocity t-50 first changes sign at the t = 50 sample,
	// so the guard band discards signal within [49, 51].
	last := ing.Raw.TimeSec[len(ing.Raw.TimeSec)-1]
	if last != 49 {
		t.Errorf("ingress raw ends at %g, want 49", last)
	}
	if first := egr.Raw.TimeSec[0]; first != 51 {
		t.Errorf("egress raw starts at %g, want 51", first)
	}

	// Raw is sampled at 0.5 s over [0, 100]: 201 samples, of which
	// 49.5, 50 and 50.5 fall inside the guard band.
	if got := len(ing.Raw.TimeSec) + len(egr.Raw.TimeSec); got != len(occ.Raw.TimeSec)-3 {
		t.Errorf("halves retain %d raw samples, want %d", got, len(occ.Raw.TimeSec)-3)
	}
	if len(ing.Cal.IQ) != len(ing.Raw.TimeSec) || len(egr.Cal.IQ) != len(egr.Raw.TimeSec) {
		t.Error("calibrated signal out of step with raw time base after split")
	}

	// Geometry partitions at the turning sample with no overlap.
	if end := ing.Geo.TimeSec[len(ing.Geo.TimeSec)-1]; end != 49 {
		t.Errorf("ingress geometry ends at %g, want 49", end)
	}
	if start := egr.Geo.TimeSec[0]; start != 50 {
		t.Errorf("egress geometry starts at %g, want 50", start)
	}
	if got := len(ing.Geo.TimeSec) + len(egr.Geo.TimeSec); got != len(occ.Geo.TimeSec) {
		t.Errorf("geometry halves hold %d samples, want %d", got, len(occ.Geo.TimeSec))
	}

	// Both halves own their storage.
	ing.Raw.IQ[0] = complex(7, 7)
	egr.Geo.RhoKm[0] = -1
	if occ.Raw.IQ[0] == complex(7, 7) || occ.Geo.RhoKm[50] == -1 {
		t.Error("split halves alias the original backing arrays")
	}
}

func TestSplit_PureDirections(t *testing.T) {
	occ := chordObservation()
	occ.Geo.Direction = Ingress
	ing, egr, err := Split(occ)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if ing != occ || egr != nil {
		t.Error("pure ingress should pass through unchanged")
	}

	occ.Geo.Direction = Egress
	ing, egr, err = Split(occ)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if egr != occ || ing != nil {
		t.Error("pure egress should pass through unchanged")
	}
}

func TestSplit_InvalidDirection(t *testing.T) {
	occ := chordObservation()
	occ.Geo.Direction = "DIAGONAL"
	if _, _, err := Split(occ); !errors.Is(err, ErrInvalidDirection) {
		t.Fatalf("got %v, want ErrInvalidDirection", err)
	}
}

func TestSplit_NoTurningPoint(t *testing.T) {
	occ := chordObservation()
	for i := range occ.Geo.RhoDotKms {
		occ.Geo.RhoDotKms[i] = -5
	}
	if _, _, err := Split(occ); err == nil {
		t.Fatal("expected error for BOTH observation without a sign change")
	}
}
