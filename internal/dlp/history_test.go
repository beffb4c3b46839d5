package dlp

import (
	"testing"
	"time"
)

func TestNewHistory(t *testing.T) {
	inputs := map[string]string{"raw_samples": "100"}
	params := map[string]string{"dr_km": "0.25"}
	h := NewHistory(inputs, params)

	if _, err := time.Parse(time.RFC3339, h.RunDate); err != nil {
		t.Errorf("RunDate %q is not RFC3339: %v", h.RunDate, err)
	}

	// The record owns its maps.
	inputs["raw_samples"] = "tampered"
	params["dr_km"] = "tampered"
	if h.Inputs["raw_samples"] != "100" || h.Params["dr_km"] != "0.25" {
		t.Error("history shares map storage with the caller")
	}
}
