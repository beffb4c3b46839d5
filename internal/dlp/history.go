package dlp

import (
	"os"
	"os/user"
	"time"
)

// History is the reproducibility record attached to every profile: who
// produced it, when, from which inputs and with which parameters. It is
// written once at construction and never modified.
type History struct {
	User    string
	Host    string
	RunDate string
	Inputs  map[string]string
	Params  map[string]string
}

// NewHistory captures the execution environment together with the named
// inputs and parameters of a profile construction.
func NewHistory(inputs, params map[string]string) *History {
	h := History{
		RunDate: time.Now().UTC().Format(time.RFC3339),
		Inputs:  make(map[string]string, len(inputs)),
		Params:  make(map[string]string, len(params)),
	}
	for k, v := range inputs {
		h.Inputs[k] = v
	}
	for k, v := range params {
		h.Params[k] = v
	}
	if u, err := user.Current(); err == nil {
		h.User = u.Username
	}
	if host, err := os.Hostname(); err == nil {
		h.Host = host
	}
	return &h
}
