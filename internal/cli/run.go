package cli

import (
	"io"
)

// RunOptions contains the settings of the run command that are not in the config file.
type RunOptions struct {
	SessionID string
	Fresh     bool
	Debug     bool
	Quiet     bool
	Input     io.Reader
	Output    io.Writer
}

// sessionID picks the slot: the flag, then the config, then DefaultSessionID.
func (o RunOptions) sessionID(configured string) string {
	switch {
	case o.SessionID != "":
		return o.SessionID
	case configured != "":
		return configured
	default:
		return DefaultSessionID
	}
}
