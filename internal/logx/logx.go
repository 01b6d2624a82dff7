// Package logx carries logger annotation helpers shared by the hub and
// the viewer client.
package logx

import (
	"context"

	"pkt.systems/periscope/schema"
	"pkt.systems/pslog"
)

// WithConn annotates the logger with a viewer connection id.
func WithConn(ctx context.Context, connID schema.ConnID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if connID != "" {
		log = log.With("conn", connID)
	}
	return log
}

// WithCall annotates the logger with a tool call id.
func WithCall(log pslog.Logger, callID schema.CallID) pslog.Logger {
	if callID != "" {
		log = log.With("call", callID)
	}
	return log
}
