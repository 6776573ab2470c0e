package goPairAuth

import (
	"io"
	"log/slog"

	"github.com/MrEthical07/goPairAuth/internal/audit"
)

// AuditEvent is one auth outcome delivered to an AuditSink.
type AuditEvent = audit.Event

// AuditSink receives audit events on the dispatcher goroutine. Implementations
// must be safe for use by one goroutine at a time and should not block for long.
type AuditSink = audit.Sink

// NoOpSink discards events.
type NoOpSink = audit.NoOpSink

// ChannelSink publishes events on a buffered channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes newline-delimited JSON events.
type JSONWriterSink = audit.JSONWriterSink

// SlogSink logs events through a structured logger.
type SlogSink = audit.SlogSink

func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }

func NewSlogSink(logger *slog.Logger) *SlogSink { return audit.NewSlogSink(logger) }
