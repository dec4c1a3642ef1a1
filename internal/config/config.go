// Package config holds the protocol's fixed tunables (window size, RTO,
// ack-batch thresholds, ports) as constants and exposes them as
// flag-overridable fields, so the zero-flag defaults match the wire
// protocol's assumptions exactly.
package config

import (
	"flag"
	"time"
)

// Defaults for every tunable the wire protocol assumes.
const (
	DefaultDiscoveryPort = 40000
	DefaultDataPort      = 40001
	DefaultAckPort       = 40002

	DefaultChunkSize  = 1200
	DefaultWindow     = 300
	DefaultRTO        = 50 * time.Millisecond
	DefaultAckMaxIDs  = 256
	DefaultAckFlush   = 5 * time.Millisecond
	DiscoveryWindow   = 1000 * time.Millisecond
	DiscoveryPollStep = 5 * time.Millisecond
	SenderLoopStep    = 1 * time.Millisecond
)

// Sender holds the sender side's configurable knobs.
type Sender struct {
	DiscoveryPort int
	AckPort       int
	ChunkSize     int
	Window        int
	RTO           time.Duration
	MetricsAddr   string // empty disables the /metrics endpoint
}

// Receiver holds the receiver side's configurable knobs.
type Receiver struct {
	DiscoveryPort int
	DataPort      int
	AckPort       int
	AckMaxIDs     int
	AckFlush      time.Duration
	MetricsAddr   string
}

// ParseSenderFlags parses os.Args-style flags for the sender binary,
// defaulting every field to the protocol's fixed constants.
func ParseSenderFlags(args []string) (Sender, string, error) {
	fs := flag.NewFlagSet("dropline-send", flag.ContinueOnError)
	cfg := Sender{}
	fs.IntVar(&cfg.DiscoveryPort, "discovery-port", DefaultDiscoveryPort, "receiver discovery port (UDP)")
	fs.IntVar(&cfg.AckPort, "ack-port", DefaultAckPort, "local port bound to receive ACK_BATCH frames")
	fs.IntVar(&cfg.ChunkSize, "chunk-size", DefaultChunkSize, "bytes per chunk (<=1200 by default)")
	fs.IntVar(&cfg.Window, "window", DefaultWindow, "max outstanding unacknowledged chunks")
	fs.DurationVar(&cfg.RTO, "rto", DefaultRTO, "retransmission timeout")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address")

	if err := fs.Parse(args); err != nil {
		return Sender{}, "", err
	}
	if fs.NArg() != 1 {
		return Sender{}, "", errInvalidArgCount
	}
	return cfg, fs.Arg(0), nil
}

// ParseReceiverFlags parses flags for the receiver binary.
func ParseReceiverFlags(args []string) (Receiver, error) {
	fs := flag.NewFlagSet("dropline-recv", flag.ContinueOnError)
	cfg := Receiver{}
	fs.IntVar(&cfg.DiscoveryPort, "discovery-port", DefaultDiscoveryPort, "discovery port (UDP)")
	fs.IntVar(&cfg.DataPort, "data-port", DefaultDataPort, "data port (UDP)")
	fs.IntVar(&cfg.AckPort, "ack-port", DefaultAckPort, "port ACK_BATCH frames are sent to")
	fs.IntVar(&cfg.AckMaxIDs, "ack-max-ids", DefaultAckMaxIDs, "max ids per ACK_BATCH before an immediate flush")
	fs.DurationVar(&cfg.AckFlush, "ack-flush", DefaultAckFlush, "max delay before an ACK_BATCH is flushed")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address")

	if err := fs.Parse(args); err != nil {
		return Receiver{}, err
	}
	return cfg, nil
}

var errInvalidArgCount = flagError("exactly one input path is required")

type flagError string

func (e flagError) Error() string { return string(e) }
