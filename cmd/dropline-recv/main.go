package main

import (
	"fmt"
	"os"

	"github.com/ventosilenzioso/dropline/internal/config"
	"github.com/ventosilenzioso/dropline/internal/discovery"
	"github.com/ventosilenzioso/dropline/internal/fileio"
	"github.com/ventosilenzioso/dropline/internal/metrics"
	"github.com/ventosilenzioso/dropline/internal/netsock"
	"github.com/ventosilenzioso/dropline/internal/transfer"
	"github.com/ventosilenzioso/dropline/pkg/logger"
)

const version = "1.0.0"

func main() {
	logger.Banner("dropline receiver", version)

	cfg, err := config.ParseReceiverFlags(os.Args[1:])
	if err != nil {
		logger.Fatal("invalid arguments: %v", err)
	}

	discoverySock, err := netsock.Listen(cfg.DiscoveryPort)
	if err != nil {
		logger.Fatal("could not bind discovery socket on port %d: %v", cfg.DiscoveryPort, err)
	}
	defer discoverySock.Close()

	dataConn, err := netsock.Listen(cfg.DataPort)
	if err != nil {
		logger.Fatal("could not bind data socket on port %d: %v", cfg.DataPort, err)
	}
	defer dataConn.Close()

	ackConn, err := netsock.Listen(0)
	if err != nil {
		logger.Fatal("could not open ack socket: %v", err)
	}
	defer ackConn.Close()

	var m *metrics.Receiver
	if cfg.MetricsAddr != "" {
		m = metrics.NewReceiver()
		go func() {
			if err := metrics.Serve(cfg.MetricsAddr, m.Handler()); err != nil {
				logger.Warn("metrics server stopped: %v", err)
			}
		}()
		logger.Info("serving metrics on %s/metrics", cfg.MetricsAddr)
	}

	name := discovery.AdvertisedName()
	logger.Info("advertising as %q, waiting to be chosen", name)

	logger.Section("Discovery")
	peer, err := discovery.ReceiverLoop(discoverySock, name, cfg.DataPort)
	if err != nil {
		logger.Fatal("discovery loop failed: %v", err)
	}
	logger.Success("chosen by sender at %s", peer)

	recv := transfer.NewReceiver(dataConn, ackConn, cfg.AckPort, outputOpener)
	recv.AckMaxIDs = cfg.AckMaxIDs
	recv.AckFlushWait = cfg.AckFlush
	recv.ChosenPeer = peer
	recv.Metrics = m

	logger.Section("Transfer")
	if err := recv.Run(); err != nil {
		logger.Fatal("transfer failed: %v", err)
	}
	logger.Success("transfer complete")
}

func outputOpener(ext string) (fileio.ChunkWriter, error) {
	return fileio.CreateOutput(fmt.Sprintf("received_file.%s", ext))
}
