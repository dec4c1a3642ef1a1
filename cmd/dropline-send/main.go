package main

import (
	"bufio"
	"net"
	"os"

	"github.com/ventosilenzioso/dropline/internal/config"
	"github.com/ventosilenzioso/dropline/internal/discovery"
	"github.com/ventosilenzioso/dropline/internal/fileio"
	"github.com/ventosilenzioso/dropline/internal/metrics"
	"github.com/ventosilenzioso/dropline/internal/netsock"
	"github.com/ventosilenzioso/dropline/internal/transfer"
	"github.com/ventosilenzioso/dropline/internal/ui"
	"github.com/ventosilenzioso/dropline/pkg/logger"
)

const version = "1.0.0"

func main() {
	logger.Banner("dropline sender", version)

	cfg, path, err := config.ParseSenderFlags(os.Args[1:])
	if err != nil {
		logger.Fatal("invalid arguments: %v", err)
	}

	input, size, err := fileio.OpenInput(path)
	if err != nil {
		logger.Fatal("could not open input file %s: %v", path, err)
	}
	defer input.Close()
	ext := ui.ExtractExtension(path)
	logger.Info("input file: %s (%d bytes, ext=%q)", path, size, ext)

	discoverySock, err := netsock.ListenBroadcast(0)
	if err != nil {
		logger.Fatal("could not open discovery socket: %v", err)
	}
	defer discoverySock.Close()

	var m *metrics.Sender
	if cfg.MetricsAddr != "" {
		m = metrics.NewSender()
		go func() {
			if err := metrics.Serve(cfg.MetricsAddr, m.Handler()); err != nil {
				logger.Warn("metrics server stopped: %v", err)
			}
		}()
		logger.Info("serving metrics on %s/metrics", cfg.MetricsAddr)
	}

	logger.Section("Discovery")
	devices, err := discovery.Discover(discoverySock, cfg.DiscoveryPort, config.DiscoveryWindow)
	if err != nil {
		logger.Fatal("discovery failed: %v", err)
	}
	if m != nil {
		m.DiscoveredPeers.Set(float64(len(devices)))
	}
	if len(devices) == 0 {
		logger.Fatal("no receivers responded to discovery")
	}

	dev, err := ui.ChooseDevice(os.Stdout, bufio.NewReader(os.Stdin), devices)
	if err != nil {
		logger.Fatal("could not choose a device: %v", err)
	}
	if err := discovery.Choose(discoverySock, dev, cfg.DiscoveryPort); err != nil {
		logger.Fatal("could not announce CHOSEN: %v", err)
	}
	logger.Success("chosen receiver: %s (%s:%d)", dev.Name, dev.Addr.IP, dev.Port)

	dataConn, err := netsock.Listen(0)
	if err != nil {
		logger.Fatal("could not open data socket: %v", err)
	}
	defer dataConn.Close()

	ackConn, err := netsock.Listen(cfg.AckPort)
	if err != nil {
		logger.Fatal("could not bind ack socket on port %d: %v", cfg.AckPort, err)
	}
	defer ackConn.Close()

	peer := &net.UDPAddr{IP: dev.Addr.IP, Port: dev.Port}

	sender := transfer.NewSender(dataConn, ackConn, peer, input)
	sender.Window = cfg.Window
	sender.RTO = cfg.RTO
	if cfg.ChunkSize > 0 {
		sender.ChunkSize = uint16(cfg.ChunkSize)
	}
	sender.Metrics = m
	sender.Progress = ui.PrintProgress(os.Stdout)

	logger.Section("Transfer")
	transferID := nextTransferID()
	if err := sender.SendFile(transferID, size, ext); err != nil {
		logger.Fatal("transfer failed: %v", err)
	}
	logger.Success("transfer complete")
}
