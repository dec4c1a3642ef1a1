// Package discovery implements the peer-discovery handshake that binds a
// transfer to exactly one remote address: the sender broadcasts DISCOVER,
// every listening receiver replies HERE <name> <port>, the sender collects
// replies for a fixed window and the user's choice is announced with
// CHOSEN.
package discovery

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/xid"

	"github.com/ventosilenzioso/dropline/internal/config"
	"github.com/ventosilenzioso/dropline/internal/netsock"
	"github.com/ventosilenzioso/dropline/pkg/logger"
)

const (
	msgDiscover = "DISCOVER"
	msgChosen   = "CHOSEN"
)

var hereRe = regexp.MustCompile(`^HERE\s(\S+)\s(\d+)\s*$`)

// Device is one receiver seen during a discovery window.
type Device struct {
	Name string
	Port int
	Addr *net.UDPAddr
}

// key uniquely identifies a device by (address, port) — not by name, so
// two receivers sharing an unresolvable hostname fallback still coexist
// correctly in the list.
func (d Device) key() string { return fmt.Sprintf("%s:%d", d.Addr.IP.String(), d.Port) }

// Discover broadcasts DISCOVER to discoveryPort on the IPv4 broadcast
// address and collects
// HERE replies for the fixed discovery window, deduping by (address, port).
// Replies that fail to parse or carry an out-of-range port are ignored.
func Discover(conn *net.UDPConn, discoveryPort int, window time.Duration) ([]Device, error) {
	broadcastAddr := &net.UDPAddr{IP: net.IPv4bcast, Port: discoveryPort}
	if _, err := conn.WriteToUDP([]byte(msgDiscover), broadcastAddr); err != nil {
		return nil, fmt.Errorf("discovery: broadcast DISCOVER: %w", err)
	}

	seen := make(map[string]bool)
	var devices []Device

	buf := make([]byte, 2048)
	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		n, addr, err := netsock.ReadNonBlocking(conn, buf)
		if err != nil {
			if err == netsock.ErrWouldBlock {
				time.Sleep(config.DiscoveryPollStep)
				continue
			}
			continue
		}
		if n == 0 {
			continue
		}

		m := hereRe.FindSubmatch(buf[:n])
		if m == nil {
			continue
		}
		port, err := strconv.Atoi(string(m[2]))
		if err != nil || port < 1 || port > 65535 {
			continue
		}

		dev := Device{Name: string(m[1]), Port: port, Addr: addr}
		if seen[dev.key()] {
			continue
		}
		seen[dev.key()] = true
		devices = append(devices, dev)
	}

	return devices, nil
}

// Choose sends the CHOSEN handshake message to dev's discovery endpoint,
// binding this transfer to dev for the data/ack phase.
func Choose(conn *net.UDPConn, dev Device, discoveryPort int) error {
	dest := &net.UDPAddr{IP: dev.Addr.IP, Port: discoveryPort}
	_, err := conn.WriteToUDP([]byte(msgChosen), dest)
	return err
}

// AdvertisedName returns the hostname to advertise in HERE replies,
// falling back to a short xid when the hostname is empty or unavailable —
// this only affects the human-readable label in the sender's discovery
// list, never the (address, port) key that dedup and CHOSEN routing rely
// on.
func AdvertisedName() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		name = "dropline-" + xid.New().String()[:8]
		logger.Warn("could not resolve hostname, advertising as %s", name)
	}
	return name
}

// ReceiverLoop runs the receiver's Discover state: it replies HERE to every
// DISCOVER and returns the sender's address as soon as CHOSEN arrives,
// exactly as receiver.cpp's handleDiscovery/listen do.
func ReceiverLoop(conn *net.UDPConn, deviceName string, dataPort int) (*net.UDPAddr, error) {
	buf := make([]byte, 2048)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			return nil, fmt.Errorf("discovery: read: %w", err)
		}
		if n == 0 {
			continue
		}
		msg := string(buf[:n])

		switch msg {
		case msgDiscover:
			reply := fmt.Sprintf("HERE %s %d", deviceName, dataPort)
			if _, err := conn.WriteToUDP([]byte(reply), addr); err != nil {
				logger.Warn("failed to reply to DISCOVER from %s: %v", addr, err)
			}
		case msgChosen:
			return addr, nil
		default:
			// any other payload on the discovery port is ignored
		}
	}
}
