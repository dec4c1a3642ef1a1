//go:build linux || darwin || freebsd

package netsock

import (
	"net"

	"github.com/higebu/netfd"
	"golang.org/x/sys/unix"
)

// EnableBroadcast sets SO_BROADCAST (and SO_REUSEADDR, for quick rebinds
// during development) on the raw fd backing conn, the same technique
// runZeroInc-sockstats' TCPInfoCollector.Add uses to reach into a
// *net.UDPConn via netfd.GetFdFromConn for raw getsockopt/setsockopt calls.
func EnableBroadcast(conn *net.UDPConn) error {
	fd := netfd.GetFdFromConn(conn)
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_BROADCAST, 1); err != nil {
		return err
	}
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
}
