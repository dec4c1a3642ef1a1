//go:build !linux && !darwin && !freebsd

package netsock

import "net"

// EnableBroadcast is a no-op on platforms where golang.org/x/sys/unix's
// socket-option constants aren't available; Windows' net package enables
// broadcast sends by default for UDP sockets bound to INADDR_ANY.
func EnableBroadcast(conn *net.UDPConn) error {
	return nil
}
