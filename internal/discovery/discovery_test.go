package discovery

import (
	"net"
	"testing"
)

func mustAddr(ip string) *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(ip)}
}

func TestHereRegexMatchesValidReply(t *testing.T) {
	cases := []struct {
		in       string
		wantName string
		wantPort string
	}{
		{"HERE aevin-pc 40001", "aevin-pc", "40001"},
		{"HERE dropline-ab12cd34 40001\n", "dropline-ab12cd34", "40001"},
		{"HERE x 1", "x", "1"},
	}
	for _, c := range cases {
		m := hereRe.FindStringSubmatch(c.in)
		if m == nil {
			t.Fatalf("hereRe did not match %q", c.in)
		}
		if m[1] != c.wantName || m[2] != c.wantPort {
			t.Fatalf("hereRe(%q) = (%q, %q), want (%q, %q)", c.in, m[1], m[2], c.wantName, c.wantPort)
		}
	}
}

func TestHereRegexRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"DISCOVER",
		"HERE onlyname",
		"HERE name notaport",
		"here lowercase 40001",
		"HERE  40001", // missing name
	}
	for _, in := range cases {
		if m := hereRe.FindStringSubmatch(in); m != nil {
			t.Fatalf("hereRe unexpectedly matched %q: %v", in, m)
		}
	}
}

func TestDeviceKeyDedupsByAddrAndPort(t *testing.T) {
	a := Device{Name: "a", Port: 40001, Addr: mustAddr("10.0.0.5")}
	b := Device{Name: "b", Port: 40001, Addr: mustAddr("10.0.0.5")}
	c := Device{Name: "c", Port: 40002, Addr: mustAddr("10.0.0.5")}

	if a.key() != b.key() {
		t.Fatalf("devices with identical (addr, port) produced different keys: %q vs %q", a.key(), b.key())
	}
	if a.key() == c.key() {
		t.Fatalf("devices with different ports produced the same key: %q", a.key())
	}
}
