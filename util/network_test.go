package util

import (
	"net"
	"testing"
)

func TestFormatAddr(t *testing.T) {
	if got := FormatAddr("1.2.3.4", 22); got != "1.2.3.4:22" {
		t.Errorf("got %q, want %q", got, "1.2.3.4:22")
	}
	if got := FormatAddr("::1", 14550); got != "[::1]:14550" {
		t.Errorf("got %q, want %q", got, "[::1]:14550")
	}
}

func TestGlobalUnicast(t *testing.T) {
	mustCIDR := func(s string) net.Addr {
		ip, n, err := net.ParseCIDR(s)
		if err != nil {
			t.Fatal(err)
		}
		n.IP = ip
		return n
	}

	addrs := []net.Addr{
		mustCIDR("127.0.0.1/8"),
		mustCIDR("fe80::1/64"),
		mustCIDR("2001:db8::5/64"),
		mustCIDR("100.64.3.7/10"),
	}

	got := GlobalUnicast(addrs)
	if len(got) != 2 {
		t.Fatalf("got %v, want two addresses", got)
	}
	if got[0].String() != "100.64.3.7" {
		t.Errorf("IPv4 should come first, got %v", got)
	}
	if got[1].String() != "2001:db8::5" {
		t.Errorf("second = %v, want 2001:db8::5", got[1])
	}
}

func TestGlobalUnicast_Empty(t *testing.T) {
	if got := GlobalUnicast(nil); len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
}
