package locator

import (
	"fmt"
	"net"
	"slices"
	"strings"
	"time"

	"databridge/internal/transport"
	"databridge/util"
)

// Endpoint is the TCP target the bridge connects to.
type Endpoint struct {
	Host string
	Port int
}

// DefaultEndpoint is the ground-station relay the bridge reports to.
var DefaultEndpoint = Endpoint{Host: "203.219.232.14", Port: 14550}

// Addr returns the endpoint as host:port.
func (e Endpoint) Addr() string { return util.FormatAddr(e.Host, e.Port) }

func (e Endpoint) String() string { return e.Addr() }

// DefaultCellularPrefixes are the interface name prefixes used by
// cellular modems on Linux and Android kernels.
var DefaultCellularPrefixes = []string{"wwan", "wwp", "rmnet", "ccmni", "ppp"}

// NetworkPath is one host network interface and what it can be used for.
type NetworkPath struct {
	Name  string
	Addrs []net.IP // global unicast, IPv4 first

	Cellular      bool
	Internet      bool
	NotRestricted bool
}

// Eligible reports whether the bridge may use the path.
func (p NetworkPath) Eligible() bool {
	return p.Cellular && p.Internet && p.NotRestricted
}

// SourceIP picks the local address to bind when dialing host through
// the path: one of the same family when host is a literal address,
// otherwise the first (IPv4 preferred).  It returns nil if the path has
// no usable address.
func (p NetworkPath) SourceIP(host string) net.IP {
	if len(p.Addrs) == 0 {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil {
		want4 := ip.To4() != nil
		for _, a := range p.Addrs {
			if (a.To4() != nil) == want4 {
				return a
			}
		}
		return nil
	}
	return p.Addrs[0]
}

// PathDialer returns a TCP dialer whose connections leave through p.
func PathDialer(p NetworkPath, host string, timeout time.Duration) *transport.TCPDialer {
	return &transport.TCPDialer{
		Timeout:   timeout,
		Interface: p.Name,
		LocalIP:   p.SourceIP(host),
	}
}

// NetworkSource lists network paths in a stable order.
type NetworkSource interface {
	Paths() ([]NetworkPath, error)
}

// Interface is the raw view of a host interface before classification.
type Interface struct {
	Name  string
	Flags net.Flags
	Addrs []net.Addr
}

// HostNetworks classifies the host's interfaces.
type HostNetworks struct {
	CellularPrefixes []string // nil means DefaultCellularPrefixes
	Restricted       []string // interface names never to use

	// interfaces is overridable in tests.
	interfaces func() ([]Interface, error)
}

// Paths returns every host interface, classified, in kernel order.
func (h HostNetworks) Paths() ([]NetworkPath, error) {
	list := h.interfaces
	if list == nil {
		list = systemInterfaces
	}
	ifs, err := list()
	if err != nil {
		return nil, fmt.Errorf("listing interfaces: %w", err)
	}
	out := make([]NetworkPath, 0, len(ifs))
	for _, i := range ifs {
		out = append(out, h.Classify(i))
	}
	return out, nil
}

// Classify derives the capabilities of one interface.
func (h HostNetworks) Classify(i Interface) NetworkPath {
	prefixes := h.CellularPrefixes
	if prefixes == nil {
		prefixes = DefaultCellularPrefixes
	}

	addrs := util.GlobalUnicast(i.Addrs)
	up := i.Flags&net.FlagUp != 0 && i.Flags&net.FlagRunning != 0

	return NetworkPath{
		Name:  i.Name,
		Addrs: addrs,
		Cellular: slices.ContainsFunc(prefixes, func(p string) bool {
			return p != "" && strings.HasPrefix(i.Name, p)
		}),
		Internet:      up && len(addrs) > 0,
		NotRestricted: i.Flags&net.FlagLoopback == 0 && !slices.Contains(h.Restricted, i.Name),
	}
}

func systemInterfaces() ([]Interface, error) {
	ifs, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]Interface, 0, len(ifs))
	for _, ifi := range ifs {
		addrs, err := ifi.Addrs()
		if err != nil {
			continue
		}
		out = append(out, Interface{Name: ifi.Name, Flags: ifi.Flags, Addrs: addrs})
	}
	return out, nil
}
