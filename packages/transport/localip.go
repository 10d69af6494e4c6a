package transport

import (
	"net"
)

// UnknownIP is reported when no address can be determined
const UnknownIP = "0.0.0.0"

// DefaultProbeAddr is the address OutboundIP routes towards
const DefaultProbeAddr = "8.8.8.8:80"

// StaticIP reports a fixed address
type StaticIP string

func (s StaticIP) LocalIP() string {
	if s == "" {
		return UnknownIP
	}
	return string(s)
}

// OutboundIP reports the source address the OS would use to reach Probe.
// No packet is sent: a UDP "connection" only selects a route.
type OutboundIP struct {
	Probe string
}

func (o OutboundIP) LocalIP() string {
	probe := o.Probe
	if probe == "" {
		probe = DefaultProbeAddr
	}

	conn, err := net.Dial("udp", probe)
	if err != nil {
		return UnknownIP
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return UnknownIP
	}
	return addr.IP.String()
}

// InterfaceIP reports the first IPv4 address of a named interface, such as
// eth0 for wired boards or wlan0 for WiFi boards.
type InterfaceIP struct {
	Name string
}

func (i InterfaceIP) LocalIP() string {
	iface, err := net.InterfaceByName(i.Name)
	if err != nil {
		return UnknownIP
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return UnknownIP
	}

	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if v4 := ipNet.IP.To4(); v4 != nil {
			return v4.String()
		}
	}
	return UnknownIP
}
