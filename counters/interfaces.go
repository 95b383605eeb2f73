package counters

import (
	"context"
	"log"
	"net/netip"
	"slices"

	"github.com/pkg/errors"
	psnet "github.com/shirou/gopsutil/v4/net"
)

type AddressFamily string

const (
	FamilyIPv4  AddressFamily = "IPv4"
	FamilyIPv6  AddressFamily = "IPv6"
	FamilyOther AddressFamily = "Other"
)

type Address struct {
	Address string
	Family  AddressFamily
}

type Interface struct {
	Name      string
	Addresses []Address
	Up        bool
	// SpeedMbps is zero when the link speed is unknown.
	SpeedMbps int
}

type Inspector struct {
	interfaces func(ctx context.Context) (psnet.InterfaceStatList, error)
	linkSpeed  func(name string) int
}

func NewInspector() *Inspector {
	return &Inspector{
		interfaces: psnet.InterfacesWithContext,
		linkSpeed:  readLinkSpeed,
	}
}

func classify(addr string) Address {
	ret := Address{Address: addr, Family: FamilyOther}

	var ip netip.Addr
	if prefix, err := netip.ParsePrefix(addr); err == nil {
		ip = prefix.Addr()
		ret.Address = ip.String()
	} else if parsed, err := netip.ParseAddr(addr); err == nil {
		ip = parsed
	} else {
		return ret
	}

	switch {
	case ip.Is4():
		ret.Family = FamilyIPv4
	case ip.Is6():
		ret.Family = FamilyIPv6
	}

	return ret
}

func (i *Inspector) Interfaces(ctx context.Context) ([]Interface, error) {
	stats, err := i.interfaces(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing network interfaces")
	}

	ret := make([]Interface, 0, len(stats))
	for _, stat := range stats {
		iface := Interface{
			Name:      stat.Name,
			Up:        slices.Contains(stat.Flags, "up"),
			SpeedMbps: i.linkSpeed(stat.Name),
		}
		for _, addr := range stat.Addrs {
			iface.Addresses = append(iface.Addresses, classify(addr.Addr))
		}
		if stat.HardwareAddr != "" {
			iface.Addresses = append(iface.Addresses, Address{Address: stat.HardwareAddr, Family: FamilyOther})
		}
		ret = append(ret, iface)
	}

	return ret, nil
}

func PrintInterfaces(printer *log.Logger, interfaces []Interface) {
	for _, iface := range interfaces {
		printer.Printf("Interface: %s\n", iface.Name)
		for _, addr := range iface.Addresses {
			printer.Printf("  IP Address: %s, Type: %s\n", addr.Address, addr.Family)
		}

		status := "Down"
		if iface.Up {
			status = "Up"
		}
		printer.Printf("  Status: %s, Speed: %d Mbps\n", status, iface.SpeedMbps)
	}
}
