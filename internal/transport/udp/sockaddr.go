//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package udp

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

func toSockaddr(family int, addr *net.UDPAddr) (unix.Sockaddr, error) {
	if addr == nil {
		addr = &net.UDPAddr{}
	}

	switch family {
	case unix.AF_INET:
		sa := &unix.SockaddrInet4{Port: addr.Port}
		if len(addr.IP) > 0 {
			ip := addr.IP.To4()
			if ip == nil {
				return nil, fmt.Errorf("%s is not an IPv4 address", addr.IP)
			}
			copy(sa.Addr[:], ip)
		}
		return sa, nil

	case unix.AF_INET6:
		sa := &unix.SockaddrInet6{Port: addr.Port}
		if len(addr.IP) > 0 {
			// IPv4 addresses map to ::ffff:a.b.c.d on a dual-stack socket.
			copy(sa.Addr[:], addr.IP.To16())
		}
		if addr.Zone != "" {
			ifi, err := net.InterfaceByName(addr.Zone)
			if err != nil {
				return nil, fmt.Errorf("zone %s: %w", addr.Zone, err)
			}
			sa.ZoneId = uint32(ifi.Index)
		}
		return sa, nil
	}
	return nil, fmt.Errorf("unsupported address family %d", family)
}

func fromSockaddr(sa unix.Sockaddr) *net.UDPAddr {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.UDPAddr{IP: net.IPv4(sa.Addr[0], sa.Addr[1], sa.Addr[2], sa.Addr[3]), Port: sa.Port}
	case *unix.SockaddrInet6:
		ip := make(net.IP, net.IPv6len)
		copy(ip, sa.Addr[:])
		addr := &net.UDPAddr{IP: ip, Port: sa.Port}
		if sa.ZoneId != 0 {
			if ifi, err := net.InterfaceByIndex(int(sa.ZoneId)); err == nil {
				addr.Zone = ifi.Name
			}
		}
		return addr
	}
	return &net.UDPAddr{}
}
