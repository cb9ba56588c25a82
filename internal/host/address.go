package host

import (
	"context"
	"net"
	"os/exec"
	"strings"
)

// Address families accepted by DetectAddress.
const (
	ModeIPv4 = "ipv4"
	ModeIPv6 = "ipv6"
)

/**
 * AddressSources are the lookups DetectAddress falls back through
 * @property {func} interfaceAddrs - Addresses of up, non-loopback interfaces
 * @property {func} outboundIPv4 - Local address the kernel picks for outbound IPv4 traffic
 * @property {func} routeIPv6 - Source address of the IPv6 default route
 */
type AddressSources struct {
	InterfaceAddrs func() ([]net.IP, error)
	OutboundIPv4   func() (net.IP, error)
	RouteIPv6      func(ctx context.Context) (net.IP, error)
}

// SystemAddressSources reads the real network configuration.
func SystemAddressSources() AddressSources {
	return AddressSources{
		InterfaceAddrs: interfaceAddrs,
		OutboundIPv4:   outboundIPv4,
		RouteIPv6:      routeIPv6,
	}
}

/**
 * Detect the address the host is reachable on
 * @param {context.Context} ctx - Bounds external lookups
 * @param {string} configured - Address from configuration, used as is when set
 * @param {string} mode - ipv4 or ipv6
 * @param {AddressSources} src - Lookups, SystemAddressSources() on a real host
 * @returns {string} The first address found, loopback as the last resort
 * @description
 * - ipv6: global unicast interface address (public before fc00::/7), then the "ip -6 route get" source, then ::1
 * - ipv4: outbound UDP dial local address, then a non-loopback interface address, then 127.0.0.1
 */
func DetectAddress(ctx context.Context, configured, mode string, src AddressSources) string {
	if configured != "" {
		return configured
	}

	if mode == ModeIPv6 {
		if ips, err := src.InterfaceAddrs(); err == nil {
			var ula net.IP
			for _, ip := range ips {
				if ip.To4() != nil || !ip.IsGlobalUnicast() {
					continue
				}
				if !ip.IsPrivate() {
					return ip.String()
				}
				if ula == nil {
					ula = ip
				}
			}
			// fc00::/7 只在没有公网地址时使用
			if ula != nil {
				return ula.String()
			}
		}
		if ip, err := src.RouteIPv6(ctx); err == nil && ip != nil {
			return ip.String()
		}
		return "::1"
	}

	if ip, err := src.OutboundIPv4(); err == nil && ip != nil && !ip.IsLoopback() {
		return ip.String()
	}
	if ips, err := src.InterfaceAddrs(); err == nil {
		for _, ip := range ips {
			if ip.To4() != nil && !ip.IsLoopback() {
				return ip.String()
			}
		}
	}
	return "127.0.0.1"
}

func interfaceAddrs() ([]net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var ips []net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok {
				ips = append(ips, ipnet.IP)
			}
		}
	}
	return ips, nil
}

// 不会真正发包，只让内核选择出口地址
func outboundIPv4() (net.IP, error) {
	conn, err := net.Dial("udp4", "8.8.8.8:53")
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP, nil
}

func routeIPv6(ctx context.Context) (net.IP, error) {
	out, err := exec.CommandContext(ctx, "ip", "-6", "route", "get", "2001:4860:4860::8888").Output()
	if err != nil {
		return nil, err
	}
	return parseRouteSource(string(out)), nil
}

// parseRouteSource extracts the "src" field of "ip route get" output.
func parseRouteSource(out string) net.IP {
	fields := strings.Fields(out)
	for i := 0; i < len(fields)-1; i++ {
		if fields[i] == "src" {
			return net.ParseIP(fields[i+1])
		}
	}
	return nil
}
