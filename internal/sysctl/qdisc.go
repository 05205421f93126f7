package sysctl

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/vishvananda/netlink"
)

// QdiscInfo names the root qdisc of an interface.
type QdiscInfo struct {
	Interface string
	Kind      string
}

// QdiscReporter finds the qdisc actually attached to the default-route interface.
type QdiscReporter struct {
	logger  *slog.Logger
	netlink NetlinkClient
}

// NewQdiscReporter uses the system netlink socket.
func NewQdiscReporter(logger *slog.Logger) *QdiscReporter {
	return NewQdiscReporterWithClient(logger, defaultNetlinkClient{})
}

// NewQdiscReporterWithClient injects a netlink client.
func NewQdiscReporterWithClient(logger *slog.Logger, client NetlinkClient) *QdiscReporter {
	return &QdiscReporter{logger: logger, netlink: client}
}

// RootQdisc returns the root qdisc on the interface carrying the IPv4 default route.
func (r *QdiscReporter) RootQdisc() (QdiscInfo, error) {
	link, err := r.defaultRouteLink()
	if err != nil {
		return QdiscInfo{}, err
	}

	name := link.Attrs().Name
	qdiscs, err := r.netlink.QdiscList(link)
	if err != nil {
		return QdiscInfo{}, fmt.Errorf("qdisc list %s: %w", name, err)
	}

	for _, q := range qdiscs {
		attrs := q.Attrs()
		if attrs == nil || attrs.Parent != netlink.HANDLE_ROOT {
			continue
		}
		return QdiscInfo{Interface: name, Kind: q.Type()}, nil
	}

	return QdiscInfo{Interface: name}, fmt.Errorf("no root qdisc on %s", name)
}

func (r *QdiscReporter) defaultRouteLink() (netlink.Link, error) {
	routes, err := r.netlink.RouteList(nil, netlink.FAMILY_V4)
	if err != nil {
		return nil, fmt.Errorf("route list: %w", err)
	}

	for _, route := range routes {
		if !isDefaultRoute(route) || route.LinkIndex <= 0 {
			continue
		}
		link, err := r.netlink.LinkByIndex(route.LinkIndex)
		if err != nil {
			if r.logger != nil {
				r.logger.Debug("default route link lookup failed",
					slog.Int("index", route.LinkIndex),
					slog.String("error", err.Error()))
			}
			continue
		}
		if link == nil || link.Attrs() == nil {
			continue
		}
		return link, nil
	}

	return nil, errors.New("no IPv4 default route")
}

// isDefaultRoute accepts both a nil destination and an explicit 0.0.0.0/0.
func isDefaultRoute(route netlink.Route) bool {
	if route.Dst == nil {
		return true
	}
	ones, _ := route.Dst.Mask.Size()
	return ones == 0 && route.Dst.IP.IsUnspecified()
}
