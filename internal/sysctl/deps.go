package sysctl

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/vishvananda/netlink"
)

// CommandExecutor abstracts external command execution.
type CommandExecutor interface {
	Run(ctx context.Context, name string, args []string) (string, error)
}

// NetlinkClient abstracts the netlink queries used to report the active qdisc.
type NetlinkClient interface {
	RouteList(link netlink.Link, family int) ([]netlink.Route, error)
	LinkByIndex(index int) (netlink.Link, error)
	QdiscList(link netlink.Link) ([]netlink.Qdisc, error)
}

type defaultNetlinkClient struct{}

func (defaultNetlinkClient) RouteList(link netlink.Link, family int) ([]netlink.Route, error) {
	return netlink.RouteList(link, family)
}

func (defaultNetlinkClient) LinkByIndex(index int) (netlink.Link, error) {
	return netlink.LinkByIndex(index)
}

func (defaultNetlinkClient) QdiscList(link netlink.Link) ([]netlink.Qdisc, error) {
	return netlink.QdiscList(link)
}

type processExecutor struct{}

func (processExecutor) Run(ctx context.Context, name string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	err := cmd.Run()
	return output.String(), err
}

func ensureExecutor(executor CommandExecutor) CommandExecutor {
	if executor != nil {
		return executor
	}
	return processExecutor{}
}
