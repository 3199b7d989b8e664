// Package netchange notices network changes by periodically
// scanning the network interfaces.
package netchange

import (
	"context"
	"net"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ooni/dohrollout/internal/model"
)

// Interface is the part of a network interface we care about.
type Interface struct {
	Name     string
	Up       bool
	Loopback bool
	Addrs    []string
}

// ListInterfaces returns the system's interfaces.
func ListInterfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var out []Interface
	for _, iface := range ifaces {
		entry := Interface{
			Name:     iface.Name,
			Up:       iface.Flags&net.FlagUp != 0,
			Loopback: iface.Flags&net.FlagLoopback != 0,
		}
		addrs, err := iface.Addrs()
		if err != nil {
			return nil, err
		}
		for _, addr := range addrs {
			entry.Addrs = append(entry.Addrs, addr.String())
		}
		out = append(out, entry)
	}
	return out, nil
}

// Poller is a model.NetworkNotifier scanning the interfaces. The link is
// up when a non-loopback interface is up and has an address.
type Poller struct {
	// Interval is the MANDATORY interval between scans.
	Interval time.Duration

	// Logger is the OPTIONAL logger.
	Logger model.Logger

	// List is the OPTIONAL function listing the interfaces.
	List func() ([]Interface, error)

	mu      sync.Mutex
	scanned bool
	linkUp  bool
	config  string
}

var _ model.NetworkNotifier = &Poller{}

// IsLinkUp implements model.NetworkNotifier.
func (p *Poller) IsLinkUp() bool {
	p.mu.Lock()
	scanned, up := p.scanned, p.linkUp
	p.mu.Unlock()
	if !scanned {
		p.scan()
		p.mu.Lock()
		up = p.linkUp
		p.mu.Unlock()
	}
	return up
}

// Events implements model.NetworkNotifier.
func (p *Poller) Events(ctx context.Context) <-chan model.NetworkEventKind {
	out := make(chan model.NetworkEventKind)
	go func() {
		defer close(out)
		ticker := time.NewTicker(p.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			kind, found := p.scan()
			if !found {
				continue
			}
			select {
			case out <- kind:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// scan lists the interfaces and compares them with the previous scan. The
// first scan only establishes the baseline. A scan failure is logged and
// otherwise leaves the state unchanged.
func (p *Poller) scan() (model.NetworkEventKind, bool) {
	list := p.List
	if list == nil {
		list = ListInterfaces
	}
	ifaces, err := list()
	if err != nil {
		model.ValidLoggerOrDefault(p.Logger).Warnf("netchange: %s", err.Error())
		return "", false
	}
	up, config := summarize(ifaces)
	p.mu.Lock()
	defer p.mu.Unlock()
	scanned, wasUp, previous := p.scanned, p.linkUp, p.config
	p.scanned, p.linkUp, p.config = true, up, config
	switch {
	case !scanned:
		return "", false
	case up && !wasUp:
		return model.NetworkUp, true
	case config != previous:
		return model.NetworkChanged, true
	default:
		return "", false
	}
}

// summarize returns whether the link is up and a string identifying the
// addresses of the non-loopback interfaces that are up.
func summarize(ifaces []Interface) (bool, string) {
	var entries []string
	for _, iface := range ifaces {
		if !iface.Up || iface.Loopback {
			continue
		}
		for _, addr := range iface.Addrs {
			entries = append(entries, iface.Name+"="+addr)
		}
	}
	slices.Sort(entries)
	return len(entries) > 0, strings.Join(entries, ",")
}
