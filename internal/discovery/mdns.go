// Package discovery advertises the gesture stream on the local network over
// mDNS and finds other instances.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD service type subscribers browse for.
const ServiceType = "_gesturecast._tcp"

// TXT record keys.
const (
	txtPath    = "path="
	txtVersion = "version="
)

// Advertiser owns a running mDNS responder.
type Advertiser struct {
	server  *mdns.Server
	service *mdns.MDNSService
}

// Advertise announces the WebSocket endpoint on port under the machine's hostname.
func Advertise(port int, version string) (*Advertiser, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	service, err := newService(host, "", port, nil, version)
	if err != nil {
		return nil, err
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}

	slog.Info("Advertising gesture stream", "service", ServiceType, "instance", service.Instance, "port", port)
	return &Advertiser{server: server, service: service}, nil
}

// newService builds the zone. Empty hostName and nil ips let the library
// derive them from the OS.
func newService(instance, hostName string, port int, ips []net.IP, version string) (*mdns.MDNSService, error) {
	txt := []string{txtPath + "/ws"}
	if version != "" {
		txt = append(txt, txtVersion+version)
	}

	service, err := mdns.NewMDNSService(instance, ServiceType, "", hostName, port, ips, txt)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	return service, nil
}

// Shutdown stops answering queries.
func (a *Advertiser) Shutdown() error {
	if a == nil || a.server == nil {
		return nil
	}
	return a.server.Shutdown()
}

// Instance is a discovered gesture stream.
type Instance struct {
	Name    string
	Addr    string // host:port
	Path    string
	Version string
}

// URL returns the WebSocket URL of the instance.
func (i Instance) URL() string {
	return "ws://" + i.Addr + i.Path
}

// Browse queries the network for timeout and returns every instance that answered.
func Browse(ctx context.Context, timeout time.Duration) ([]Instance, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	var found []Instance
	collected := make(chan struct{})

	go func() {
		defer close(collected)
		for e := range entries {
			if inst, ok := fromEntry(e); ok {
				found = append(found, inst)
			}
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	errCh := make(chan error, 1)
	go func() { errCh <- mdns.Query(params) }()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		err = ctx.Err()
		// Query honours Timeout; wait for it so entries can be closed safely.
		<-errCh
	}
	close(entries)
	<-collected

	if err != nil {
		return found, fmt.Errorf("mDNS browse failed: %w", err)
	}
	return found, nil
}

func fromEntry(e *mdns.ServiceEntry) (Instance, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return Instance{}, false
	}
	if !strings.Contains(e.Name, ServiceType) {
		return Instance{}, false
	}

	inst := Instance{
		Name: strings.TrimSuffix(e.Name, "."+ServiceType+".local."),
		Addr: net.JoinHostPort(e.AddrV4.String(), fmt.Sprint(e.Port)),
		Path: "/ws",
	}
	for _, field := range e.InfoFields {
		switch {
		case strings.HasPrefix(field, txtPath):
			inst.Path = strings.TrimPrefix(field, txtPath)
		case strings.HasPrefix(field, txtVersion):
			inst.Version = strings.TrimPrefix(field, txtVersion)
		}
	}
	return inst, true
}
