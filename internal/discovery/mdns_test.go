package discovery

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService(t *testing.T) {
	svc, err := newService("studio", "studio.local.", 8080, []net.IP{net.IPv4(192, 168, 1, 20)}, "1.2.0")
	require.NoError(t, err)

	assert.Equal(t, "studio", svc.Instance)
	assert.Equal(t, ServiceType, svc.Service)
	assert.Equal(t, 8080, svc.Port)
	assert.Equal(t, []string{"path=/ws", "version=1.2.0"}, svc.TXT)
}

func TestNewService_NoVersion(t *testing.T) {
	svc, err := newService("studio", "studio.local.", 9000, []net.IP{net.IPv4(10, 0, 0, 5)}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"path=/ws"}, svc.TXT)
}

func TestNewService_RejectsBadHostName(t *testing.T) {
	_, err := newService("studio", "not-fully-qualified", 8080, []net.IP{net.IPv4(10, 0, 0, 5)}, "")
	assert.Error(t, err)
}

func TestFromEntry(t *testing.T) {
	entry := &mdns.ServiceEntry{
		Name:       "studio._gesturecast._tcp.local.",
		AddrV4:     net.IPv4(192, 168, 1, 20),
		Port:       8080,
		InfoFields: []string{"path=/ws", "version=1.2.0"},
	}

	inst, ok := fromEntry(entry)
	require.True(t, ok)
	assert.Equal(t, "studio", inst.Name)
	assert.Equal(t, "192.168.1.20:8080", inst.Addr)
	assert.Equal(t, "1.2.0", inst.Version)
	assert.Equal(t, "ws://192.168.1.20:8080/ws", inst.URL())
}

func TestFromEntry_Skips(t *testing.T) {
	tests := []struct {
		name  string
		entry *mdns.ServiceEntry
	}{
		{"nil", nil},
		{"no address", &mdns.ServiceEntry{Name: "a._gesturecast._tcp.local.", Port: 8080}},
		{"no port", &mdns.ServiceEntry{Name: "a._gesturecast._tcp.local.", AddrV4: net.IPv4(10, 0, 0, 1)}},
		{"other service", &mdns.ServiceEntry{Name: "a._http._tcp.local.", AddrV4: net.IPv4(10, 0, 0, 1), Port: 80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := fromEntry(tt.entry)
			assert.False(t, ok)
		})
	}
}

func TestAdvertiser_ShutdownNil(t *testing.T) {
	var a *Advertiser
	assert.NoError(t, a.Shutdown())
}
