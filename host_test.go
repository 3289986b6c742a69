package pulseagent

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestHostDecorator_HostnameFailure(t *testing.T) {
	h := &HostDecorator{
		hostname: func() (string, error) { return "", errors.New("no hostname") },
		resolver: net.DefaultResolver,
		timeout:  time.Second,
	}

	info := h.Lookup(context.Background())
	want := HostInfo{Host: "localhost", IP: "127.0.0.1", DNSName: "localhost"}
	if info != want {
		t.Errorf("Lookup() = %+v, want %+v", info, want)
	}
}

func TestHostDecorator_Decorate(t *testing.T) {
	doc := NewDocument()
	if err := NewHostDecorator().Decorate(doc); err != nil {
		t.Fatalf("Decorate() error = %v", err)
	}

	for _, k := range []string{"host", "ip", "dnsName"} {
		if doc.String(k) == "" {
			t.Errorf("%s is empty", k)
		}
	}
	if net.ParseIP(doc.String("ip")) == nil {
		t.Errorf("ip = %q is not an IP address", doc.String("ip"))
	}
}

func TestUnqualified(t *testing.T) {
	tests := map[string]string{
		"web01.prod.example.com": "web01",
		"web01":                  "web01",
		".hidden":                ".hidden",
	}
	for in, want := range tests {
		if got := unqualified(in); got != want {
			t.Errorf("unqualified(%q) = %q, want %q", in, got, want)
		}
	}
}
