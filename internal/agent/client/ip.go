package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"
)

// DefaultIPLookupURL returns the caller's public address as plain text.
const DefaultIPLookupURL = "https://api.ipify.org"

type IPLookup struct {
	url  string
	http *http.Client
}

func NewIPLookup(url string, timeout time.Duration) *IPLookup {
	if url == "" {
		url = DefaultIPLookupURL
	}
	return &IPLookup{url: url, http: &http.Client{Timeout: timeout}}
}

// PublicIP returns the address the echo service saw the request come from.
func (l *IPLookup) PublicIP(ctx context.Context) (netip.Addr, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("failed to build IP lookup request: %w", err)
	}

	resp, err := l.http.Do(req)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("failed to look up public IP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return netip.Addr{}, fmt.Errorf("failed to look up public IP: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("failed to read public IP: %w", err)
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(string(data)))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("IP lookup returned %q: %w", strings.TrimSpace(string(data)), err)
	}
	return addr.Unmap(), nil
}
