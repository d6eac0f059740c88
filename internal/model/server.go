package model

import (
	"context"
	"net"
)

// Transport opens the socket the API is served on and reports the URL
// scheme clients must use to reach it.
type Transport interface {
	Listen(network, addr string) (net.Listener, error)
	Scheme() string
}

// Server serves the DNS management API until stopped.
type Server interface {
	Start(transport Transport) error
	// Stop drains in-flight requests, giving up when ctx is done.
	Stop(ctx context.Context) error
	Address() string
}
