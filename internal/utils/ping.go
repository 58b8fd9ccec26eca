package utils

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// defaultPorts maps the schemes the health check dials to their well known ports.
var defaultPorts = map[string]string{
	"https": "443",
	"http":  "80",
	"smtp":  "587",
	"smtps": "465",
}

// PingService opens and closes a TCP connection to the host of serviceURL.
func PingService(ctx context.Context, serviceURL string, timeout time.Duration) error {
	parsedURL, err := url.Parse(serviceURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	port := parsedURL.Port()
	if port == "" {
		port = defaultPorts[parsedURL.Scheme]
	}
	if port == "" {
		port = "80"
	}
	return PingAddress(ctx, net.JoinHostPort(parsedURL.Hostname(), port), timeout)
}

// PingAddress dials a host:port address.
func PingAddress(ctx context.Context, address string, timeout time.Duration) error {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	defer conn.Close()

	return nil
}

// PingSMTP dials the mail relay.
func PingSMTP(ctx context.Context, host string, port int) error {
	return PingAddress(ctx, net.JoinHostPort(host, strconv.Itoa(port)), 1500*time.Millisecond)
}
