// Package dns resolves hub hostnames for the client subcommands. Players run them on
// networks with broken resolvers, so a failed system lookup falls back to querying
// public DNS servers directly.
package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Fallback servers from Cloudflare, Google and Quad9, queried concurrently when the
// system resolver fails.
var fallbackServers = []string{
	"1.1.1.1", "1.0.0.1", "2606:4700:4700::1111",
	"8.8.8.8", "8.8.4.4", "2001:4860:4860::8888",
	"9.9.9.9", "149.112.112.112",
}

var errNoAddress = errors.New("no addresses")

// Resolver looks hosts up with the system resolver first and the fallback servers second.
type Resolver struct {
	Servers       []string
	SystemTimeout time.Duration
	RaceTimeout   time.Duration

	// system is swapped in tests.
	system func(ctx context.Context, host string) ([]string, error)
}

// Default is the resolver behind Lookup and DialContext.
var Default = &Resolver{
	Servers:       fallbackServers,
	SystemTimeout: time.Second,
	RaceTimeout:   2 * time.Second,
}

// Lookup resolves host with Default.
func Lookup(ctx context.Context, host string) (string, error) {
	return Default.Lookup(ctx, host)
}

// DialContext dials addr after resolving its host with Default. It fits
// websocket.Dialer.NetDialContext and http.Transport.DialContext.
func DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	ip, err := Default.Lookup(ctx, host)
	if err != nil {
		return nil, err
	}

	var d net.Dialer
	return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
}

// Lookup returns one address for host, IPv4 when there is a choice. IP literals are
// returned as they are.
func (r *Resolver) Lookup(ctx context.Context, host string) (string, error) {
	if net.ParseIP(host) != nil {
		return host, nil
	}

	sysCtx, cancel := context.WithTimeout(ctx, r.SystemTimeout)
	addrs, err := r.systemLookup(sysCtx, host)
	cancel()
	if err == nil {
		if ip, err := pick(addrs); err == nil {
			return ip, nil
		}
	}

	ip, raceErr := r.race(ctx, host)
	if raceErr != nil {
		return "", fmt.Errorf("resolve %s: %w", host, errors.Join(err, raceErr))
	}
	return ip, nil
}

func (r *Resolver) systemLookup(ctx context.Context, host string) ([]string, error) {
	if r.system != nil {
		return r.system(ctx, host)
	}
	return net.DefaultResolver.LookupHost(ctx, host)
}

// race asks every fallback server and takes the first usable answer.
func (r *Resolver) race(ctx context.Context, host string) (string, error) {
	if len(r.Servers) == 0 {
		return "", errors.New("no fallback servers")
	}
	ctx, cancel := context.WithTimeout(ctx, r.RaceTimeout)
	defer cancel()

	answers := make(chan string, len(r.Servers))
	for _, server := range r.Servers {
		go func() {
			addrs, err := via(server).LookupHost(ctx, host)
			if err != nil {
				answers <- ""
				return
			}
			ip, _ := pick(addrs)
			answers <- ip
		}()
	}

	for range r.Servers {
		select {
		case ip := <-answers:
			if ip != "" {
				return ip, nil
			}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("all %d fallback servers failed", len(r.Servers))
}

// via builds a resolver that sends every query to server on port 53.
func via(server string) *net.Resolver {
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(server, "53"))
		},
	}
}

func pick(addrs []string) (string, error) {
	if len(addrs) == 0 {
		return "", errNoAddress
	}
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
			return a, nil
		}
	}
	return addrs[0], nil
}
