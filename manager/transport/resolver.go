package transport

import (
	"context"
	"net"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type resolveKey struct {
	host    string
	version IPVersion
}

// resolver turns host names into addresses. Lookups are cached because the
// same peers are dialled and addressed by sendTo over and over.
type resolver struct {
	cache   *lru.Cache[resolveKey, net.IP]
	timeout time.Duration
}

func newResolver(size int, timeout time.Duration) *resolver {
	r := &resolver{timeout: timeout}
	if size > 0 {
		// lru.New only fails for a non-positive size.
		r.cache, _ = lru.New[resolveKey, net.IP](size)
	}
	return r
}

// resolve returns the address for host. An empty host resolves to nil, the
// wildcard address.
func (r *resolver) resolve(host string, version IPVersion) (net.IP, error) {
	if host == "" {
		return nil, nil
	}
	if ip := net.ParseIP(host); ip != nil {
		if !familyMatches(ip, version) {
			return nil, newError(ErrorCodeInvalidArgument, "address "+host+" does not match "+version.String())
		}
		return ip, nil
	}

	key := resolveKey{host: host, version: version}
	if r.cache != nil {
		if ip, ok := r.cache.Get(key); ok {
			return ip, nil
		}
	}

	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, lookupNetwork(version), host)
	if err != nil {
		return nil, &Error{Code: mapDNSError(err), Msg: "resolve " + host + ": " + err.Error(), Err: err}
	}
	if len(ips) == 0 {
		return nil, newError(ErrorCodeNameUnresolvable, "resolve "+host+": no addresses")
	}

	if r.cache != nil {
		r.cache.Add(key, ips[0])
	}
	return ips[0], nil
}

func lookupNetwork(version IPVersion) string {
	switch version {
	case IPv4:
		return "ip4"
	case IPv6:
		return "ip6"
	default:
		return "ip"
	}
}

func familyMatches(ip net.IP, version IPVersion) bool {
	switch version {
	case IPv4:
		return ip.To4() != nil
	case IPv6:
		return ip.To4() == nil
	default:
		return true
	}
}

func versionOf(ip net.IP) IPVersion {
	if ip.To4() != nil {
		return IPv4
	}
	return IPv6
}

func network(protocol Protocol, version IPVersion) string {
	base := "tcp"
	if protocol == UDP {
		base = "udp"
	}
	switch version {
	case IPv4:
		return base + "4"
	case IPv6:
		return base + "6"
	default:
		return base
	}
}
