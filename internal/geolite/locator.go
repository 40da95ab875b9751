// Package geolite maps proxy addresses to countries using a local GeoLite2
// country database.
package geolite

import (
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// Locator looks up countries in an opened GeoLite2-Country database. A nil
// Locator is valid and knows no countries.
type Locator struct {
	reader *geoip2.Reader
}

func Open(path string) (*Locator, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geolite database %q: %w", path, err)
	}
	return &Locator{reader: reader}, nil
}

func (l *Locator) Close() error {
	if l == nil || l.reader == nil {
		return nil
	}
	return l.reader.Close()
}

// Country returns the ISO country code for a host or host:port address, or an
// empty string when the host is not an IP or not in the database.
func (l *Locator) Country(addr string) string {
	if l == nil || l.reader == nil {
		return ""
	}

	ip := hostIP(addr)
	if ip == nil {
		return ""
	}

	record, err := l.reader.Country(ip)
	if err != nil {
		return ""
	}
	return record.Country.IsoCode
}

func hostIP(addr string) net.IP {
	host := strings.TrimSpace(addr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return net.ParseIP(strings.Trim(host, "[]"))
}
