// Package geo resolves IP addresses to coarse locations using a local
// GeoLite2 City database. Lookups are best-effort; login never fails because
// of a missing or stale database.
package geo

import (
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/maxminddb-golang"
)

// Location is the coarse position of an IP address
type Location struct {
	City      string
	Country   string
	Latitude  float64
	Longitude float64
}

// Known reports whether the lookup produced any usable data
func (l Location) Known() bool {
	return l.Country != ""
}

type cityRecord struct {
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Country struct {
		IsoCode string            `maxminddb:"iso_code"`
		Names   map[string]string `maxminddb:"names"`
	} `maxminddb:"country"`
	Location struct {
		Latitude  float64 `maxminddb:"latitude"`
		Longitude float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
}

// Resolver looks up locations in a GeoLite2 City mmdb file. A nil Resolver
// is valid and resolves everything to an unknown location.
type Resolver struct {
	reader *maxminddb.Reader
}

// NewResolver opens the database at path. An empty path returns a nil
// resolver, which disables lookups.
func NewResolver(path string) (*Resolver, error) {
	if path == "" {
		return nil, nil
	}
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geo database: %w", err)
	}
	return &Resolver{reader: reader}, nil
}

// Resolve maps an IP address string to a location. Private, loopback, and
// unparseable addresses resolve to an unknown location without error.
func (r *Resolver) Resolve(ipAddress string) Location {
	if r == nil || r.reader == nil {
		return Location{}
	}

	ip := net.ParseIP(strings.TrimSpace(ipAddress))
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
		return Location{}
	}

	var record cityRecord
	if err := r.reader.Lookup(ip, &record); err != nil {
		return Location{}
	}

	return Location{
		City:      record.City.Names["en"],
		Country:   record.Country.IsoCode,
		Latitude:  record.Location.Latitude,
		Longitude: record.Location.Longitude,
	}
}

// Close releases the memory-mapped database
func (r *Resolver) Close() error {
	if r == nil || r.reader == nil {
		return nil
	}
	return r.reader.Close()
}
