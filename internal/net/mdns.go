package net

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ServiceType is the mDNS service under which session servers advertise.
const ServiceType = "_chatdraw._tcp"

const (
	txtID        = "id="
	txtTransport = "transport="
)

// Peer is a session server found on the local network.
type Peer struct {
	Instance  string
	Addr      string
	ID        string
	Transport string
}

// Advertise announces a server on the local network until the returned server is
// shut down.
func Advertise(instance string, port int, id, transport string) (*mdns.Server, error) {
	info := []string{txtID + id, txtTransport + transport}
	service, err := mdns.NewMDNSService(instance, ServiceType, "", "", port, nil, info)
	if err != nil {
		return nil, errors.Wrap(err, "create mDNS service failed")
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, errors.Wrap(err, "start mDNS server failed")
	}
	logger.WithFields(logrus.Fields{
		"instance": instance,
		"port":     port,
		"id":       id,
	}).Info("advertising session")
	return server, nil
}

// Browse queries the local network for timeout and calls found once per server.
func Browse(ctx context.Context, timeout time.Duration, found func(Peer)) error {
	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		seen := make(map[string]bool)
		for e := range entries {
			peer, ok := parseEntry(e)
			if !ok || seen[peer.Addr] || ctx.Err() != nil {
				continue
			}
			seen[peer.Addr] = true
			found(peer)
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout

	errc := make(chan error, 1)
	go func() { errc <- mdns.Query(params) }()
	var err error
	select {
	case err = <-errc:
	case <-ctx.Done():
		// the query still owns entries until it finishes
		go func() {
			<-errc
			close(entries)
		}()
		return ctx.Err()
	}
	close(entries)
	<-done
	if err != nil {
		return errors.Wrap(err, "mDNS query failed")
	}
	return nil
}

func parseEntry(e *mdns.ServiceEntry) (Peer, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return Peer{}, false
	}
	peer := Peer{
		Instance:  strings.TrimSuffix(e.Name, "."+ServiceType+".local."),
		Addr:      fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port),
		Transport: "tcp",
	}
	for _, field := range e.InfoFields {
		switch {
		case strings.HasPrefix(field, txtID):
			peer.ID = strings.TrimPrefix(field, txtID)
		case strings.HasPrefix(field, txtTransport):
			peer.Transport = strings.TrimPrefix(field, txtTransport)
		}
	}
	return peer, true
}
