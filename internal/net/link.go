package net

import (
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// CustomURLScheme prefixes share links handed out by a server.
const CustomURLScheme = "chatdraw://"

var ErrInvalidLink = errors.New("invalid session link")

// ShareLink builds the link other users pass to join.
func ShareLink(host string, port int) string {
	return CustomURLScheme + net.JoinHostPort(host, strconv.Itoa(port))
}

// ParseLink accepts a share link or a bare host:port and returns host:port.
func ParseLink(link string) (string, error) {
	addr := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(link), CustomURLScheme), "/")
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidLink, "%q: %v", link, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		return "", errors.Wrapf(ErrInvalidLink, "%q: bad port", link)
	}
	if host == "" {
		host = "localhost"
	}
	return net.JoinHostPort(host, port), nil
}

// PortOf returns the numeric port of a listener address.
func PortOf(addr net.Addr) int {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	_, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(port)
	return n
}
