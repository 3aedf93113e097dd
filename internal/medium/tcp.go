package medium

import (
	"context"
	"net"
)

// TCPDialer connects to a debug target over TCP. The serial-port
// equivalent stays an interface: real serial I/O needs a platform driver
// outside this repo's scope.
type TCPDialer struct {
	Addr string
}

func (d TCPDialer) Dial(ctx context.Context) (Stream, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", d.Addr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
