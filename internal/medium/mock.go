package medium

import (
	"context"
	"net"
)

// MockDialer returns one end of an in-memory duplex pipe and hands the
// other end back to the caller, so tests can drive a Medium without a
// real serial port or socket.
func MockDialer() (dial Dialer, remote net.Conn) {
	local, remote := net.Pipe()
	return func(ctx context.Context) (Stream, error) {
		return local, nil
	}, remote
}
