package process

import (
	"fmt"
	"net"
)

// allocatePort asks the kernel for a free TCP port and releases it again.
// The host's remote-control server binds it right after spawn; the window
// in between is small enough in practice.
func allocatePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("failed to allocate debugger port: %w", err)
	}
	defer l.Close()

	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected listener address %v", l.Addr())
	}
	return addr.Port, nil
}
