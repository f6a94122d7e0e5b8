package tcp

import (
	"fmt"
	"github.com/ValentinKolb/lsrv/srv/common"
	"github.com/ValentinKolb/lsrv/srv/transport"
	"net"
	"time"
)

type serverConnector struct{}

// NewServerConnector returns the connector for "tcp" endpoints (host:port)
func NewServerConnector() transport.IServerConnector {
	return &serverConnector{}
}

func (c *serverConnector) GetName() string {
	return "tcp"
}

func (c *serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	ln, err := net.Listen("tcp", config.Transport.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("tcp listen on %q: %w", config.Transport.Endpoint, err)
	}
	return ln, nil
}

// UpgradeConnection tunes an accepted connection. Other connection types
// are left untouched.
func (c *serverConnector) UpgradeConnection(conn net.Conn, config common.ServerConfig) error {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	opts := config.Transport.TCPConf

	if err := tc.SetNoDelay(opts.TCPNoDelay); err != nil {
		return fmt.Errorf("nodelay: %w", err)
	}
	if err := transport.ApplySocketBuffers(tc, config.Transport.SocketConf); err != nil {
		return err
	}
	if err := setKeepAlive(tc, opts.TCPKeepAliveSec); err != nil {
		return fmt.Errorf("keepalive: %w", err)
	}
	// negative keeps the default close behaviour
	if opts.TCPLingerSec >= 0 {
		if err := tc.SetLinger(opts.TCPLingerSec); err != nil {
			return fmt.Errorf("linger: %w", err)
		}
	}
	return nil
}

// setKeepAlive sends probes every sec seconds, 0 turns them off
func setKeepAlive(tc *net.TCPConn, sec int) error {
	if sec <= 0 {
		return tc.SetKeepAlive(false)
	}
	if err := tc.SetKeepAlive(true); err != nil {
		return err
	}
	return tc.SetKeepAlivePeriod(time.Duration(sec) * time.Second)
}
