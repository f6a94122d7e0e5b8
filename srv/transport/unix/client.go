package unix

import (
	"github.com/ValentinKolb/lsrv/srv/transport"
	"net"
	"time"
)

// clientConnector implements the IClientConnector interface for Unix sockets
type clientConnector struct{}

// NewClientConnector returns the Unix socket client connector
func NewClientConnector() transport.IClientConnector {
	return &clientConnector{}
}

func (c *clientConnector) GetName() string {
	return "unix"
}

func (c *clientConnector) Connect(endpoint string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", endpoint, timeout)
}
