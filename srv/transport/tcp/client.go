package tcp

import (
	"github.com/ValentinKolb/lsrv/srv/transport"
	"net"
	"time"
)

// clientConnector implements the IClientConnector interface for TCP sockets
type clientConnector struct{}

// NewClientConnector returns the TCP client connector
func NewClientConnector() transport.IClientConnector {
	return &clientConnector{}
}

func (c *clientConnector) GetName() string {
	return "tcp"
}

func (c *clientConnector) Connect(endpoint string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", endpoint, timeout)
}
