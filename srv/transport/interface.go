package transport

import (
	"github.com/ValentinKolb/lsrv/srv/common"
	"net"
	"time"
)

// --------------------------------------------------------------------------
// Server side
// --------------------------------------------------------------------------

// IServerConnector opens listeners for one socket family
type IServerConnector interface {
	// Listen creates a listener for the configured endpoint
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName is the transport name used in the configuration
	GetName() string

	// UpgradeConnection applies the configured socket options to an accepted
	// connection before its session starts
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error
}

// --------------------------------------------------------------------------
// Client side
// --------------------------------------------------------------------------

// IClientConnector dials endpoints of one socket family
type IClientConnector interface {
	// Connect establishes a single connection, a zero timeout waits forever
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName must match the name of the server connector it talks to
	GetName() string
}
