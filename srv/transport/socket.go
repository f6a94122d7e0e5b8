package transport

import (
	"fmt"
	"github.com/ValentinKolb/lsrv/srv/common"
)

// bufferedConn is implemented by *net.TCPConn and *net.UnixConn
type bufferedConn interface {
	SetReadBuffer(bytes int) error
	SetWriteBuffer(bytes int) error
}

// ApplySocketBuffers sets the kernel buffer sizes of conn. Sizes <= 0 keep
// the operating system default.
func ApplySocketBuffers(conn bufferedConn, conf common.SocketConf) error {
	if conf.WriteBufferSize > 0 {
		if err := conn.SetWriteBuffer(conf.WriteBufferSize); err != nil {
			return fmt.Errorf("write buffer %d: %w", conf.WriteBufferSize, err)
		}
	}
	if conf.ReadBufferSize > 0 {
		if err := conn.SetReadBuffer(conf.ReadBufferSize); err != nil {
			return fmt.Errorf("read buffer %d: %w", conf.ReadBufferSize, err)
		}
	}
	return nil
}
