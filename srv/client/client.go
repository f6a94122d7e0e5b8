package client

import (
	"bufio"
	"errors"
	"fmt"
	"github.com/ValentinKolb/lsrv/srv/common"
	"github.com/ValentinKolb/lsrv/srv/transport"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

var Logger = logger.GetLogger("client")

// ErrMultiline is returned when a request line contains a newline
var ErrMultiline = errors.New("request must be a single line")

// Client speaks the line protocol over one connection: write one line,
// read one line
type Client struct {
	config common.ClientConfig
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex // one request at a time
}

// Dial connects to the configured endpoint using the given connector
func Dial(config common.ClientConfig, connector transport.IClientConnector) (*Client, error) {
	conn, err := connector.Connect(config.Endpoint, config.Timeout())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s://%s: %w", connector.GetName(), config.Endpoint, err)
	}
	Logger.Debugf("connected to %s://%s", connector.GetName(), config.Endpoint)

	return &Client{
		config: config,
		conn:   conn,
		reader: bufio.NewReader(conn),
	}, nil
}

// Send writes one request line and returns the reply line
func (c *Client) Send(line string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writeLine(line); err != nil {
		return "", err
	}
	return c.readLine()
}

// WriteLine writes one request line without waiting for the reply
func (c *Client) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLine(line)
}

// ReadLine reads the next line sent by the server, e.g. a reminder message
func (c *Client) ReadLine() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readLine()
}

// ReadLineTimeout reads the next line, waiting at most d
func (c *Client) ReadLineTimeout(d time.Duration) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetReadDeadline(time.Now().Add(d)); err != nil {
		return "", err
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) writeLine(line string) error {
	if strings.ContainsAny(line, "\r\n") {
		return ErrMultiline
	}
	if timeout := c.config.Timeout(); timeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	if _, err := io.WriteString(c.conn, line+"\n"); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return nil
}

func (c *Client) readLine() (string, error) {
	if timeout := c.config.Timeout(); timeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	} else {
		_ = c.conn.SetReadDeadline(time.Time{})
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read reply: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
