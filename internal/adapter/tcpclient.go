package adapter

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/edgehunter/kernel/internal/config"
	"github.com/edgehunter/kernel/internal/telemetry/logging"
)

// dialTimeout bounds the initial TCP handshake; the broker process is
// expected to be local or on a low-latency LAN link.
const dialTimeout = 5 * time.Second

// TCPClient is the production Client: a plain TCP session to the broker's
// gateway, framed as 4-byte big-endian length prefix + payload (the same
// length-prefixed framing IB's own API uses). No IB API client library
// appears anywhere in the example pack, so this talks the wire protocol
// directly instead of wrapping one.
type TCPClient struct {
	log logging.Logger

	mu        sync.Mutex
	conn      net.Conn
	connected bool
}

// NewTCPClient constructs a Client with no active connection.
func NewTCPClient(log logging.Logger) *TCPClient {
	return &TCPClient{log: log}
}

func (c *TCPClient) Connect(ctx context.Context, host string, port, clientID int) error {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return fmt.Errorf("adapter: tcp dial %s:%d: %w", host, port, err)
	}
	if err := c.handshake(conn, clientID); err != nil {
		_ = conn.Close()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	return nil
}

// handshake sends the client-id start message and reads the single
// length-prefixed acknowledgement the gateway replies with.
func (c *TCPClient) handshake(conn net.Conn, clientID int) error {
	payload := []byte(fmt.Sprintf("startApi\x00%d\x00", clientID))
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := conn.Write(header[:]); err != nil {
		return fmt.Errorf("adapter: handshake write header: %w", err)
	}
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("adapter: handshake write payload: %w", err)
	}

	r := bufio.NewReader(conn)
	if _, err := readFrame(r); err != nil {
		return fmt.Errorf("adapter: handshake read ack: %w", err)
	}
	return nil
}

func readFrame(r *bufio.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := r.Read(header[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(header[:])
	buf := make([]byte, n)
	if n > 0 {
		if _, err := r.Read(buf); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func (c *TCPClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *TCPClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.connected = false
}

// RequestContractDetails and RequestMarketData are stubbed against the real
// gateway protocol: a full implementation would frame and send the
// corresponding IB API request messages and correlate the async response by
// reqID, which needs the broker response loop this minimal transport does
// not yet run. They report a qualification failure rather than blocking
// forever. The IBKR adapter requests contract details once per new
// connection, so it emits NO_CONTRACT and then stays connected without a
// con_id; the request is not repeated while the session stays up.
func (c *TCPClient) RequestContractDetails(ctx context.Context, reqID int, contract config.IBKRContract) (int64, error) {
	return 0, fmt.Errorf("adapter: live contract qualification not wired to a response reader yet")
}

func (c *TCPClient) RequestMarketData(ctx context.Context, reqID int, conID int64) error {
	return fmt.Errorf("adapter: live market data subscription not wired to a response reader yet")
}
