package cache

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

// ValkeyConfig holds connection parameters for a Valkey or Redis server.
type ValkeyConfig struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int
	TLS          bool
}

func (c *ValkeyConfig) withDefaults() {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 2 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 500 * time.Millisecond
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 500 * time.Millisecond
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 1
	}
}

// ValkeyProvider speaks the RESP protocol over a fresh connection per
// command. Only GET, SET, DEL and the handshake commands are implemented.
type ValkeyProvider struct {
	cfg ValkeyConfig
}

// NewValkeyProvider validates cfg and pings the server so that bad
// credentials or addresses fail at startup.
func NewValkeyProvider(ctx context.Context, cfg ValkeyConfig) (*ValkeyProvider, error) {
	if cfg.Addr == "" {
		return nil, errors.New("valkey addr is required")
	}
	cfg.withDefaults()
	p := &ValkeyProvider{cfg: cfg}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	r, err := p.do(pingCtx, "PING")
	if err != nil {
		return nil, fmt.Errorf("valkey ping: %w", err)
	}
	if r.kind != '+' || string(r.data) != "PONG" {
		return nil, fmt.Errorf("valkey ping: unexpected reply %q", r.data)
	}
	return p, nil
}

func (p *ValkeyProvider) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := p.do(ctx, "GET", key)
	if err != nil {
		return nil, err
	}
	switch {
	case r.null:
		return nil, ErrCacheMiss
	case r.kind == '$':
		return r.data, nil
	default:
		return nil, fmt.Errorf("valkey GET: unexpected reply type %q", r.kind)
	}
}

func (p *ValkeyProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := []string{key, string(value)}
	if ttl > 0 {
		args = append(args, "PX", strconv.FormatInt(ttl.Milliseconds(), 10))
	}
	r, err := p.do(ctx, "SET", args...)
	if err != nil {
		return err
	}
	if r.kind != '+' || string(r.data) != "OK" {
		return fmt.Errorf("valkey SET: unexpected reply %q", r.data)
	}
	return nil
}

func (p *ValkeyProvider) Del(ctx context.Context, key string) error {
	_, err := p.do(ctx, "DEL", key)
	return err
}

// Close is a no-op; connections are not pooled.
func (p *ValkeyProvider) Close() error { return nil }

type reply struct {
	kind byte
	data []byte
	null bool
}

// do runs one command on a new connection, retrying network timeouts with
// exponential backoff up to MaxRetries attempts.
func (p *ValkeyProvider) do(ctx context.Context, cmd string, args ...string) (reply, error) {
	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return reply{}, err
		}
		r, err := p.once(ctx, cmd, args)
		if err == nil {
			return r, nil
		}
		lastErr = err
		var netErr net.Error
		if !errors.As(err, &netErr) || !netErr.Timeout() {
			break
		}
		select {
		case <-ctx.Done():
			return reply{}, ctx.Err()
		case <-time.After(time.Duration(1<<attempt) * 25 * time.Millisecond):
		}
	}
	return reply{}, lastErr
}

func (p *ValkeyProvider) once(ctx context.Context, cmd string, args []string) (reply, error) {
	conn, err := p.dial(ctx)
	if err != nil {
		return reply{}, err
	}
	defer conn.Close()
	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))

	exchange := func(parts ...string) (reply, error) {
		if err := conn.SetDeadline(time.Now().Add(p.cfg.WriteTimeout + p.cfg.ReadTimeout)); err != nil {
			return reply{}, err
		}
		if err := writeArray(rw.Writer, parts); err != nil {
			return reply{}, err
		}
		return readReply(rw.Reader)
	}

	if p.cfg.Password != "" {
		auth := []string{"AUTH", p.cfg.Password}
		if p.cfg.Username != "" {
			auth = []string{"AUTH", p.cfg.Username, p.cfg.Password}
		}
		if _, err := exchange(auth...); err != nil {
			return reply{}, fmt.Errorf("valkey auth: %w", err)
		}
	}
	if p.cfg.DB > 0 {
		if _, err := exchange("SELECT", strconv.Itoa(p.cfg.DB)); err != nil {
			return reply{}, fmt.Errorf("valkey select: %w", err)
		}
	}
	return exchange(append([]string{cmd}, args...)...)
}

func (p *ValkeyProvider) dial(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: p.cfg.DialTimeout}
	if !p.cfg.TLS {
		return dialer.DialContext(ctx, "tcp", p.cfg.Addr)
	}
	host, _, err := net.SplitHostPort(p.cfg.Addr)
	if err != nil {
		host = p.cfg.Addr
	}
	td := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}}
	return td.DialContext(ctx, "tcp", p.cfg.Addr)
}

func writeArray(w *bufio.Writer, parts []string) error {
	fmt.Fprintf(w, "*%d\r\n", len(parts))
	for _, part := range parts {
		fmt.Fprintf(w, "$%d\r\n%s\r\n", len(part), part)
	}
	return w.Flush()
}

func readReply(r *bufio.Reader) (reply, error) {
	kind, err := r.ReadByte()
	if err != nil {
		return reply{}, err
	}
	line, err := readLine(r)
	if err != nil {
		return reply{}, err
	}
	switch kind {
	case '+', ':':
		return reply{kind: kind, data: line}, nil
	case '-':
		return reply{}, fmt.Errorf("valkey: %s", line)
	case '_':
		return reply{kind: kind, null: true}, nil
	case '$':
		size, err := strconv.Atoi(string(line))
		if err != nil {
			return reply{}, fmt.Errorf("valkey: bad bulk length %q", line)
		}
		if size < 0 {
			return reply{kind: kind, null: true}, nil
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return reply{}, err
		}
		if buf[size] != '\r' || buf[size+1] != '\n' {
			return reply{}, errors.New("valkey: bulk string not CRLF terminated")
		}
		return reply{kind: kind, data: buf[:size]}, nil
	default:
		return reply{}, fmt.Errorf("valkey: unexpected reply prefix %q", kind)
	}
}

func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadSlice('\n')
	if err != nil {
		return nil, err
	}
	n := len(line) - 1
	if n > 0 && line[n-1] == '\r' {
		n--
	}
	return append([]byte(nil), line[:n]...), nil
}
