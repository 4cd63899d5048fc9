package cache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNoopProviderAlwaysMisses(t *testing.T) {
	var p NoopProvider
	ctx := context.Background()
	if err := p.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := p.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestMemoryProviderExpiry(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewMemoryProvider()
	p.now = func() time.Time { return clock }
	ctx := context.Background()

	value := []byte("clusters")
	if err := p.Set(ctx, "k", value, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	value[0] = 'X'

	got, err := p.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "clusters" {
		t.Fatalf("stored value aliased caller buffer: %q", got)
	}

	clock = clock.Add(time.Minute)
	if _, err := p.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expiry, got %v", err)
	}
	if len(p.entries) != 0 {
		t.Fatalf("expired entry was not evicted")
	}
}

func TestMemoryProviderDelAndClose(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()
	_ = p.Set(ctx, "a", []byte("1"), 0)
	_ = p.Set(ctx, "b", []byte("2"), 0)

	_ = p.Del(ctx, "a")
	if _, err := p.Get(ctx, "a"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after del, got %v", err)
	}
	_ = p.Close()
	if _, err := p.Get(ctx, "b"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after close, got %v", err)
	}
}

// fakeValkey answers PING, AUTH, GET, SET and DEL from an in-memory map.
type fakeValkey struct {
	mu   sync.Mutex
	data map[string]string
	ln   net.Listener
}

func startFakeValkey(t *testing.T) *fakeValkey {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("listen: %v", err)
	}
	f := &fakeValkey{data: map[string]string{}, ln: ln}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go f.serve(conn)
		}
	}()
	return f
}

func (f *fakeValkey) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		var out string
		f.mu.Lock()
		switch strings.ToUpper(args[0]) {
		case "PING":
			out = "+PONG\r\n"
		case "AUTH":
			if args[len(args)-1] == "secret" {
				out = "+OK\r\n"
			} else {
				out = "-WRONGPASS invalid password\r\n"
			}
		case "SET":
			f.data[args[1]] = args[2]
			out = "+OK\r\n"
		case "GET":
			if v, ok := f.data[args[1]]; ok {
				out = fmt.Sprintf("$%d\r\n%s\r\n", len(v), v)
			} else {
				out = "$-1\r\n"
			}
		case "DEL":
			delete(f.data, args[1])
			out = ":1\r\n"
		default:
			out = "-ERR unknown command\r\n"
		}
		f.mu.Unlock()
		if _, err := io.WriteString(conn, out); err != nil {
			return
		}
	}
}

func readCommand(r *bufio.Reader) ([]string, error) {
	header, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(header, "*")))
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		sizeLine, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(sizeLine, "$")))
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}
	return args, nil
}

func TestValkeyProviderRoundTrip(t *testing.T) {
	f := startFakeValkey(t)
	ctx := context.Background()

	p, err := NewValkeyProvider(ctx, ValkeyConfig{Addr: f.ln.Addr().String(), Password: "secret"})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, err := p.Get(ctx, "missing"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	payload := "{\"1\":{\"ids\":[\"a\"]}}\r\nwith crlf"
	if err := p.Set(ctx, "clusters", []byte(payload), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := p.Get(ctx, "clusters")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != payload {
		t.Fatalf("unexpected payload %q", got)
	}
	if err := p.Del(ctx, "clusters"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := p.Get(ctx, "clusters"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after del, got %v", err)
	}
}

func TestValkeyProviderRejectsBadPassword(t *testing.T) {
	f := startFakeValkey(t)
	_, err := NewValkeyProvider(context.Background(), ValkeyConfig{Addr: f.ln.Addr().String(), Password: "nope"})
	if err == nil || !strings.Contains(err.Error(), "WRONGPASS") {
		t.Fatalf("expected auth failure, got %v", err)
	}
}

func TestValkeyProviderRequiresAddr(t *testing.T) {
	if _, err := NewValkeyProvider(context.Background(), ValkeyConfig{}); err == nil {
		t.Fatal("expected error for empty addr")
	}
}
