// Package appmock is an in-process stand-in for the provider side of the
// transport. It accepts client connections, records every frame it receives
// and can push frames to connected clients.
package appmock

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/aevon-lab/fsevents/internal/transport"
)

const pollInterval = 5 * time.Millisecond

// Server is a TCP test double for the provider.
type Server struct {
	ln           net.Listener
	maxFrameSize int

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	messages [][]byte

	wg sync.WaitGroup
}

// Start listens on addr ("127.0.0.1:0" picks a free port) and accepts clients
// in the background.
func Start(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("appmock listen: %w", err)
	}

	s := &Server{
		ln:           ln,
		maxFrameSize: transport.DefaultMaxFrameSize,
		conns:        make(map[net.Conn]struct{}),
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				slog.Warn("[AppMock] Accept failed", "error", err)
			}
			return
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.readLoop(conn)
	}
}

func (s *Server) readLoop(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	r := bufio.NewReader(conn)
	for {
		frame, err := transport.ReadFrame(r, s.maxFrameSize)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.messages = append(s.messages, frame)
		s.mu.Unlock()
	}
}

// Send writes msg as one frame to every connected client.
func (s *Server) Send(msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.conns) == 0 {
		return errors.New("appmock: no connected clients")
	}
	for conn := range s.conns {
		if err := transport.WriteFrame(conn, msg, s.maxFrameSize); err != nil {
			return fmt.Errorf("appmock send: %w", err)
		}
	}
	return nil
}

// Connections returns the number of currently connected clients.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// WaitForConnections blocks until at least n clients are connected.
func (s *Server) WaitForConnections(n int, timeout time.Duration) error {
	return s.poll(timeout, func() bool { return s.Connections() >= n },
		func() string { return fmt.Sprintf("want %d connections, have %d", n, s.Connections()) })
}

// MessageCount returns how many received frames equal pattern.
func (s *Server) MessageCount(pattern []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, m := range s.messages {
		if bytes.Equal(m, pattern) {
			n++
		}
	}
	return n
}

// WaitForMessages blocks until at least count received frames equal pattern.
func (s *Server) WaitForMessages(pattern []byte, count int, timeout time.Duration) error {
	return s.poll(timeout, func() bool { return s.MessageCount(pattern) >= count },
		func() string { return fmt.Sprintf("want %d matching messages, have %d", count, s.MessageCount(pattern)) })
}

// Messages returns a copy of every frame received since the last Reset.
func (s *Server) Messages() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]byte, len(s.messages))
	copy(out, s.messages)
	return out
}

// Reset forgets received frames. Connections are kept.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// Close stops accepting, disconnects all clients and waits for the
// background goroutines.
func (s *Server) Close() error {
	err := s.ln.Close()

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

func (s *Server) poll(timeout time.Duration, done func() bool, describe func() string) error {
	deadline := time.Now().Add(timeout)
	for {
		if done() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("appmock: timed out after %s: %s", timeout, describe())
		}
		time.Sleep(pollInterval)
	}
}
