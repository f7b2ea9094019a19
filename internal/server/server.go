// Package server runs the dashboard's listeners: a TCP address and,
// optionally, a unix socket so same-machine agents can skip the network
// stack entirely.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"
)

const readHeaderTimeout = 10 * time.Second

// Server serves one handler over up to two listeners. Shutdown drains
// both and removes the socket file.
type Server struct {
	tcp        *http.Server
	unix       *http.Server
	unixLn     net.Listener
	socketPath string
}

func New(addr, socketPath string, handler http.Handler) (*Server, error) {
	if addr == "" {
		return nil, errors.New("listen addr required")
	}
	if handler == nil {
		handler = http.NotFoundHandler()
	}

	s := &Server{
		tcp: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		socketPath: socketPath,
	}
	if socketPath != "" {
		ln, err := openSocket(socketPath)
		if err != nil {
			return nil, err
		}
		s.unixLn = ln
		s.unix = &http.Server{Handler: handler, ReadHeaderTimeout: readHeaderTimeout}
	}
	return s, nil
}

// openSocket binds a unix listener, clearing any stale file a crashed
// run left behind. Group read/write so sibling agents can connect.
func openSocket(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("unix listen: %w", err)
	}
	if err := os.Chmod(path, 0o660); err != nil {
		ln.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}
	return ln, nil
}

// Start blocks serving the TCP listener. The unix listener, when
// configured, serves on its own goroutine until Shutdown.
func (s *Server) Start() error {
	if s.unix != nil {
		go s.unix.Serve(s.unixLn)
	}
	return s.tcp.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.unix != nil {
		if err := s.unix.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		os.Remove(s.socketPath)
	}
	if err := s.tcp.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
