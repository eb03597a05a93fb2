package ws

import (
	"context"
	"errors"
	"net"
	"net/http"

	fx "github.com/robotalks/espnow.go/pkg/framework"
)

// DefaultPath is the HTTP path of the hub endpoint.
const DefaultPath = "/air"

// Server serves a Hub over HTTP until its context is done.
type Server struct {
	Hub      *Hub
	Listener net.Listener
}

// Listen creates a Server listening on the TCP address.
func Listen(hub *Hub, addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{Hub: hub, Listener: ln}, nil
}

// URL is the hub endpoint for Dial.
func (s *Server) URL() string {
	return "ws://" + s.Listener.Addr().String() + DefaultPath
}

// Name implements Named.
func (s *Server) Name() string {
	return "airhub"
}

// Run implements Runnable. On exit the listener and all radio
// connections are closed.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(DefaultPath, s.Hub)
	srv := &http.Server{Handler: mux}
	err := fx.RunWithContextCloser(ctx, &serverCloser{srv: srv, hub: s.Hub}, func() error {
		return srv.Serve(s.Listener)
	})
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// http.Server.Close leaves hijacked connections open.
type serverCloser struct {
	srv *http.Server
	hub *Hub
}

func (c *serverCloser) Close() error {
	err := c.srv.Close()
	c.hub.Close()
	return err
}
