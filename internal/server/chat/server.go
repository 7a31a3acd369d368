package chat

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/dmitrijs2005/fastchat/internal/logging"
	"github.com/dmitrijs2005/fastchat/internal/server/auth"
	"github.com/dmitrijs2005/fastchat/internal/server/registry"
)

// ServerOptions tune per-connection behavior.
type ServerOptions struct {
	MaxLineBytes int
	IdleTimeout  time.Duration
	WriteTimeout time.Duration
	// SendQueueLen bounds each connection's outbound queue.
	SendQueueLen int
}

func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		MaxLineBytes: 8 * 1024,
		IdleTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Second,
		SendQueueLen: 64,
	}
}

// Server accepts TCP connections and runs one Session per connection.
type Server struct {
	address string
	logger  logging.Logger
	auth    *auth.Service
	reg     *registry.Registry
	router  *Router
	opts    ServerOptions

	mu      sync.Mutex
	boundTo net.Addr
}

// Addr reports the bound listener address once Run has started, nil
// before that. Useful when the configured address has port 0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundTo
}

func NewServer(address string, logger logging.Logger, authService *auth.Service, reg *registry.Registry, router *Router, opts ServerOptions) *Server {
	return &Server{
		address: address,
		logger:  logger.With("module", "chat_server"),
		auth:    authService,
		reg:     reg,
		router:  router,
		opts:    opts,
	}
}

// Run listens on the configured address and serves until ctx is
// cancelled. On shutdown the listener closes first, then every live
// session is driven to Closed before Run returns.
func (s *Server) Run(ctx context.Context) error {

	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.boundTo = listener.Addr()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "stopping chat server...")
		_ = listener.Close()
	}()

	s.logger.Info(ctx, "chat server listening", "address", s.address)

	var wg sync.WaitGroup
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.logger.Warn(ctx, "accept failed", "error", err)
			continue
		}

		s.logger.Debug(ctx, "new connection", "addr", conn.RemoteAddr().String())

		client := newClient(conn, s.opts.SendQueueLen, s.opts.WriteTimeout)
		session := NewSession(client, SessionParams{
			Auth:         s.auth,
			Registry:     s.reg,
			Router:       s.router,
			Logger:       s.logger,
			MaxLineBytes: s.opts.MaxLineBytes,
			IdleTimeout:  s.opts.IdleTimeout,
		})

		wg.Add(1)
		go func() {
			defer wg.Done()
			session.Run(ctx)
		}()
	}

	wg.Wait()
	return nil
}
