// Package chassis wraps the API handler in an HTTP server.
//
// With TLS enabled it runs two listeners on the same port:
//   - TCP -> HTTP/1.1 + HTTP/2
//   - UDP -> QUIC, serving HTTP/3 with the same handler
//
// TCP responses carry an Alt-Svc header advertising HTTP/3, so clients that
// support it can upgrade. In development mode a self-signed ECDSA P-256 cert
// is generated automatically; in production, supply cert/key files via
// config. Without TLS it serves plain HTTP/1.1 only, which suits a reverse
// proxy or a local dashboard.
package chassis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
)

// Server is the HTTP chassis.
type Server struct {
	addr      string
	logger    *slog.Logger
	tlsCfg    *tls.Config
	handler   http.Handler
	tcpServer *http.Server
	h3Server  *http3.Server
	quicLn    *quic.Listener
	bound     string
	mu        sync.Mutex
}

// Config holds configuration for the chassis server.
type Config struct {
	Addr     string // Listen address (e.g. ":8421"), TCP and UDP
	TLS      bool   // serve HTTPS and HTTP/3
	CertFile string // production cert path; empty = self-signed
	KeyFile  string // production key path
	Handler  http.Handler
	Logger   *slog.Logger
}

func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var tlsCfg *tls.Config
	if cfg.TLS {
		var err error
		if cfg.CertFile != "" && cfg.KeyFile != "" {
			tlsCfg, err = ProductionTLSConfig(cfg.CertFile, cfg.KeyFile)
			if err != nil {
				return nil, fmt.Errorf("load TLS cert: %w", err)
			}
			cfg.Logger.Info("TLS: production certs loaded")
		} else {
			tlsCfg, err = DevelopmentTLSConfig()
			if err != nil {
				return nil, fmt.Errorf("generate dev TLS: %w", err)
			}
			cfg.Logger.Info("TLS: self-signed dev cert generated")
		}
	}

	return &Server{
		addr:    cfg.Addr,
		logger:  cfg.Logger,
		tlsCfg:  tlsCfg,
		handler: cfg.Handler,
	}, nil
}

// Addr returns the bound TCP address once Start has listened, or "".
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}

// securityHeaders wraps an http.Handler and adds standard security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// altSvcMiddleware wraps an http.Handler and adds an Alt-Svc header
// advertising HTTP/3 on the port of addr.
func altSvcMiddleware(addr string, next http.Handler) http.Handler {
	_, port, _ := net.SplitHostPort(addr)
	if port == "" {
		port = "8421"
	}
	altSvc := fmt.Sprintf(`h3=":%s"; ma=86400`, port)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Alt-Svc", altSvc)
		next.ServeHTTP(w, r)
	})
}

// Start listens and serves until ctx is cancelled or a listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.bound = ln.Addr().String()

	handler := securityHeaders(s.handler)
	proto := "HTTP/1.1"
	var tcpTLS *tls.Config
	if s.tlsCfg != nil {
		// UDP takes the port TCP got, so ":0" works in tests.
		host, _, _ := net.SplitHostPort(s.addr)
		_, port, _ := net.SplitHostPort(s.bound)

		h3TLS := s.tlsCfg.Clone()
		h3TLS.NextProtos = []string{http3.NextProtoH3}
		qln, err := quic.ListenAddr(net.JoinHostPort(host, port), h3TLS, &quic.Config{
			MaxIdleTimeout:  30 * time.Second,
			KeepAlivePeriod: 10 * time.Second,
		})
		if err != nil {
			ln.Close()
			s.mu.Unlock()
			return fmt.Errorf("QUIC listen: %w", err)
		}
		s.quicLn = qln
		s.h3Server = &http3.Server{Handler: handler}

		handler = securityHeaders(altSvcMiddleware(s.bound, s.handler))
		tcpTLS = s.tlsCfg.Clone()
		tcpTLS.NextProtos = []string{"h2", "http/1.1"}
		ln = tls.NewListener(ln, tcpTLS)
		proto = "HTTPS (HTTP/1.1+HTTP/2) + HTTP/3"
	}
	s.tcpServer = &http.Server{
		Handler:           handler,
		TLSConfig:         tcpTLS,
		ReadHeaderTimeout: 10 * time.Second,
	}
	tcpServer, qln := s.tcpServer, s.quicLn
	s.mu.Unlock()

	s.logger.Info("chassis started", "addr", s.bound, "proto", proto)

	errCh := make(chan error, 2)
	go func() {
		if err := tcpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("TCP: %w", err)
		}
	}()
	if qln != nil {
		go s.acceptQUIC(ctx, qln, errCh)
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// acceptQUIC hands every h3 connection to the HTTP/3 server.
func (s *Server) acceptQUIC(ctx context.Context, ln *quic.Listener, errCh chan<- error) {
	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, quic.ErrServerClosed) {
				return
			}
			errCh <- fmt.Errorf("QUIC accept: %w", err)
			return
		}

		alpn := conn.ConnectionState().TLS.NegotiatedProtocol
		if alpn != http3.NextProtoH3 {
			s.logger.Warn("unknown ALPN, closing", "alpn", alpn, "remote", conn.RemoteAddr())
			conn.CloseWithError(quic.ApplicationErrorCode(0x11), "unsupported ALPN: "+alpn)
			continue
		}
		go func() {
			if err := s.h3Server.ServeQUICConn(conn); err != nil {
				s.logger.Debug("HTTP/3 conn done", "remote", conn.RemoteAddr(), "error", err)
			}
		}()
	}
}

// Stop gracefully shuts down the TCP server and closes the QUIC listener.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("chassis stopping")

	var firstErr error
	if s.tcpServer != nil {
		if err := s.tcpServer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.quicLn != nil {
		if err := s.quicLn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.h3Server != nil {
		if err := s.h3Server.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.logger.Info("chassis stopped")
	return firstErr
}
