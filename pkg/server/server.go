package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/supportchat/pkg/tickets"
	"github.com/go-go-golems/supportchat/pkg/ticketstream"
)

const shutdownTimeout = 30 * time.Second

// Server drives the predictor HTTP server and the ticket consumer that moves
// filed tickets from the transport into the store.
type Server struct {
	httpSrv   *http.Server
	transport *ticketstream.Transport
	store     tickets.Store
	group     string
}

type Option func(*Server)

// WithConsumerGroup makes Run create the Redis consumer group before
// consuming.
func WithConsumerGroup(group string) Option {
	return func(s *Server) { s.group = group }
}

// New builds a server listening on addr. transport and store are owned by the
// server from here on and closed when Run returns.
func New(addr string, r Responder, transport *ticketstream.Transport, store tickets.Store, opts ...Option) (*Server, error) {
	if r == nil {
		return nil, errors.New("responder is nil")
	}
	if transport == nil {
		return nil, errors.New("ticket transport is nil")
	}
	if store == nil {
		return nil, errors.New("ticket store is nil")
	}
	s := &Server{
		httpSrv: &http.Server{
			Addr:              addr,
			Handler:           NewMux(r, store, log.Logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
		transport: transport,
		store:     store,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down in order: the HTTP server first, so in-flight requests can still file
// tickets, then the transport, and finally the consumer once it has drained
// what was filed.
func (s *Server) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("ctx is nil")
	}
	srvCtx, srvCancel := context.WithCancel(ctx)
	defer srvCancel()

	if s.group != "" {
		if err := s.transport.EnsureGroup(srvCtx, s.group); err != nil {
			return err
		}
	}

	// The consumer outlives ctx; it stops when the transport closes its
	// channel or the shutdown grace period runs out.
	consumeCtx, stopConsume := context.WithCancel(context.WithoutCancel(ctx))
	defer stopConsume()

	// Subscribe before serving so no filed ticket goes unheard.
	msgs, err := s.transport.Subscribe(consumeCtx)
	if err != nil {
		return err
	}

	eg := errgroup.Group{}
	consumed := make(chan struct{})

	eg.Go(func() error {
		defer close(consumed)
		return ticketstream.StoreTickets(consumeCtx, msgs, s.store)
	})

	eg.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			log.Info().Msg("received interrupt signal, shutting down gracefully...")
		case <-srvCtx.Done():
		}
		srvCancel()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		var shutdownErr error
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
			shutdownErr = err
		}
		if err := s.transport.Close(); err != nil {
			log.Error().Err(err).Msg("ticket transport close error")
		}
		select {
		case <-consumed:
		case <-shutdownCtx.Done():
			log.Warn().Msg("ticket consumer did not drain before the shutdown deadline")
		}
		stopConsume()
		log.Info().Msg("server shutdown complete")
		return shutdownErr
	})

	eg.Go(func() error {
		log.Info().Str("addr", s.httpSrv.Addr).Msg("starting predictor service")
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server listen error")
			srvCancel()
			return err
		}
		return nil
	})

	err = eg.Wait()
	if cerr := s.store.Close(); cerr != nil {
		log.Error().Err(cerr).Msg("ticket store close error")
	}
	return err
}
