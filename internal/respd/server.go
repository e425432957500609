// Package respd implements the command dispatcher and connection handling
// that ties every other internal package together into a running RESP
// server: the Session state machine, and the central execute(command, args,
// client_ctx) → reply entry point shared by the live connection loop and by
// MULTI/EXEC replay.
//
// Grounded in the teacher's server.go: one accept loop, one goroutine per
// connection, a sync.WaitGroup tracking live connections, and
// signal.Notify-driven graceful shutdown — generalized from the teacher's
// bare net.Listener plus sync.Map pair to the full engine set (store,
// streams/zset via store, blocking, pubsub, txn).
package respd

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/rkeydb/respd/internal/blocking"
	"github.com/rkeydb/respd/internal/pubsub"
	"github.com/rkeydb/respd/internal/rdb"
	"github.com/rkeydb/respd/internal/store"
)

// Config holds the server's startup configuration, populated from CLI
// flags by cmd/respd.
type Config struct {
	Port        int
	RdbDir      string
	RdbFilename string
	ReplicaOf   string // "HOST PORT", stored but never dialed; see spec Non-goals
}

// Server is the top-level running instance: one keyspace, one blocking
// registry, one pub/sub registry, shared by every connection.
type Server struct {
	cfg Config
	log *logrus.Logger

	Keyspace *store.Store
	Blocking *blocking.Registry
	PubSub   *pubsub.Registry

	listener net.Listener
	wg       sync.WaitGroup
	quit     chan os.Signal
	ctx      context.Context
	cancel   context.CancelFunc

	nextClientID atomic.Uint64
}

// New constructs a Server and loads its RDB snapshot, if configured. The
// returned Server is not yet listening; call ListenAndServe.
func New(cfg Config, log *logrus.Logger) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		log:      log,
		Keyspace: store.New(),
		Blocking: blocking.New(),
		PubSub:   pubsub.New(),
		quit:     make(chan os.Signal, 1),
		ctx:      ctx,
		cancel:   cancel,
	}

	if err := rdb.Load(cfg.RdbDir, cfg.RdbFilename, s.Keyspace, log.WithField("component", "rdb")); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// ListenAndServe binds the configured port, accepts connections until a
// shutdown signal arrives, then waits for every in-flight connection to
// finish before returning.
func (s *Server) ListenAndServe() error {
	addr := "0.0.0.0:" + strconv.Itoa(s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener
	defer listener.Close()

	go s.acceptLoop()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	<-s.quit
	s.log.Info("shutting down")
	s.cancel()
	listener.Close()
	s.wg.Wait()
	s.log.Info("shutdown complete")
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return // expected: listener closed during shutdown
			default:
				s.log.WithError(err).Error("accept failed")
				return
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) newClientID() string {
	return "c" + strconv.FormatUint(s.nextClientID.Add(1), 10)
}
