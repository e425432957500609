package respd

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rkeydb/respd/internal/resp"
	"github.com/rkeydb/respd/internal/txn"
)

// disconnectPollInterval bounds how quickly watchDisconnect notices a
// closed connection, and how long stop() may leave its peek read in
// flight.
const disconnectPollInterval = 200 * time.Millisecond

// Session holds one connection's per-client state: its transaction
// controller, pub/sub subscribed-mode flag, and the encoder it writes
// replies through. Its state is only touched by the connection's own
// goroutine; the exceptions use only conn, which is safe for concurrent use:
// deliverMessage, run from publishing connections' goroutines, and the
// reader goroutine started by watchDisconnect. Session carries no locking of
// its own.
type Session struct {
	srv  *Server
	conn net.Conn
	id   string
	log  *logrus.Entry

	enc resp.Encoder
	txn *txn.Controller

	subscribedMode bool
}

// handleConn runs one connection's full lifecycle: parse, dispatch, reply,
// until the peer disconnects, a fatal frame error occurs, or QUIT closes it.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	sess := &Session{
		srv:  s,
		conn: conn,
		id:   s.newClientID(),
		txn:  txn.New(),
	}
	sess.log = s.log.WithFields(logrus.Fields{
		"remote_addr": conn.RemoteAddr().String(),
		"client_id":   sess.id,
	})
	// BLPOP/XREAD BLOCK register and cancel their own waiters within the call
	// that runs them, so the only registry state to scrub on disconnect is
	// this client's pub/sub subscriptions.
	defer s.PubSub.UnsubscribeAll(sess.id)

	reader := bufio.NewReader(conn)
	for {
		args, err := resp.ReadCommand(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			var malformed *resp.ErrMalformed
			if errors.As(err, &malformed) {
				sess.log.WithError(err).Warn("malformed RESP frame, closing connection")
				return
			}
			sess.log.WithError(err).Warn("connection read error")
			return
		}
		if len(args) == 0 {
			continue
		}

		name := strings.ToUpper(args[0])
		reply, shouldClose := sess.dispatch(name, args[1:])
		if reply != nil {
			if _, err := conn.Write(reply); err != nil {
				sess.log.WithError(err).Warn("write failed")
				return
			}
		}
		if shouldClose {
			return
		}
	}
}

// watchDisconnect detects the peer closing the connection while this
// session's single goroutine is parked inside a blocking command's select
// (BLPOP, XREAD BLOCK) instead of its normal read loop — the one-goroutine-
// per-connection model means nothing else is watching the socket at that
// moment. It polls with a short read deadline so its peek read never stays
// in flight long past stop() being called. A nil conn (tests that drive
// dispatch directly, without a real net.Conn) disables the watch; the
// returned channel then just never fires.
func (s *Session) watchDisconnect() (closed <-chan struct{}, stop func()) {
	if s.conn == nil {
		return nil, func() {}
	}
	done := make(chan struct{})
	stopCh := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		buf := make([]byte, 1)
		for {
			select {
			case <-stopCh:
				return
			default:
			}
			_ = s.conn.SetReadDeadline(time.Now().Add(disconnectPollInterval))
			if _, err := s.conn.Read(buf); err != nil {
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					continue
				}
				close(done)
				return
			}
			// Any byte read here was meant for the main command loop, not
			// this watcher; a blocking command is this connection's only
			// suspension point, so treat unexpected input as the client
			// having moved on rather than try to hand it back.
			close(done)
			return
		}
	}()
	return done, func() {
		close(stopCh)
		_ = s.conn.SetReadDeadline(time.Now())
		<-exited
		_ = s.conn.SetReadDeadline(time.Time{})
	}
}
