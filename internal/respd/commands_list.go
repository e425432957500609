package respd

import (
	"strconv"

	"github.com/rkeydb/respd/internal/resp"
)

func (s *Session) cmdPush(args []string, head bool) []byte {
	if len(args) < 2 {
		if head {
			return s.arityError("LPUSH")
		}
		return s.arityError("RPUSH")
	}
	key, values := args[0], args[1:]

	var n int
	var err error
	if head {
		n, err = s.srv.Keyspace.PushHead(key, values...)
	} else {
		n, err = s.srv.Keyspace.PushTail(key, values...)
	}
	if err != nil {
		return s.wrongTypeError()
	}

	s.srv.Blocking.DeliverList(key, func() (string, bool) {
		vals, existed, popErr := s.srv.Keyspace.PopHead(key, 1)
		if popErr != nil || !existed || len(vals) == 0 {
			return "", false
		}
		return vals[0], true
	})

	s.enc.WriteInt(int64(n))
	return s.enc.Bytes()
}

func (s *Session) cmdLRange(args []string) []byte {
	if len(args) != 3 {
		return s.arityError("LRANGE")
	}
	start, err1 := strconv.Atoi(args[1])
	end, err2 := strconv.Atoi(args[2])
	if err1 != nil || err2 != nil {
		s.enc.WriteError("ERR start or end is not an integer")
		return s.enc.Bytes()
	}

	vals, err := s.srv.Keyspace.Range(args[0], start, end)
	if err != nil {
		return s.wrongTypeError()
	}
	s.enc.WriteStringArray(vals)
	return s.enc.Bytes()
}

func (s *Session) cmdLLen(args []string) []byte {
	if len(args) != 1 {
		return s.arityError("LLEN")
	}
	n, err := s.srv.Keyspace.Length(args[0])
	if err != nil {
		return s.wrongTypeError()
	}
	s.enc.WriteInt(int64(n))
	return s.enc.Bytes()
}

// cmdLPop handles both LPOP key (single bulk reply) and LPOP key count
// (array reply, per spec.md §4.2's distinct wire shapes for the two forms).
func (s *Session) cmdLPop(args []string) []byte {
	if len(args) < 1 || len(args) > 2 {
		return s.arityError("LPOP")
	}
	key := args[0]

	if len(args) == 1 {
		vals, existed, err := s.srv.Keyspace.PopHead(key, 1)
		if err != nil {
			return s.wrongTypeError()
		}
		if !existed || len(vals) == 0 {
			s.enc.WriteNullBulk()
			return s.enc.Bytes()
		}
		s.enc.WriteBulkString(vals[0])
		return s.enc.Bytes()
	}

	count, err := strconv.Atoi(args[1])
	if err != nil {
		s.enc.WriteError("ERR value is not an integer or out of range")
		return s.enc.Bytes()
	}
	if count <= 0 {
		s.enc.WriteError("ERR value is out of range, must be positive")
		return s.enc.Bytes()
	}

	vals, existed, lookupErr := s.srv.Keyspace.PopHead(key, count)
	if lookupErr != nil {
		return s.wrongTypeError()
	}
	if !existed {
		s.enc.WriteNullArray()
		return s.enc.Bytes()
	}
	s.enc.WriteStringArray(vals)
	return s.enc.Bytes()
}

// cmdBLPop implements BLPOP key timeout_seconds: a fast-path pop under the
// keyspace mutex, falling back to the blocking registry's FIFO wait.
// blockAllowed is false during EXEC replay, where BLOCK degrades to a single
// non-blocking attempt per spec.md §4.3's transaction-replay rule.
func (s *Session) cmdBLPop(args []string, blockAllowed bool) []byte {
	if len(args) != 2 {
		return s.arityError("BLPOP")
	}
	key := args[0]
	timeoutSecs, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		s.enc.WriteError("ERR timeout is not a float")
		return s.enc.Bytes()
	}

	if reply, ok := s.tryBLPop(key); ok {
		return reply
	}
	if !blockAllowed {
		s.enc.WriteNullArray()
		return s.enc.Bytes()
	}

	// delivered is filled in by the producer's sink, on the producer's own
	// goroutine, before wait fires — see blocking.Registry.DeliverList.
	var delivered []byte
	wait, cancel := s.srv.Blocking.RegisterList(key, func(value string) {
		var e resp.Encoder
		e.WriteArrayHeader(2)
		e.WriteBulkString(key)
		e.WriteBulkString(value)
		delivered = e.Bytes()
	})

	peerGone, stopWatch := s.watchDisconnect()
	defer stopWatch()

	timeout := blockTimeout(timeoutSecs)
	select {
	case <-wait:
		return delivered
	case <-timeout:
		if !cancel() {
			// A producer already claimed this waiter; take the delivered
			// path instead of racing it with a timeout reply.
			<-wait
			return delivered
		}
		s.enc.Reset()
		s.enc.WriteNullArray()
		return s.enc.Bytes()
	case <-peerGone:
		if !cancel() {
			<-wait
		}
		return nil
	case <-s.srv.ctx.Done():
		if !cancel() {
			<-wait
			return delivered
		}
		s.enc.Reset()
		s.enc.WriteNullArray()
		return s.enc.Bytes()
	}
}

func (s *Session) tryBLPop(key string) ([]byte, bool) {
	vals, existed, err := s.srv.Keyspace.PopHead(key, 1)
	if err != nil {
		return s.wrongTypeError(), true
	}
	if !existed || len(vals) == 0 {
		return nil, false
	}
	s.enc.Reset()
	s.enc.WriteArrayHeader(2)
	s.enc.WriteBulkString(key)
	s.enc.WriteBulkString(vals[0])
	return s.enc.Bytes(), true
}
