package respd

import (
	"errors"
	"strconv"
	"strings"

	"github.com/rkeydb/respd/internal/store"
	"github.com/rkeydb/respd/internal/streams"
)

// cmdXAdd implements XADD key id field value [field value ...].
func (s *Session) cmdXAdd(args []string) []byte {
	if len(args) < 4 || len(args)%2 != 0 {
		return s.arityError("XADD")
	}
	key, idArg := args[0], args[1]
	fieldArgs := args[2:]

	fields := make([]streams.FieldValue, 0, len(fieldArgs)/2)
	for i := 0; i < len(fieldArgs); i += 2 {
		fields = append(fields, streams.FieldValue{Field: fieldArgs[i], Value: fieldArgs[i+1]})
	}

	var accepted streams.ID
	err := s.srv.Keyspace.WithStream(key, func(st *streams.Stream) error {
		nowMs := uint64(s.srv.Keyspace.NowMs())
		id, parseErr := streams.ParseExplicitOrWildcard(idArg, st.Last(), nowMs)
		if parseErr != nil {
			return parseErr
		}
		id, appendErr := st.Append(id, fields)
		if appendErr != nil {
			return appendErr
		}
		accepted = id
		return nil
	})
	if errors.Is(err, store.ErrWrongType) {
		return s.wrongTypeError()
	}
	if err != nil {
		s.enc.WriteError("ERR " + err.Error())
		return s.enc.Bytes()
	}

	s.srv.Blocking.NotifyStream(key)

	s.enc.WriteBulkString(accepted.String())
	return s.enc.Bytes()
}

// cmdXRange implements XRANGE key start end.
func (s *Session) cmdXRange(args []string) []byte {
	if len(args) != 3 {
		return s.arityError("XRANGE")
	}
	from, err1 := streams.ParseRangeBound(args[1], true)
	to, err2 := streams.ParseRangeBound(args[2], false)
	if err1 != nil || err2 != nil {
		s.enc.WriteError("ERR invalid stream ID")
		return s.enc.Bytes()
	}

	var entries []streams.Entry
	_, err := s.srv.Keyspace.PeekStream(args[0], func(st *streams.Stream) {
		entries = st.Range(from, to)
	})
	if err != nil {
		return s.wrongTypeError()
	}

	s.writeStreamEntries(entries)
	return s.enc.Bytes()
}

// cmdXRead implements XREAD [BLOCK ms] STREAMS key [key ...] id [id ...].
// blockAllowed is false during EXEC replay, where BLOCK degrades to a single
// non-blocking attempt per spec.md §4.3.
func (s *Session) cmdXRead(args []string, blockAllowed bool) []byte {
	hasBlock := false
	var blockMs int64
	i := 0
	if len(args) >= 2 && strings.ToUpper(args[0]) == "BLOCK" {
		ms, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			s.enc.WriteError("ERR timeout is not an integer or out of range")
			return s.enc.Bytes()
		}
		hasBlock = true
		blockMs = ms
		i = 2
	}
	if i >= len(args) || strings.ToUpper(args[i]) != "STREAMS" {
		return s.syntaxError()
	}
	i++

	rest := args[i:]
	if len(rest) == 0 || len(rest)%2 != 0 {
		return s.syntaxError()
	}
	n := len(rest) / 2
	keys := rest[:n]
	idArgs := rest[n:]

	froms := make([]streams.ID, n)
	for j, idArg := range idArgs {
		if idArg == "$" {
			_, err := s.srv.Keyspace.PeekStream(keys[j], func(st *streams.Stream) {
				froms[j] = st.Last()
			})
			if err != nil {
				return s.wrongTypeError()
			}
			continue
		}
		id, err := streams.ParseRangeBound(idArg, true)
		if err != nil {
			s.enc.WriteError("ERR invalid stream ID")
			return s.enc.Bytes()
		}
		froms[j] = id
	}

	reply, ok, err := s.tryXRead(keys, froms)
	if err != nil {
		return s.wrongTypeError()
	}
	if ok {
		return reply
	}

	if !hasBlock || !blockAllowed {
		s.enc.Reset()
		s.enc.WriteNullArray()
		return s.enc.Bytes()
	}

	wait, cancel := s.srv.Blocking.RegisterStreams(keys)
	defer func() { cancel() }()

	peerGone, stopWatch := s.watchDisconnect()
	defer stopWatch()

	timeout := blockTimeoutMs(blockMs)
	for {
		select {
		case <-wait:
			reply, ok, err := s.tryXRead(keys, froms)
			if err != nil {
				return s.wrongTypeError()
			}
			if ok {
				return reply
			}
			w2, cancel2 := s.srv.Blocking.RegisterStreams(keys)
			cancel()
			wait, cancel = w2, cancel2
			continue
		case <-timeout:
			s.enc.Reset()
			s.enc.WriteNullArray()
			return s.enc.Bytes()
		case <-peerGone:
			return nil
		case <-s.srv.ctx.Done():
			s.enc.Reset()
			s.enc.WriteNullArray()
			return s.enc.Bytes()
		}
	}
}

// tryXRead performs one non-blocking attempt across every watched key,
// returning ok=false when nothing qualifies yet (caller decides whether to
// register and wait).
func (s *Session) tryXRead(keys []string, froms []streams.ID) (reply []byte, ok bool, err error) {
	type perKey struct {
		key     string
		entries []streams.Entry
	}
	var results []perKey

	for idx, key := range keys {
		var entries []streams.Entry
		_, peekErr := s.srv.Keyspace.PeekStream(key, func(st *streams.Stream) {
			entries = st.After(froms[idx])
		})
		if peekErr != nil {
			return nil, false, peekErr
		}
		if len(entries) > 0 {
			results = append(results, perKey{key: key, entries: entries})
		}
	}
	if len(results) == 0 {
		return nil, false, nil
	}

	s.enc.Reset()
	s.enc.WriteArrayHeader(len(results))
	for _, r := range results {
		s.enc.WriteArrayHeader(2)
		s.enc.WriteBulkString(r.key)
		s.writeStreamEntries(r.entries)
	}
	return s.enc.Bytes(), true, nil
}

func (s *Session) writeStreamEntries(entries []streams.Entry) {
	s.enc.WriteArrayHeader(len(entries))
	for _, e := range entries {
		s.enc.WriteArrayHeader(2)
		s.enc.WriteBulkString(e.Key.String())
		s.enc.WriteArrayHeader(len(e.Val) * 2)
		for _, fv := range e.Val {
			s.enc.WriteBulkString(fv.Field)
			s.enc.WriteBulkString(fv.Value)
		}
	}
}
