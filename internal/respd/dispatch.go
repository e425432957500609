package respd

import (
	"strconv"
	"strings"

	"github.com/rkeydb/respd/internal/resp"
	"github.com/rkeydb/respd/internal/store"
)

// allowedWhileSubscribed is the command surface spec.md §3 permits a client
// in subscribed mode to use; everything else is rejected.
var allowedWhileSubscribed = map[string]bool{
	"SUBSCRIBE":    true,
	"UNSUBSCRIBE":  true,
	"PSUBSCRIBE":   true,
	"PUNSUBSCRIBE": true,
	"PING":         true,
	"QUIT":         true,
}

// dispatch is the live connection loop's entry point: it enforces
// subscribed-mode restrictions, the MULTI queueing transition, then routes
// to runCommand. EXEC replay bypasses it and calls runCommand directly.
func (s *Session) dispatch(name string, args []string) (reply []byte, shouldClose bool) {
	if s.subscribedMode && !allowedWhileSubscribed[name] {
		s.enc.Reset()
		s.enc.WriteError("ERR Can't execute '" + strings.ToLower(name) + "' when client is subscribed")
		return s.enc.Bytes(), false
	}

	switch name {
	case "QUIT":
		s.enc.Reset()
		s.enc.WriteSimpleString("OK")
		return s.enc.Bytes(), true
	case "MULTI", "EXEC", "DISCARD":
		return s.runCommand(name, args, true)
	}

	if s.txn.InMulti() {
		s.txn.Queue(name, args)
		s.enc.Reset()
		s.enc.WriteSimpleString("QUEUED")
		return s.enc.Bytes(), false
	}

	return s.runCommand(name, args, true)
}

// runCommand executes one command directly, bypassing MULTI queueing — used
// both for commands dispatch decided not to queue and for each command
// replayed from an EXEC'd queue. blockAllowed is false during EXEC replay:
// spec.md §4.3 requires BLOCK to degrade to non-blocking there.
func (s *Session) runCommand(name string, args []string, blockAllowed bool) (reply []byte, shouldClose bool) {
	s.enc.Reset()

	switch name {
	case "PING":
		return s.cmdPing(args), false
	case "ECHO":
		return s.cmdEcho(args), false

	case "SET":
		return s.cmdSet(args), false
	case "GET":
		return s.cmdGet(args), false
	case "INCR":
		return s.cmdIncr(args), false
	case "DEL":
		return s.cmdDel(args), false
	case "EXISTS":
		return s.cmdExists(args), false
	case "TYPE":
		return s.cmdType(args), false
	case "KEYS":
		return s.cmdKeys(args), false
	case "CONFIG":
		return s.cmdConfig(args), false

	case "RPUSH":
		return s.cmdPush(args, false), false
	case "LPUSH":
		return s.cmdPush(args, true), false
	case "LRANGE":
		return s.cmdLRange(args), false
	case "LLEN":
		return s.cmdLLen(args), false
	case "LPOP":
		return s.cmdLPop(args), false
	case "BLPOP":
		return s.cmdBLPop(args, blockAllowed), false

	case "ZADD":
		return s.cmdZAdd(args), false
	case "ZSCORE":
		return s.cmdZScore(args), false
	case "ZRANK":
		return s.cmdZRank(args), false
	case "ZRANGE":
		return s.cmdZRange(args), false
	case "ZREM":
		return s.cmdZRem(args), false
	case "ZCARD":
		return s.cmdZCard(args), false

	case "XADD":
		return s.cmdXAdd(args), false
	case "XRANGE":
		return s.cmdXRange(args), false
	case "XREAD":
		return s.cmdXRead(args, blockAllowed), false

	case "SUBSCRIBE":
		return s.cmdSubscribe(args), false
	case "UNSUBSCRIBE":
		return s.cmdUnsubscribe(args), false
	case "PUBLISH":
		return s.cmdPublish(args), false

	case "MULTI":
		return s.cmdMulti(), false
	case "EXEC":
		return s.cmdExec(), false
	case "DISCARD":
		return s.cmdDiscard(), false

	default:
		s.enc.WriteError("ERR unknown command '" + name + "'")
		return s.enc.Bytes(), false
	}
}

func (s *Session) arityError(name string) []byte {
	s.enc.Reset()
	s.enc.WriteError("ERR wrong number of arguments for '" + strings.ToLower(name) + "' command")
	return s.enc.Bytes()
}

func (s *Session) wrongTypeError() []byte {
	s.enc.Reset()
	s.enc.WriteError(store.ErrWrongType.Error())
	return s.enc.Bytes()
}

func (s *Session) syntaxError() []byte {
	s.enc.Reset()
	s.enc.WriteError("ERR syntax error")
	return s.enc.Bytes()
}

func (s *Session) cmdPing(args []string) []byte {
	if s.subscribedMode {
		s.enc.WriteArrayHeader(2)
		s.enc.WriteBulkString("pong")
		s.enc.WriteBulkString("")
		return s.enc.Bytes()
	}
	if len(args) == 0 {
		s.enc.WriteSimpleString("PONG")
		return s.enc.Bytes()
	}
	s.enc.WriteBulkString(args[0])
	return s.enc.Bytes()
}

func (s *Session) cmdEcho(args []string) []byte {
	if len(args) != 1 {
		return s.arityError("ECHO")
	}
	s.enc.WriteBulkString(args[0])
	return s.enc.Bytes()
}

func (s *Session) cmdSet(args []string) []byte {
	if len(args) < 2 {
		return s.arityError("SET")
	}
	key, value := args[0], args[1]

	var expiryMs int64
	rest := args[2:]
	for len(rest) > 0 {
		switch strings.ToUpper(rest[0]) {
		case "EX":
			if len(rest) < 2 {
				return s.syntaxError()
			}
			secs, err := strconv.ParseInt(rest[1], 10, 64)
			if err != nil {
				return s.syntaxError()
			}
			expiryMs = s.srv.Keyspace.NowMs() + secs*1000
			rest = rest[2:]
		case "PX":
			if len(rest) < 2 {
				return s.syntaxError()
			}
			ms, err := strconv.ParseInt(rest[1], 10, 64)
			if err != nil {
				return s.syntaxError()
			}
			expiryMs = s.srv.Keyspace.NowMs() + ms
			rest = rest[2:]
		default:
			return s.syntaxError()
		}
	}

	s.srv.Keyspace.SetString(key, value, expiryMs)
	s.enc.WriteSimpleString("OK")
	return s.enc.Bytes()
}

func (s *Session) cmdGet(args []string) []byte {
	if len(args) != 1 {
		return s.arityError("GET")
	}
	value, ok, err := s.srv.Keyspace.GetString(args[0])
	if err != nil {
		return s.wrongTypeError()
	}
	if !ok {
		s.enc.WriteNullBulk()
		return s.enc.Bytes()
	}
	s.enc.WriteBulkString(value)
	return s.enc.Bytes()
}

func (s *Session) cmdIncr(args []string) []byte {
	if len(args) != 1 {
		return s.arityError("INCR")
	}
	n, err := s.srv.Keyspace.Incr(args[0])
	if err != nil {
		s.enc.WriteError("ERR " + err.Error())
		return s.enc.Bytes()
	}
	s.enc.WriteInt(n)
	return s.enc.Bytes()
}

func (s *Session) cmdDel(args []string) []byte {
	if len(args) != 1 {
		return s.arityError("DEL")
	}
	if s.srv.Keyspace.Del(args[0]) {
		s.enc.WriteInt(1)
	} else {
		s.enc.WriteInt(0)
	}
	return s.enc.Bytes()
}

func (s *Session) cmdExists(args []string) []byte {
	if len(args) != 1 {
		return s.arityError("EXISTS")
	}
	if s.srv.Keyspace.Exists(args[0]) {
		s.enc.WriteInt(1)
	} else {
		s.enc.WriteInt(0)
	}
	return s.enc.Bytes()
}

func (s *Session) cmdType(args []string) []byte {
	if len(args) != 1 {
		return s.arityError("TYPE")
	}
	s.enc.WriteSimpleString(s.srv.Keyspace.Type(args[0]))
	return s.enc.Bytes()
}

func (s *Session) cmdKeys(args []string) []byte {
	if len(args) != 1 {
		return s.arityError("KEYS")
	}
	s.enc.WriteStringArray(s.srv.Keyspace.Keys(args[0]))
	return s.enc.Bytes()
}

func (s *Session) cmdConfig(args []string) []byte {
	if len(args) != 2 || strings.ToUpper(args[0]) != "GET" {
		return s.syntaxError()
	}
	param := strings.ToLower(args[1])
	var value string
	switch param {
	case "dir":
		value = s.srv.cfg.RdbDir
	case "dbfilename":
		value = s.srv.cfg.RdbFilename
	}
	s.enc.WriteArrayHeader(2)
	s.enc.WriteBulkString(param)
	s.enc.WriteBulkString(value)
	return s.enc.Bytes()
}

func (s *Session) cmdMulti() []byte {
	if err := s.txn.Multi(); err != nil {
		s.enc.WriteError("ERR " + err.Error())
		return s.enc.Bytes()
	}
	s.enc.WriteSimpleString("OK")
	return s.enc.Bytes()
}

func (s *Session) cmdDiscard() []byte {
	if err := s.txn.Discard(); err != nil {
		s.enc.WriteError("ERR " + err.Error())
		return s.enc.Bytes()
	}
	s.enc.WriteSimpleString("OK")
	return s.enc.Bytes()
}

func (s *Session) cmdExec() []byte {
	queued, err := s.txn.Exec()
	if err != nil {
		s.enc.WriteError("ERR " + err.Error())
		return s.enc.Bytes()
	}

	replies := make([][]byte, len(queued))
	for i, cmd := range queued {
		replies[i] = s.replayQueued(cmd.Name, cmd.Args)
	}

	s.enc.Reset()
	s.enc.WriteArrayHeader(len(replies))
	for _, r := range replies {
		s.enc.Buf = append(s.enc.Buf, r...)
	}
	return s.enc.Bytes()
}

// replayQueued runs one EXEC-queued command through runCommand, copying its
// reply out before the shared encoder is reset by the next command, and
// recovers a panicking handler into the exact reply spec.md §7 names for a
// per-command EXEC failure.
func (s *Session) replayQueued(name string, args []string) (out []byte) {
	defer func() {
		if recover() != nil {
			var e resp.Encoder
			e.WriteError("ERR EXEC-failed during command execution")
			out = e.Bytes()
		}
	}()
	reply, _ := s.runCommand(name, args, false)
	return append([]byte(nil), reply...)
}
