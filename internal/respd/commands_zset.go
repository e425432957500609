package respd

import (
	"strconv"
)

func (s *Session) cmdZAdd(args []string) []byte {
	if len(args) != 3 {
		return s.arityError("ZADD")
	}
	key, member := args[0], args[2]
	score, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		s.enc.WriteError("ERR value is not a valid float")
		return s.enc.Bytes()
	}

	added, storeErr := s.srv.Keyspace.ZAdd(key, member, score)
	if storeErr != nil {
		return s.wrongTypeError()
	}
	if added {
		s.enc.WriteInt(1)
	} else {
		s.enc.WriteInt(0)
	}
	return s.enc.Bytes()
}

func (s *Session) cmdZScore(args []string) []byte {
	if len(args) != 2 {
		return s.arityError("ZSCORE")
	}
	score, ok, err := s.srv.Keyspace.ZScore(args[0], args[1])
	if err != nil {
		return s.wrongTypeError()
	}
	if !ok {
		s.enc.WriteNullBulk()
		return s.enc.Bytes()
	}
	s.enc.WriteBulkString(strconv.FormatFloat(score, 'g', -1, 64))
	return s.enc.Bytes()
}

func (s *Session) cmdZRank(args []string) []byte {
	if len(args) != 2 {
		return s.arityError("ZRANK")
	}
	rank, ok, err := s.srv.Keyspace.ZRank(args[0], args[1])
	if err != nil {
		return s.wrongTypeError()
	}
	if !ok {
		s.enc.WriteNullBulk()
		return s.enc.Bytes()
	}
	s.enc.WriteInt(int64(rank))
	return s.enc.Bytes()
}

func (s *Session) cmdZRange(args []string) []byte {
	if len(args) != 3 {
		return s.arityError("ZRANGE")
	}
	start, err1 := strconv.Atoi(args[1])
	end, err2 := strconv.Atoi(args[2])
	if err1 != nil || err2 != nil {
		s.enc.WriteError("ERR start or end is not an integer")
		return s.enc.Bytes()
	}

	members, err := s.srv.Keyspace.ZRange(args[0], start, end)
	if err != nil {
		return s.wrongTypeError()
	}
	s.enc.WriteStringArray(members)
	return s.enc.Bytes()
}

func (s *Session) cmdZRem(args []string) []byte {
	if len(args) != 2 {
		return s.arityError("ZREM")
	}
	removed, err := s.srv.Keyspace.ZRem(args[0], args[1])
	if err != nil {
		return s.wrongTypeError()
	}
	if removed {
		s.enc.WriteInt(1)
	} else {
		s.enc.WriteInt(0)
	}
	return s.enc.Bytes()
}

func (s *Session) cmdZCard(args []string) []byte {
	if len(args) != 1 {
		return s.arityError("ZCARD")
	}
	n, err := s.srv.Keyspace.ZCard(args[0])
	if err != nil {
		return s.wrongTypeError()
	}
	s.enc.WriteInt(int64(n))
	return s.enc.Bytes()
}
