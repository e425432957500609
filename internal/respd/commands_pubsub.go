package respd

import "github.com/rkeydb/respd/internal/resp"

func (s *Session) cmdSubscribe(args []string) []byte {
	if len(args) == 0 {
		return s.arityError("SUBSCRIBE")
	}

	s.enc.Reset()
	for _, channel := range args {
		count := s.srv.PubSub.Subscribe(s.id, channel, s.deliverMessage)
		s.enc.WriteArrayHeader(3)
		s.enc.WriteBulkString("subscribe")
		s.enc.WriteBulkString(channel)
		s.enc.WriteInt(int64(count))
	}
	s.subscribedMode = s.srv.PubSub.SubscriptionCount(s.id) > 0
	return s.enc.Bytes()
}

func (s *Session) cmdUnsubscribe(args []string) []byte {
	channels := args
	if len(channels) == 0 {
		channels = s.srv.PubSub.Channels(s.id)
	}

	s.enc.Reset()
	if len(channels) == 0 {
		s.enc.WriteArrayHeader(3)
		s.enc.WriteBulkString("unsubscribe")
		s.enc.WriteNullBulk()
		s.enc.WriteInt(0)
	} else {
		for _, channel := range channels {
			count := s.srv.PubSub.Unsubscribe(s.id, channel)
			s.enc.WriteArrayHeader(3)
			s.enc.WriteBulkString("unsubscribe")
			s.enc.WriteBulkString(channel)
			s.enc.WriteInt(int64(count))
		}
	}
	s.subscribedMode = s.srv.PubSub.SubscriptionCount(s.id) > 0
	return s.enc.Bytes()
}

func (s *Session) cmdPublish(args []string) []byte {
	if len(args) != 2 {
		return s.arityError("PUBLISH")
	}
	n := s.srv.PubSub.Publish(args[0], args[1])
	s.enc.WriteInt(int64(n))
	return s.enc.Bytes()
}

// deliverMessage is the pub/sub Deliver callback bound to this session: it
// encodes a ["message", channel, payload] frame independently of the
// session's own reply encoder (PUBLISH may be fanning out from a different
// connection's goroutine concurrently with this one) and writes it directly
// to the subscriber's connection, reporting whether the write succeeded so
// Publish's recipient count excludes dead subscribers.
func (s *Session) deliverMessage(channel, payload string) bool {
	var e resp.Encoder
	e.WriteArrayHeader(3)
	e.WriteBulkString("message")
	e.WriteBulkString(channel)
	e.WriteBulkString(payload)
	_, err := s.conn.Write(e.Bytes())
	return err == nil
}
