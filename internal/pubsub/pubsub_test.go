package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ok(string, string) bool { return true }

func TestSubscribeReturnsChannelCount(t *testing.T) {
	r := New()

	n := r.Subscribe("client1", "news", ok)
	assert.Equal(t, 1, n)

	n = r.Subscribe("client1", "sports", ok)
	assert.Equal(t, 2, n)

	// re-subscribing to an already-subscribed channel does not double count
	n = r.Subscribe("client1", "news", ok)
	assert.Equal(t, 2, n)
}

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	r := New()

	var got1, got2 []string
	r.Subscribe("c1", "chan", func(ch, payload string) bool { got1 = append(got1, payload); return true })
	r.Subscribe("c2", "chan", func(ch, payload string) bool { got2 = append(got2, payload); return true })

	n := r.Publish("chan", "hello")
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"hello"}, got1)
	assert.Equal(t, []string{"hello"}, got2)
}

func TestPublishWithNoSubscribersReturnsZero(t *testing.T) {
	r := New()
	assert.Equal(t, 0, r.Publish("empty", "payload"))
}

func TestPublishDoesNotCountFailedDeliveries(t *testing.T) {
	r := New()

	r.Subscribe("live", "chan", func(string, string) bool { return true })
	r.Subscribe("dead", "chan", func(string, string) bool { return false })

	n := r.Publish("chan", "hello")
	assert.Equal(t, 1, n)
}

func TestUnsubscribe(t *testing.T) {
	r := New()
	r.Subscribe("c1", "a", ok)
	r.Subscribe("c1", "b", ok)

	remaining := r.Unsubscribe("c1", "a")
	assert.Equal(t, 1, remaining)
	assert.Equal(t, []string{"b"}, r.Channels("c1"))

	assert.Equal(t, 0, r.Publish("a", "x"))
}

func TestUnsubscribeAll(t *testing.T) {
	r := New()
	r.Subscribe("c1", "a", ok)
	r.Subscribe("c1", "b", ok)

	chans := r.UnsubscribeAll("c1")
	assert.ElementsMatch(t, []string{"a", "b"}, chans)
	assert.Equal(t, 0, r.SubscriptionCount("c1"))
	assert.Equal(t, 0, r.Publish("a", "x"))
	assert.Equal(t, 0, r.Publish("b", "x"))
}

func TestSubscriptionCountIsolatedPerClient(t *testing.T) {
	r := New()
	r.Subscribe("c1", "a", ok)
	r.Subscribe("c2", "a", ok)

	assert.Equal(t, 1, r.SubscriptionCount("c1"))
	r.Unsubscribe("c1", "a")
	assert.Equal(t, 1, r.Publish("a", "still delivered to c2"))
}
