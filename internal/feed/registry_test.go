package feed

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// countingSender records every upstream subscribe.
type countingSender struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func newCountingSender() *countingSender {
	return &countingSender{calls: make(map[string]int)}
}

func (s *countingSender) SendSubscribe(marketID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[marketID]++
	return s.err
}

func (s *countingSender) count(marketID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[marketID]
}

func TestRegistry_SubscribeOnceUpstream(t *testing.T) {
	sender := newCountingSender()
	reg := NewRegistry(sender, nil)

	var got1, got2 []string
	unsub1 := reg.Subscribe("m1", HandlerFunc(func(msg Message) { got1 = append(got1, string(msg.Fields["seq"])) }))
	unsub2 := reg.Subscribe("m1", HandlerFunc(func(msg Message) { got2 = append(got2, string(msg.Fields["seq"])) }))
	defer unsub1()
	defer unsub2()

	assert.Equal(t, 1, sender.count("m1"), "upstream subscribes")
	assert.Equal(t, 2, reg.Subscribers("m1"))

	for _, seq := range []string{"1", "2", "3"} {
		msg := Message{MarketID: "m1", Fields: map[string]json.RawMessage{"seq": json.RawMessage(seq)}}
		assert.Equal(t, 2, reg.Dispatch(msg))
	}

	want := []string{"1", "2", "3"}
	assert.Equal(t, want, got1)
	assert.Equal(t, want, got2)
}

func TestRegistry_DispatchOrder(t *testing.T) {
	reg := NewRegistry(newCountingSender(), nil)

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		reg.Subscribe("m1", HandlerFunc(func(Message) { order = append(order, i) }))
	}

	reg.Dispatch(Message{MarketID: "m1"})

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestRegistry_PanicDoesNotStopOthers(t *testing.T) {
	reg := NewRegistry(newCountingSender(), nil)

	delivered := 0
	reg.Subscribe("m1", HandlerFunc(func(Message) { delivered++ }))
	reg.Subscribe("m1", HandlerFunc(func(Message) { panic("boom") }))
	reg.Subscribe("m1", HandlerFunc(func(Message) { delivered++ }))

	reg.Dispatch(Message{MarketID: "m1"})

	assert.Equal(t, 2, delivered)
}

func TestRegistry_Unsubscribe(t *testing.T) {
	sender := newCountingSender()
	reg := NewRegistry(sender, nil)

	removed := 0
	kept := 0
	unsub := reg.Subscribe("m1", HandlerFunc(func(Message) { removed++ }))
	reg.Subscribe("m1", HandlerFunc(func(Message) { kept++ }))

	unsub()
	unsub() // idempotent

	reg.Dispatch(Message{MarketID: "m1"})

	assert.Zero(t, removed, "removed handler called")
	assert.Equal(t, 1, kept)
	assert.Equal(t, 1, reg.Subscribers("m1"))
}

func TestRegistry_LastUnsubscribeRemovesEntry(t *testing.T) {
	sender := newCountingSender()
	reg := NewRegistry(sender, nil)

	unsub := reg.Subscribe("m1", HandlerFunc(func(Message) {}))
	unsub()

	assert.Zero(t, reg.Len())
	assert.Zero(t, reg.Dispatch(Message{MarketID: "m1"}))

	// A new consumer subscribes upstream again.
	reg.Subscribe("m1", HandlerFunc(func(Message) {}))
	assert.Equal(t, 2, sender.count("m1"), "upstream subscribes")
}

func TestRegistry_EmptyMarketID(t *testing.T) {
	sender := newCountingSender()
	reg := NewRegistry(sender, nil)

	unsub := reg.Subscribe("", HandlerFunc(func(Message) {}))
	unsub()

	assert.Zero(t, reg.Len())
	assert.Zero(t, sender.count(""), "upstream subscribes")
}

func TestRegistry_SendFailureKeepsEntry(t *testing.T) {
	sender := newCountingSender()
	sender.err = errors.New("not connected")
	reg := NewRegistry(sender, nil)

	reg.Subscribe("m1", HandlerFunc(func(Message) {}))

	assert.Equal(t, []string{"m1"}, reg.MarketIDs())
}

func TestRegistry_Resync(t *testing.T) {
	reg := NewRegistry(newCountingSender(), nil)
	reg.Subscribe("b", HandlerFunc(func(Message) {}))
	reg.Subscribe("a", HandlerFunc(func(Message) {}))

	var got []string
	reg.Resync(func(ids []string) { got = ids })

	assert.Equal(t, []string{"a", "b"}, got)
}

func TestRegistry_ConcurrentSubscribe(t *testing.T) {
	sender := newCountingSender()
	reg := NewRegistry(sender, nil)

	var wg sync.WaitGroup
	unsubs := make([]func(), 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			unsubs[i] = reg.Subscribe("m1", HandlerFunc(func(Message) {}))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, sender.count("m1"), "upstream subscribes")
	assert.Equal(t, 50, reg.Subscribers("m1"))

	for _, unsub := range unsubs {
		unsub()
	}
	assert.Zero(t, reg.Len())
}
