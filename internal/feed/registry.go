package feed

import (
	"log/slog"
	"sort"
	"sync"
)

// Handler receives messages for one market.
type Handler interface {
	HandleMessage(msg Message)
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(Message)

func (f HandlerFunc) HandleMessage(msg Message) {
	f(msg)
}

// Sender delivers subscribe frames upstream.
type Sender interface {
	SendSubscribe(marketID string) error
}

// registration is one local consumer of a market.
type registration struct {
	id      uint64
	handler Handler
}

// entry holds the consumers of one market in registration order.
type entry struct {
	regs []registration
}

// Registry multiplexes local handlers onto one upstream subscription per market.
type Registry struct {
	sender Sender
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]*entry
	nextID  uint64
}

// NewRegistry creates an empty Registry that subscribes upstream through sender.
func NewRegistry(sender Sender, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sender:  sender,
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// Subscribe registers handler for marketID and returns a func that removes it.
// The first registration for a market sends exactly one upstream subscribe frame.
// The returned func is idempotent.
func (r *Registry) Subscribe(marketID string, handler Handler) (unsubscribe func()) {
	if marketID == "" || handler == nil {
		return func() {}
	}

	r.mu.Lock()
	r.nextID++
	id := r.nextID
	e, exists := r.entries[marketID]
	if !exists {
		e = &entry{}
		r.entries[marketID] = e
		// A send failure is repaired by the Resync that follows every open.
		if err := r.sender.SendSubscribe(marketID); err != nil {
			r.logger.Debug("subscribe deferred until feed is open",
				"market_id", marketID,
				"error", err,
			)
		}
	}
	e.regs = append(e.regs, registration{id: id, handler: handler})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(marketID, id) })
	}
}

// remove drops one registration. The entry goes away with its last registration;
// the upstream has no unsubscribe frame so nothing is sent.
func (r *Registry) remove(marketID string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[marketID]
	if !ok {
		return
	}
	for i, reg := range e.regs {
		if reg.id == id {
			e.regs = append(e.regs[:i:i], e.regs[i+1:]...)
			break
		}
	}
	if len(e.regs) == 0 {
		delete(r.entries, marketID)
	}
}

// Dispatch delivers msg to every handler of msg.MarketID in registration order.
// A panicking handler is logged and does not stop the others.
func (r *Registry) Dispatch(msg Message) int {
	r.mu.RLock()
	e, ok := r.entries[msg.MarketID]
	var regs []registration
	if ok {
		regs = make([]registration, len(e.regs))
		copy(regs, e.regs)
	}
	r.mu.RUnlock()

	for _, reg := range regs {
		r.invoke(reg, msg)
	}
	return len(regs)
}

func (r *Registry) invoke(reg registration, msg Message) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("subscriber panicked",
				"market_id", msg.MarketID,
				"subscriber", reg.id,
				"panic", p,
			)
		}
	}()
	reg.handler.HandleMessage(msg)
}

// Resync calls open with every registered market while holding the registry lock,
// so a concurrent first Subscribe is either included in marketIDs or sent after open returns.
func (r *Registry) Resync(open func(marketIDs []string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	open(r.sortedIDs())
}

// MarketIDs returns every market with at least one registration, sorted.
func (r *Registry) MarketIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedIDs()
}

// sortedIDs must be called with mu held.
func (r *Registry) sortedIDs() []string {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered markets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Subscribers returns the number of handlers registered for marketID.
func (r *Registry) Subscribers(marketID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[marketID]; ok {
		return len(e.regs)
	}
	return 0
}

// TotalSubscribers returns the number of handlers across all markets.
func (r *Registry) TotalSubscribers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.entries {
		n += len(e.regs)
	}
	return n
}
