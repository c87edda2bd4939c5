package session

import (
	"sync"

	"ChatDraw/internal/state"
	"ChatDraw/internal/wire"

	"github.com/sirupsen/logrus"
)

// Dispatcher fans messages out to the registry's members. Writes to different
// members run concurrently, while each member gets broadcasts in registry order.
// A member whose write fails is removed and closed before the broadcast returns;
// its own supervisor then announces the departure.
type Dispatcher struct {
	registry *Registry
	echo     bool
	logger   logrus.FieldLogger
}

// NewDispatcher returns a dispatcher over registry. With echo set, senders
// receive their own broadcasts.
func NewDispatcher(registry *Registry, echo bool, log logrus.FieldLogger) *Dispatcher {
	if log == nil {
		log = logger
	}
	return &Dispatcher{registry: registry, echo: echo, logger: log}
}

// Broadcast sends msg to every member and returns how many writes succeeded.
// sender may be nil for server-originated messages.
func (d *Dispatcher) Broadcast(sender *Handle, msg wire.Message) int {
	return d.deliver(d.registry.recipients(), sender, msg)
}

// BroadcastDrawing records a in the history and sends it to every member.
func (d *Dispatcher) BroadcastDrawing(sender *Handle, a state.Action) int {
	members := d.registry.AppendAndMembers(a)
	return d.deliver(members, sender, wire.Draw(a))
}

// BroadcastClear empties the history and tells every member to do the same.
func (d *Dispatcher) BroadcastClear(sender *Handle) int {
	members := d.registry.ClearAndMembers()
	return d.deliver(members, sender, wire.Clear())
}

func (d *Dispatcher) deliver(to []Recipient, sender *Handle, msg wire.Message) int {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		delivered int
	)
	for _, rc := range to {
		wg.Add(1)
		go func(rc Recipient) {
			defer wg.Done()
			h := rc.Handle
			if !d.echo && sender != nil && h == sender {
				_ = h.sendAt(rc.slot, nil)
				return
			}
			if err := h.sendAt(rc.slot, &msg); err != nil {
				d.drop(h, err)
				return
			}
			mu.Lock()
			delivered++
			mu.Unlock()
		}(rc)
	}
	wg.Wait()
	return delivered
}

func (d *Dispatcher) drop(h *Handle, err error) {
	if d.registry.Leave(h) {
		d.logger.WithFields(logrus.Fields{
			"conn": h.ID().String(),
			"name": h.Name(),
		}).WithError(err).Warn("dropping unreachable client")
	}
	_ = h.Close()
}
