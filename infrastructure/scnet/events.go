package scnet

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"kbweb/application/ports"
	"kbweb/domain/core/valueobjects"
	apperrors "kbweb/pkg/errors"
)

// subscription queues events without bound so the read loop never waits
// on a slow consumer. Consumers usually call back into the Graph Service
// while handling an event.
type subscription struct {
	id   int64
	kind ports.EventKind
	addr valueobjects.Addr

	mu        sync.Mutex
	queue     []ports.ElementEvent
	closed    bool
	closeOnce sync.Once
	wake      chan struct{}
	done      chan struct{}
	out       chan ports.ElementEvent
}

func newSubscription(id int64, kind ports.EventKind, addr valueobjects.Addr) *subscription {
	s := &subscription{
		id:   id,
		kind: kind,
		addr: addr,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		out:  make(chan ports.ElementEvent),
	}
	go s.pump()
	return s
}

func (s *subscription) ID() int64                         { return s.id }
func (s *subscription) Kind() ports.EventKind             { return s.kind }
func (s *subscription) Addr() valueobjects.Addr           { return s.addr }
func (s *subscription) Events() <-chan ports.ElementEvent { return s.out }

func (s *subscription) push(ev ports.ElementEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.queue = nil
		s.mu.Unlock()
		close(s.done)
	})
}

// pump delivers queued events in order and closes out once the
// subscription is closed. Events still queued at that point are dropped.
func (s *subscription) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- ev:
		case <-s.done:
			return
		}
	}
}

// dispatchEvent decodes an event payload [addr, edge, other]
func (c *Client) dispatchEvent(msg *message) {
	c.mu.Lock()
	sub, ok := c.subs[msg.ID]
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("Event for unknown subscription", zap.Int64("subscription", msg.ID))
		return
	}

	var addrs []valueobjects.Addr
	if err := json.Unmarshal(msg.Payload, &addrs); err != nil {
		c.logger.Warn("Dropping malformed event", zap.Int64("subscription", msg.ID), zap.Error(err))
		return
	}
	ev := ports.ElementEvent{SubscriptionID: sub.id, Kind: sub.kind}
	if len(addrs) > 0 {
		ev.Addr = addrs[0]
	}
	if len(addrs) > 1 {
		ev.Edge = addrs[1]
	}
	if len(addrs) > 2 {
		ev.Other = addrs[2]
	}
	sub.push(ev)
}

// Subscribe registers an element event
func (c *Client) Subscribe(ctx context.Context, kind ports.EventKind, addr valueobjects.Addr) (ports.Subscription, error) {
	var ids []int64
	payload := eventsPayload{Create: []eventCreate{{Type: string(kind), Addr: addr}}}
	if err := c.Call(ctx, TypeEvents, payload, &ids); err != nil {
		return nil, err
	}
	if len(ids) != 1 {
		return nil, apperrors.NewCountMismatchError("subscribe", 1, len(ids))
	}

	sub := newSubscription(ids[0], kind, addr)
	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		sub.close()
		return nil, apperrors.NewNetworkError("graph service connection lost", c.err)
	}
	c.subs[sub.id] = sub
	c.mu.Unlock()

	c.logger.Debug("Subscribed",
		zap.Int64("subscription", sub.id),
		zap.String("kind", string(kind)),
		zap.Stringer("addr", addr),
	)
	return sub, nil
}

// Unsubscribe removes the subscription and closes its channel
func (c *Client) Unsubscribe(ctx context.Context, s ports.Subscription) error {
	c.mu.Lock()
	sub, ok := c.subs[s.ID()]
	delete(c.subs, s.ID())
	alive := c.err == nil
	c.mu.Unlock()
	if ok {
		sub.close()
	}
	if !alive {
		return nil
	}
	return c.Call(ctx, TypeEvents, eventsPayload{Delete: []int64{s.ID()}}, nil)
}
