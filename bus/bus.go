// Package bus is an in-process topic bus: a trie of subscriptions with
// MQTT-style wildcards ("+" one level, "#" the rest), retained messages and
// request/reply over generated reply topics.
package bus

import (
	"context"
	"sync"

	"timerbank-go/errcode"
)

// -----------------------------------------------------------------------------
// Tokens + Topics
// -----------------------------------------------------------------------------

// Token is one topic level. It must be comparable; T enforces this.
type Token = any

// Topic is a sequence of tokens.
type Topic []Token

const (
	Single = "+"
	Multi  = "#"
)

// T builds a topic, panicking on tokens that cannot key a map.
func T(tokens ...Token) Topic {
	for _, tok := range tokens {
		switch tok.(type) {
		case string, int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64, bool:
		default:
			panic("bus: topic token must be a string, integer or bool")
		}
	}
	return Topic(tokens)
}

func isWild(tok Token) bool { return tok == Single || tok == Multi }

func (t Topic) Len() int { return len(t) }

// At returns the token at i, or nil when out of range.
func (t Topic) At(i int) Token {
	if i < 0 || i >= len(t) {
		return nil
	}
	return t[i]
}

// Append returns a new topic; t is not modified.
func (t Topic) Append(tokens ...Token) Topic {
	out := make(Topic, 0, len(t)+len(tokens))
	out = append(out, t...)
	return append(out, T(tokens...)...)
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

func (m *Message) CanReply() bool { return len(m.ReplyTo) > 0 }

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// deliver never blocks: a full queue loses its oldest message.
func (s *Subscription) deliver(m *Message) {
	select {
	case s.ch <- m:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- m:
	default:
	}
}

// -----------------------------------------------------------------------------
// Trie node
// -----------------------------------------------------------------------------

type node struct {
	children map[Token]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(tok Token, create bool) *node {
	if c, ok := n.children[tok]; ok || !create {
		return c
	}
	if n.children == nil {
		n.children = make(map[Token]*node)
	}
	c := &node{}
	n.children[tok] = c
	return c
}

func (n *node) empty() bool {
	return len(n.subs) == 0 && len(n.children) == 0 && n.retained == nil
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu   sync.Mutex
	root *node
	qLen int
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{root: &node{}, qLen: queueLen}
}

func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

func (b *Bus) addSubscription(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range sub.topic {
		n = n.child(tok, true)
	}
	n.subs = append(n.subs, sub)

	var retained []*Message
	collectRetained(b.root, sub.topic, &retained)
	for _, m := range retained {
		sub.deliver(m)
	}
}

// collectRetained gathers retained messages on concrete topics matching
// pattern.
func collectRetained(n *node, pattern Topic, out *[]*Message) {
	if len(pattern) == 0 {
		if n.retained != nil {
			*out = append(*out, n.retained)
		}
		return
	}
	switch tok := pattern[0]; tok {
	case Multi:
		collectAll(n, out)
	case Single:
		for k, c := range n.children {
			if !isWild(k) {
				collectRetained(c, pattern[1:], out)
			}
		}
	default:
		if c := n.children[tok]; c != nil {
			collectRetained(c, pattern[1:], out)
		}
	}
}

func collectAll(n *node, out *[]*Message) {
	if n.retained != nil {
		*out = append(*out, n.retained)
	}
	for k, c := range n.children {
		if !isWild(k) {
			collectAll(c, out)
		}
	}
}

// Publish delivers msg to every matching subscription and updates the
// retained store. A retained message with a nil payload clears it.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	matchSubs(b.root, msg.Topic, msg)

	if !msg.Retained {
		return
	}
	if msg.Payload != nil {
		n := b.root
		for _, tok := range msg.Topic {
			n = n.child(tok, true)
		}
		n.retained = msg
		return
	}
	b.clearRetained(msg.Topic)
}

func matchSubs(n *node, topic Topic, msg *Message) {
	if c := n.children[Multi]; c != nil {
		for _, s := range c.subs {
			s.deliver(msg)
		}
	}
	if len(topic) == 0 {
		for _, s := range n.subs {
			s.deliver(msg)
		}
		return
	}
	if c := n.children[topic[0]]; c != nil {
		matchSubs(c, topic[1:], msg)
	}
	if c := n.children[Single]; c != nil {
		matchSubs(c, topic[1:], msg)
	}
}

func (b *Bus) clearRetained(topic Topic) {
	path := []*node{b.root}
	n := b.root
	for _, tok := range topic {
		if n = n.child(tok, false); n == nil {
			return
		}
		path = append(path, n)
	}
	n.retained = nil
	b.prune(topic, path)
}

// prune drops empty nodes bottom-up along path.
func (b *Bus) prune(topic Topic, path []*node) {
	for i := len(topic) - 1; i >= 0; i-- {
		if !path[i+1].empty() {
			return
		}
		delete(path[i].children, topic[i])
	}
}

func (b *Bus) unsubscribe(sub *Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	path := []*node{b.root}
	n := b.root
	for _, tok := range sub.topic {
		if n = n.child(tok, false); n == nil {
			return false
		}
		path = append(path, n)
	}
	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			b.prune(sub.topic, path)
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	id   string
	mu   sync.Mutex
	subs []*Subscription
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

// Subscribe registers a subscription owned by this connection. Matching
// retained messages are queued immediately.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	c.bus.addSubscription(sub)
	return sub
}

// Unsubscribe removes sub and closes its channel. Repeated calls are no-ops.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	found := false
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			found = true
			break
		}
	}
	c.mu.Unlock()
	if !found {
		return
	}
	c.bus.unsubscribe(sub)
	close(sub.ch)
}

// Disconnect closes all subscriptions.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub)
		close(sub.ch)
	}
}

// -----------------------------------------------------------------------------
// Request / Reply
// -----------------------------------------------------------------------------

// ReplyPrefix roots generated reply topics.
const ReplyPrefix = "_reply"

// Request assigns msg a reply topic if it has none, subscribes to it and
// publishes msg. The caller owns the returned subscription.
func (c *Connection) Request(msg *Message) *Subscription {
	if len(msg.ReplyTo) == 0 {
		msg.ReplyTo = T(ReplyPrefix, newReplyID())
	}
	sub := c.Subscribe(msg.ReplyTo)
	c.Publish(msg)
	return sub
}

// RequestWait publishes msg and waits for the first reply.
func (c *Connection) RequestWait(ctx context.Context, msg *Message) (*Message, error) {
	sub := c.Request(msg)
	defer c.Unsubscribe(sub)
	select {
	case r, ok := <-sub.Channel():
		if !ok {
			return nil, errcode.Wrap(errcode.Error, "request", "reply subscription closed", nil)
		}
		return r, nil
	case <-ctx.Done():
		return nil, errcode.Wrap(errcode.Timeout, "request", "", ctx.Err())
	}
}

// Reply answers req on its ReplyTo topic. Returns false if req expects no
// reply.
func (c *Connection) Reply(req *Message, payload any, retained bool) bool {
	if req == nil || len(req.ReplyTo) == 0 {
		return false
	}
	c.Publish(c.NewMessage(req.ReplyTo, payload, retained))
	return true
}
