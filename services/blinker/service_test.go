package blinker

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timerbank-go/bus"
	"timerbank-go/errcode"
	"timerbank-go/ledcmd"
	"timerbank-go/platform"
	"timerbank-go/softtimer"
	"timerbank-go/types"
)

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

type harness struct {
	svc  *Service
	conn *bus.Connection
	pin  *platform.SimPin
	port *platform.StreamPort
	wire *syncBuffer
	res  *platform.Resources
}

func start(t *testing.T, cfg map[string]any) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := &harness{pin: platform.NewSimPin(25), wire: &syncBuffer{}}
	h.port = platform.NewStreamPort(nil, h.wire)
	h.res = &platform.Resources{
		LED:       h.pin,
		Serial:    h.port,
		SerialDev: "sim",
		Ticker:    platform.NewTicker(1),
	}
	b := bus.NewBus(32)
	h.conn = b.NewConnection("test")
	if cfg != nil {
		h.conn.Publish(h.conn.NewMessage(bus.T("config", "blinker"), cfg, true))
	}

	svc, err := New(h.res, b.NewConnection("blinker"), Options{ConfigWait: 50 * time.Millisecond})
	require.NoError(t, err)
	h.svc = svc

	status := h.conn.Subscribe(TopicStatus())
	go svc.Run(ctx)
	select {
	case m := <-status.Channel():
		require.Equal(t, "ready", m.Payload.(types.ServiceState).Level)
	case <-time.After(2 * time.Second):
		t.Fatal("blinker not ready")
	}
	h.conn.Unsubscribe(status)
	return h
}

func (h *harness) request(t *testing.T, topic bus.Topic, payload any) any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	reply, err := h.conn.RequestWait(ctx, h.conn.NewMessage(topic, payload, false))
	require.NoError(t, err)
	return reply.Payload
}

func TestSerial_CommandResponses(t *testing.T) {
	h := start(t, map[string]any{"blink_period_ms": 1})

	cases := []struct{ in, out string }{
		{"Led5ms", "OK"},
		{"Led5000ms", "Invalid value"},
		{"Led", "Invalid value"},
		{"Foo", "CmdError"},
		{"LedStop", "OK"},
		{"LedStop", "OK"},
	}
	var want strings.Builder
	for _, c := range cases {
		h.port.Inject([]byte(c.in + "\r\n"))
		want.WriteString(c.out + "\n")
		require.Eventually(t, func() bool { return h.wire.String() == want.String() },
			time.Second, 2*time.Millisecond, "after %q got %q", c.in, h.wire.String())
	}
	assert.Equal(t, uint32(5), h.res.Ticker.Period())
	assert.Equal(t, uint32(5), h.svc.Blink().Period())
}

func TestSerial_PublishesRXAndTX(t *testing.T) {
	h := start(t, nil)
	rx := h.conn.Subscribe(TopicSerial("sim", "rx"))
	tx := h.conn.Subscribe(TopicSerial("sim", "tx"))

	h.port.Inject([]byte("LedStart\n"))

	for _, c := range []struct {
		sub  *bus.Subscription
		line string
	}{{rx, "LedStart"}, {tx, "OK"}} {
		select {
		case m := <-c.sub.Channel():
			sl := m.Payload.(types.SerialLine)
			assert.Equal(t, c.line, sl.Line)
			assert.Equal(t, "sim", sl.Dev)
		case <-time.After(time.Second):
			t.Fatalf("no serial event for %q", c.line)
		}
	}
}

func TestBlink_AutostartFromConfigToggles(t *testing.T) {
	h := start(t, map[string]any{"blink_period_ms": 1, "blink_autostart": true})
	require.Eventually(t, func() bool { return h.pin.Edges() >= 4 }, 2*time.Second, 2*time.Millisecond)

	reply := h.request(t, TopicControl(VerbCommand), types.CommandRequest{Line: "LedStop"})
	assert.Equal(t, types.CommandReply{Line: "LedStop", Response: ledcmd.RespOK}, reply)
	assert.False(t, h.pin.Get())
	edges := h.pin.Edges()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, edges, h.pin.Edges(), "LED must not toggle after LedStop")
}

func TestBusCommand_StringPayloadAndState(t *testing.T) {
	h := start(t, nil)

	reply := h.request(t, TopicControl(VerbCommand), "Led2s")
	assert.Equal(t, ledcmd.RespOK, reply.(types.CommandReply).Response)

	reply = h.request(t, TopicControl(VerbState), nil)
	ok := reply.(types.OKReply)
	require.True(t, ok.OK)
	st := ok.Result.(types.BlinkState)
	assert.Equal(t, uint32(2000), st.PeriodMs)
	assert.False(t, st.Running)

	// Retained state follows every command.
	sub := h.conn.Subscribe(TopicState())
	select {
	case m := <-sub.Channel():
		assert.Equal(t, uint32(2000), m.Payload.(types.BlinkState).PeriodMs)
	case <-time.After(time.Second):
		t.Fatal("no retained state")
	}

	reply = h.request(t, TopicControl("nope"), nil)
	assert.Equal(t, types.ErrorReply{OK: false, Error: string(errcode.InvalidTopic)}, reply)
}

func TestTimerControl_AddExpireAndErrors(t *testing.T) {
	h := start(t, map[string]any{"blink_period_ms": 1})

	exp := h.conn.Subscribe(bus.T("timer", "+", "expired"))
	reply := h.request(t, TopicTimerControl(VerbAdd), types.TimerAdd{Duration: 3, AutoStart: true})
	added := reply.(types.OKReply).Result.(types.TimerAdded)
	assert.NotEqual(t, h.svc.Blink().Slot(), added.ID)

	select {
	case m := <-exp.Channel():
		assert.Equal(t, added.ID, m.Payload.(types.TimerExpired).ID)
		assert.Equal(t, added.ID, m.Topic.At(1))
	case <-time.After(time.Second):
		t.Fatal("timer never expired")
	}

	reply = h.request(t, TopicTimerControl(VerbGet), types.TimerRef{ID: added.ID})
	slot := reply.(types.OKReply).Result.(types.TimerSlot)
	assert.False(t, slot.Active)
	assert.Equal(t, uint32(3), slot.Duration)

	// JSON-shaped payloads work too.
	reply = h.request(t, TopicTimerControl(VerbUpdate), map[string]any{"id": added.ID, "duration": 7})
	assert.True(t, reply.(types.OKReply).OK)
	reply = h.request(t, TopicTimerControl(VerbStart), map[string]any{"id": added.ID})
	assert.True(t, reply.(types.OKReply).OK)
	reply = h.request(t, TopicTimerControl(VerbStop), types.TimerRef{ID: added.ID})
	assert.True(t, reply.(types.OKReply).OK)

	errOf := func(p any) string { return p.(types.ErrorReply).Error }
	assert.Equal(t, string(errcode.InvalidSlot),
		errOf(h.request(t, TopicTimerControl(VerbStart), types.TimerRef{ID: 99})))
	assert.Equal(t, string(errcode.UnclaimedSlot),
		errOf(h.request(t, TopicTimerControl(VerbStop), types.TimerRef{ID: softtimer.DefaultSlots - 1})))
	assert.Equal(t, string(errcode.Busy),
		errOf(h.request(t, TopicTimerControl(VerbStop), types.TimerRef{ID: h.svc.Blink().Slot()})))
	assert.Equal(t, string(errcode.InvalidPayload),
		errOf(h.request(t, TopicTimerControl(VerbAdd), nil)))

	list := h.request(t, TopicTimerControl(VerbList), nil).(types.OKReply).Result.([]types.TimerSlot)
	assert.Len(t, list, softtimer.DefaultSlots)
}

func TestTimerControl_RegistryFull(t *testing.T) {
	h := start(t, nil)
	free := h.svc.Timers().Cap() - 1 // blink slot is reserved
	for i := 0; i < free; i++ {
		reply := h.request(t, TopicTimerControl(VerbAdd), types.TimerAdd{Duration: 1000, AutoStart: true})
		require.True(t, reply.(types.OKReply).OK)
	}
	reply := h.request(t, TopicTimerControl(VerbAdd), types.TimerAdd{Duration: 1000, AutoStart: true})
	assert.Equal(t, string(errcode.RegistryFull), reply.(types.ErrorReply).Error)

	// Still live afterwards.
	assert.Equal(t, ledcmd.RespOK, h.svc.Process("LedStop"))
}

func TestBootConfig_TimersAndClamp(t *testing.T) {
	h := start(t, map[string]any{
		"blink_period_ms": 60000,
		"timers": []any{
			map[string]any{"duration": 5000, "auto_start": false},
			map[string]any{"duration": 6000, "auto_start": true},
			map[string]any{"duration": 7000, "auto_start": true},
		},
	})
	assert.Equal(t, uint32(maxPeriodMs), h.svc.Blink().Period())

	// A stopped timer is free for the next add, so 6000 takes over 5000's slot.
	var claimed []types.TimerSlot
	for _, s := range h.svc.Timers().Snapshot() {
		if s.Claimed && !s.Reserved {
			claimed = append(claimed, s)
		}
	}
	require.Len(t, claimed, 2)
	assert.Equal(t, uint32(6000), claimed[0].Duration)
	assert.Equal(t, uint32(7000), claimed[1].Duration)
	assert.True(t, claimed[0].Active)
	assert.True(t, claimed[1].Active)
}

func TestLiveConfig_KeepsBlinkTicksWhenUnset(t *testing.T) {
	h := start(t, map[string]any{"blink_ticks": 3})
	blinkSlot := func() uint32 {
		s, err := h.svc.Timers().Slot(h.svc.Blink().Slot())
		require.NoError(t, err)
		return s.Duration
	}
	require.Equal(t, uint32(3), blinkSlot())

	h.conn.Publish(h.conn.NewMessage(bus.T("config", "blinker"), map[string]any{"blink_period_ms": 40}, true))
	require.Eventually(t, func() bool { return h.res.Ticker.Period() == 40 }, time.Second, 2*time.Millisecond)
	assert.Equal(t, uint32(3), blinkSlot())
}

func TestLiveConfig_UpdatesPeriod(t *testing.T) {
	h := start(t, nil)
	h.conn.Publish(h.conn.NewMessage(bus.T("config", "blinker"), map[string]any{"blink_period_ms": 40}, true))
	require.Eventually(t, func() bool { return h.res.Ticker.Period() == 40 }, time.Second, 2*time.Millisecond)
}
