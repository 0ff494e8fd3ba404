// cmd/boardtest/main.go
package main

import (
	"context"
	"fmt"
	"time"

	"timerbank-go/bus"
	"timerbank-go/platform"
	"timerbank-go/services/blinker"
	"timerbank-go/types"
)

// ---------- Configuration ----------

const (
	readyTimeout = 5 * time.Second
	replyTimeout = 2 * time.Second

	// Blink phase
	testPeriodMs = 50
	blinkDwell   = time.Second
	minToggles   = 10

	// Timer phase: ticks at testPeriodMs
	timerTicks  = 5
	expiryGrace = time.Second

	// Cycles: 0 = loop forever
	cyclesToRun = 3
)

// ---------- Minimal output to console + command UART ----------

type out struct {
	port platform.SerialPort
}

func (o *out) println(a ...any) {
	line := fmt.Sprintln(a...)
	print(line)
	if o.port != nil {
		_, _ = o.port.Write([]byte(line))
	}
}

// ---------- Helpers ----------

func waitReady(c *bus.Connection, d time.Duration) bool {
	sub := c.Subscribe(blinker.TopicStatus())
	defer c.Unsubscribe(sub)

	dead := time.NewTimer(d)
	defer dead.Stop()
	for {
		select {
		case m := <-sub.Channel():
			if st, ok := m.Payload.(types.ServiceState); ok && st.Level == "ready" {
				return true
			}
		case <-dead.C:
			return false
		}
	}
}

func request(ui *bus.Connection, t bus.Topic, payload any) (any, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()
	reply, err := ui.RequestWait(ctx, ui.NewMessage(t, payload, false))
	if err != nil {
		return nil, false
	}
	return reply.Payload, true
}

func command(ui *bus.Connection, line string) string {
	p, ok := request(ui, blinker.TopicControl(blinker.VerbCommand), types.CommandRequest{Line: line})
	if !ok {
		return "<no reply>"
	}
	if r, ok := p.(types.CommandReply); ok {
		return r.Response
	}
	return "<bad reply>"
}

// countToggles samples the LED for d and counts level changes.
func countToggles(led platform.Pin, d time.Duration) int {
	n := 0
	last := led.Get()
	end := time.Now().Add(d)
	for time.Now().Before(end) {
		if v := led.Get(); v != last {
			n++
			last = v
		}
		time.Sleep(5 * time.Millisecond)
	}
	return n
}

func ledFlashPassFail(ui *bus.Connection, pass bool) {
	if pass {
		// Fast flicker
		command(ui, "Led100ms")
		command(ui, "LedStart")
		time.Sleep(800 * time.Millisecond)
	} else {
		// Slow blink
		command(ui, "Led1s")
		command(ui, "LedStart")
		time.Sleep(3 * time.Second)
	}
	command(ui, "LedStop")
}

// ---------- Phases ----------

func phaseCommands(ui *bus.Connection, o *out) bool {
	cases := []struct{ line, want string }{
		{"LedStop", "OK"},
		{"Led1001ms", "Invalid value"},
		{"Led11s", "Invalid value"},
		{"Blink", "CmdError"},
		{fmt.Sprintf("Led%dms", testPeriodMs), "OK"},
	}
	ok := true
	for _, c := range cases {
		got := command(ui, c.line)
		if got != c.want {
			o.println("  FAIL", c.line, "->", got, "want", c.want)
			ok = false
		}
	}
	return ok
}

func phaseBlink(ui *bus.Connection, led platform.Pin, o *out) bool {
	command(ui, "LedStart")
	n := countToggles(led, blinkDwell)
	command(ui, "LedStop")
	o.println("  toggles in", blinkDwell, ":", n)
	if n < minToggles {
		return false
	}
	if led.Get() {
		o.println("  FAIL LED still on after LedStop")
		return false
	}
	return countToggles(led, 200*time.Millisecond) == 0
}

func phaseTimer(ui *bus.Connection, o *out) bool {
	exp := ui.Subscribe(bus.T("timer", bus.Single, "expired"))
	defer ui.Unsubscribe(exp)

	p, ok := request(ui, blinker.TopicTimerControl(blinker.VerbAdd), types.TimerAdd{Duration: timerTicks, AutoStart: true})
	if !ok {
		o.println("  FAIL add: no reply")
		return false
	}
	rep, ok := p.(types.OKReply)
	if !ok {
		o.println("  FAIL add:", p)
		return false
	}
	added, _ := rep.Result.(types.TimerAdded)

	dead := time.NewTimer(time.Duration(timerTicks*testPeriodMs)*time.Millisecond + expiryGrace)
	defer dead.Stop()
	for {
		select {
		case m := <-exp.Channel():
			if ev, ok := m.Payload.(types.TimerExpired); ok && ev.ID == added.ID {
				o.println("  timer", ev.ID, "expired")
				return true
			}
		case <-dead.C:
			o.println("  FAIL timer", added.ID, "never expired")
			return false
		}
	}
}

// ---------- Main ----------

func main() {
	ctx := context.Background()

	res, err := platform.Open(platform.Config{})
	if err != nil {
		println("[boardtest]", err.Error())
		return
	}
	o := out{port: res.Serial}
	// The test drives the firmware over the bus; the UART only carries output.
	res.Serial = nil

	b := bus.NewBus(4)
	svc, err := blinker.New(res, b.NewConnection("blinker"), blinker.Options{ConfigWait: 10 * time.Millisecond})
	if err != nil {
		o.println("[boardtest] blinker:", err)
		return
	}
	ui := b.NewConnection("ui")
	go svc.Run(ctx)

	if !waitReady(ui, readyTimeout) {
		o.println("[boardtest] blinker not ready within timeout; continuing")
	}

	for cycle := 1; cyclesToRun == 0 || cycle <= cyclesToRun; cycle++ {
		o.println("=== boardtest: cycle", cycle, "===")
		pass := true
		for _, ph := range []struct {
			name string
			run  func() bool
		}{
			{"commands", func() bool { return phaseCommands(ui, &o) }},
			{"blink", func() bool { return phaseBlink(ui, res.LED, &o) }},
			{"timer", func() bool { return phaseTimer(ui, &o) }},
		} {
			ok := ph.run()
			o.println(ph.name, map[bool]string{true: "PASS", false: "FAIL"}[ok])
			pass = pass && ok
		}
		ledFlashPassFail(ui, pass)
	}
}
