//go:build rp2040 || rp2350 || stm32

package main

import (
	"context"
	"time"

	"timerbank-go/bus"
	"timerbank-go/platform"
	"timerbank-go/services/blinker"
	"timerbank-go/services/config"
	"timerbank-go/services/heartbeat"
	"timerbank-go/types"
	"timerbank-go/x/jsonx"
)

func printTopicWith(prefix string, t bus.Topic) {
	print(prefix)
	print(" ")
	for i := 0; i < t.Len(); i++ {
		if i > 0 {
			print("/")
		}
		switch v := t.At(i).(type) {
		case string:
			print(v)
		case int:
			print(v)
		default:
			print("?")
		}
	}
	println()
}

func halt(msg string, err error) {
	println("[firmware]", msg, err.Error())
	for {
		time.Sleep(time.Second)
	}
}

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[firmware] boot", deviceID)
	ctx := context.Background()

	cfgSvc := config.NewConfigService()
	var fw types.FirmwareConfig
	if doc, err := cfgSvc.Load(deviceID); err != nil {
		println("[firmware] config:", err.Error())
	} else if err := jsonx.Decode(doc["blinker"], &fw); err != nil {
		println("[firmware] blinker config:", err.Error())
	}

	res, err := platform.Open(platform.Config{TickMs: fw.BlinkPeriodMs, Baud: fw.Baud})
	if err != nil {
		halt("platform:", err)
	}
	println("[firmware] serial", res.SerialDev, "led pin", res.LED.Number())

	b := bus.NewBus(4)
	svc, err := blinker.New(res, b.NewConnection("blinker"), blinker.Options{})
	if err != nil {
		halt("blinker:", err)
	}

	ui := b.NewConnection("ui")
	diag := ui.Subscribe(bus.T("timer", bus.Single, "expired"))
	beat := ui.Subscribe(heartbeat.TopicHeartbeat)
	go func() {
		for {
			select {
			case m := <-diag.Channel():
				printTopicWith("[timer]", m.Topic)
			case m := <-beat.Channel():
				if hb, ok := m.Payload.(types.Heartbeat); ok {
					println("[heartbeat] seq", hb.Seq, "uptime_ms", int(hb.UptimeMs))
				}
			}
		}
	}()

	hb := &heartbeat.Service{}
	if err := hb.Start(ctx, b.NewConnection("heartbeat")); err != nil {
		println("[firmware] heartbeat:", err.Error())
	}
	cfgSvc.Start(context.WithValue(ctx, config.CtxDeviceKey, deviceID), b.NewConnection("config"))

	println("[firmware] running")
	svc.Run(ctx)
}
