//go:build rp2040 || rp2350 || stm32

// Command ledblink toggles the board LED once a second with no timers, no
// UART and no bus. It is the first thing to flash on a new board.
package main

import (
	"time"

	"timerbank-go/platform"
)

const delay = time.Second

func main() {
	res, err := platform.Open(platform.Config{})
	if err != nil {
		println("[ledblink]", err.Error())
		return
	}
	led := res.LED
	if err := led.ConfigureOutput(false); err != nil {
		println("[ledblink]", err.Error())
		return
	}
	println("[ledblink] pin", led.Number())
	for {
		led.Toggle()
		time.Sleep(delay)
	}
}
