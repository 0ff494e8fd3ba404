//go:build !rp2040 && !rp2350 && !stm32

// Command blinkctl runs the blink firmware against simulated peripherals,
// talks to a real board over its command UART and reads bus traces.
package main

import "github.com/tebeka/atexit"

func main() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
