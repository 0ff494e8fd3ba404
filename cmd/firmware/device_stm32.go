//go:build stm32

package main

const deviceID = "stm32f4disco"
