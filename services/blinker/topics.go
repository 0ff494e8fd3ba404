package blinker

import "timerbank-go/bus"

func topicConfig() bus.Topic { return bus.T("config", "blinker") }

// blinker/state (retained)
func TopicState() bus.Topic { return bus.T("blinker", "state") }

// blinker/status (retained)
func TopicStatus() bus.Topic { return bus.T("blinker", "status") }

// blinker/control/<verb>
func TopicControl(verb string) bus.Topic { return bus.T("blinker", "control", verb) }

// timer/control/<verb>
func TopicTimerControl(verb string) bus.Topic { return bus.T("timer", "control", verb) }

// timer/<id>/expired
func TopicExpired(id int) bus.Topic { return bus.T("timer", id, "expired") }

// serial/<dev>/<dir>
func TopicSerial(dev, dir string) bus.Topic { return bus.T("serial", dev, dir) }

func blinkerCtrlWildcard() bus.Topic { return bus.T("blinker", "control", "+") }
func timerCtrlWildcard() bus.Topic   { return bus.T("timer", "control", "+") }

// Control verbs.
const (
	VerbCommand = "command"
	VerbState   = "state"

	VerbAdd    = "add"
	VerbStart  = "start"
	VerbStop   = "stop"
	VerbUpdate = "update"
	VerbList   = "list"
	VerbGet    = "get"
)
