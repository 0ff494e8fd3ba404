package blinker

import (
	"timerbank-go/bus"
	"timerbank-go/errcode"
	"timerbank-go/types"
	"timerbank-go/x/jsonx"
)

func (s *Service) replyOK(m *bus.Message, result any) {
	if m.CanReply() {
		s.conn.Reply(m, types.OKReply{OK: true, Result: result}, false)
	}
}

func (s *Service) replyErr(m *bus.Message, err error) {
	if !m.CanReply() {
		return
	}
	s.conn.Reply(m, types.ErrorReply{OK: false, Error: string(errcode.Of(err))}, false)
}

func decode[T any](m *bus.Message) (T, error) {
	var v T
	if m.Payload == nil {
		return v, errcode.InvalidPayload
	}
	if err := jsonx.Decode(m.Payload, &v); err != nil {
		return v, errcode.Wrap(errcode.InvalidPayload, "decode", "", err)
	}
	return v, nil
}

// blinker/control/<verb>
func (s *Service) handleBlinkerControl(m *bus.Message) {
	verb, _ := m.Topic.At(2).(string)
	switch verb {
	case VerbCommand:
		var line string
		if str, ok := m.Payload.(string); ok {
			line = str
		} else {
			req, err := decode[types.CommandRequest](m)
			if err != nil {
				s.replyErr(m, err)
				return
			}
			line = req.Line
		}
		resp := s.interp.Process(line)
		if m.CanReply() {
			s.conn.Reply(m, types.CommandReply{Line: line, Response: resp}, false)
		}
	case VerbState:
		s.replyOK(m, s.ctrl.Snapshot())
	default:
		s.replyErr(m, errcode.InvalidTopic)
	}
}

// timer/control/<verb>
func (s *Service) handleTimerControl(m *bus.Message) {
	verb, _ := m.Topic.At(2).(string)
	switch verb {
	case VerbList:
		s.replyOK(m, s.timers.Snapshot())
	case VerbAdd:
		req, err := decode[types.TimerAdd](m)
		if err != nil {
			s.replyErr(m, err)
			return
		}
		id, err := s.timers.Add(req.Duration, req.AutoStart)
		if err != nil {
			s.replyErr(m, err)
			return
		}
		s.log.Info("timer added", "id", id, "duration", req.Duration, "auto_start", req.AutoStart)
		s.replyOK(m, types.TimerAdded{ID: id})
	case VerbGet:
		req, err := decode[types.TimerRef](m)
		if err != nil {
			s.replyErr(m, err)
			return
		}
		slot, err := s.timers.Slot(req.ID)
		if err != nil {
			s.replyErr(m, err)
			return
		}
		s.replyOK(m, slot)
	case VerbStart, VerbStop:
		req, err := decode[types.TimerRef](m)
		if err != nil {
			s.replyErr(m, err)
			return
		}
		if err := s.guard(req.ID); err != nil {
			s.replyErr(m, err)
			return
		}
		if verb == VerbStart {
			err = s.timers.Start(req.ID)
		} else {
			err = s.timers.Stop(req.ID)
		}
		if err != nil {
			s.replyErr(m, err)
			return
		}
		s.replyOK(m, nil)
	case VerbUpdate:
		req, err := decode[types.TimerUpdate](m)
		if err != nil {
			s.replyErr(m, err)
			return
		}
		if err := s.guard(req.ID); err != nil {
			s.replyErr(m, err)
			return
		}
		if err := s.timers.Update(req.ID, req.Duration); err != nil {
			s.replyErr(m, err)
			return
		}
		s.replyOK(m, nil)
	default:
		s.replyErr(m, errcode.InvalidTopic)
	}
}

// guard keeps bus clients off the blink timer; it belongs to the controller.
func (s *Service) guard(id int) error {
	if id == s.ctrl.Slot() {
		return errcode.Wrap(errcode.Busy, "timer", "slot owned by blinker", nil)
	}
	return nil
}
