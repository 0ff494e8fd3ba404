package ledcmd

// Target is the blink state a command acts on.
// Each method returns once the change is committed.
type Target interface {
	Stop()
	Start()
	SetPeriod(ms uint32)
}

// Observer is told about every processed line. Optional.
type Observer func(line string, cmd Command, resp string, err error)

type Interpreter struct {
	target  Target
	observe Observer
}

func NewInterpreter(t Target, obs Observer) *Interpreter {
	return &Interpreter{target: t, observe: obs}
}

// Process executes one line and returns the response text, without terminator.
func (in *Interpreter) Process(line string) string {
	cmd, err := Parse(line)
	if err == nil {
		switch cmd.Kind {
		case KindStop:
			in.target.Stop()
		case KindStart:
			in.target.Start()
		case KindPeriod:
			in.target.SetPeriod(cmd.PeriodMs)
		}
	}
	resp := Response(err)
	if in.observe != nil {
		in.observe(line, cmd, resp, err)
	}
	return resp
}
