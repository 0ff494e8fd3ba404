//go:build !rp2040 && !rp2350 && !stm32

// Package monitor serves a small HTTP API over the bus so a running
// firmware simulation can be inspected and driven from a browser or curl.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"

	"timerbank-go/bus"
	"timerbank-go/errcode"
	"timerbank-go/services/blinker"
	"timerbank-go/types"
)

const defaultTimeout = 500 * time.Millisecond

type Monitor struct {
	conn       *bus.Connection
	portNumber int
	timeout    time.Duration
	log        *slog.Logger
}

func NewMonitor(conn *bus.Connection) *Monitor {
	return &Monitor{
		conn:    conn,
		timeout: defaultTimeout,
		log:     slog.New(slog.DiscardHandler),
	}
}

// WithPortNumber sets the listen port. Ports below 1000 select a random one.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		portNumber = 0
	}
	m.portNumber = portNumber
	return m
}

func (m *Monitor) WithLogger(l *slog.Logger) *Monitor {
	if l != nil {
		m.log = l
	}
	return m
}

// WithTimeout bounds each bus request.
func (m *Monitor) WithTimeout(d time.Duration) *Monitor {
	if d > 0 {
		m.timeout = d
	}
	return m
}

func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/timers", m.listTimers).Methods(http.MethodGet)
	api.HandleFunc("/timers", m.addTimer).Methods(http.MethodPost)
	api.HandleFunc("/timers/{id:[0-9]+}", m.getTimer).Methods(http.MethodGet)
	api.HandleFunc("/timers/{id:[0-9]+}", m.updateTimer).Methods(http.MethodPut)
	api.HandleFunc("/timers/{id:[0-9]+}/{verb:start|stop}", m.startStopTimer).Methods(http.MethodPost)
	api.HandleFunc("/led", m.ledState).Methods(http.MethodGet)
	api.HandleFunc("/command", m.command).Methods(http.MethodPost)
	api.HandleFunc("/resource", m.listResources).Methods(http.MethodGet)
	return r
}

// StartServer listens and serves until ctx is done. It returns the base URL.
func (m *Monitor) StartServer(ctx context.Context) (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", err
	}
	srv := &http.Server{Handler: m.Router(), ReadHeaderTimeout: 5 * time.Second}
	url := "http://" + listener.Addr().String()
	m.log.Info("monitor listening", "url", url)

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error("monitor stopped", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()
	return url, nil
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

func (m *Monitor) listTimers(w http.ResponseWriter, r *http.Request) {
	m.forward(w, r, blinker.TopicTimerControl(blinker.VerbList), nil)
}

func (m *Monitor) getTimer(w http.ResponseWriter, r *http.Request) {
	m.forward(w, r, blinker.TopicTimerControl(blinker.VerbGet), types.TimerRef{ID: pathID(r)})
}

func (m *Monitor) addTimer(w http.ResponseWriter, r *http.Request) {
	var req types.TimerAdd
	if !readJSON(w, r, &req) {
		return
	}
	m.forward(w, r, blinker.TopicTimerControl(blinker.VerbAdd), req)
}

func (m *Monitor) updateTimer(w http.ResponseWriter, r *http.Request) {
	var req types.TimerUpdate
	if !readJSON(w, r, &req) {
		return
	}
	req.ID = pathID(r)
	m.forward(w, r, blinker.TopicTimerControl(blinker.VerbUpdate), req)
}

func (m *Monitor) startStopTimer(w http.ResponseWriter, r *http.Request) {
	verb := mux.Vars(r)["verb"]
	m.forward(w, r, blinker.TopicTimerControl(verb), types.TimerRef{ID: pathID(r)})
}

func (m *Monitor) ledState(w http.ResponseWriter, r *http.Request) {
	m.forward(w, r, blinker.TopicControl(blinker.VerbState), nil)
}

// command accepts {"line": "..."} or a plain-text body.
func (m *Monitor) command(w http.ResponseWriter, r *http.Request) {
	var req types.CommandRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if !readJSON(w, r, &req) {
			return
		}
	} else {
		b, err := io.ReadAll(io.LimitReader(r.Body, 256))
		if err != nil {
			writeError(w, http.StatusBadRequest, errcode.InvalidPayload)
			return
		}
		req.Line = strings.TrimRight(string(b), "\r\n")
	}
	m.forward(w, r, blinker.TopicControl(blinker.VerbCommand), req)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, errcode.Error)
		return
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		writeError(w, http.StatusInternalServerError, errcode.Error)
		return
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		writeError(w, http.StatusInternalServerError, errcode.Error)
		return
	}
	writeJSON(w, http.StatusOK, resourceRsp{CPUPercent: cpu, MemorySize: mem.RSS})
}

// -----------------------------------------------------------------------------
// Plumbing
// -----------------------------------------------------------------------------

func (m *Monitor) forward(w http.ResponseWriter, r *http.Request, topic bus.Topic, payload any) {
	ctx, cancel := context.WithTimeout(r.Context(), m.timeout)
	defer cancel()
	reply, err := m.conn.RequestWait(ctx, m.conn.NewMessage(topic, payload, false))
	if err != nil {
		m.log.Warn("monitor request failed", "topic", topic, "err", err)
		writeError(w, http.StatusGatewayTimeout, errcode.Of(err))
		return
	}
	if e, ok := reply.Payload.(types.ErrorReply); ok {
		writeJSON(w, statusFor(errcode.Code(e.Error)), e)
		return
	}
	writeJSON(w, http.StatusOK, reply.Payload)
}

func statusFor(c errcode.Code) int {
	switch c {
	case errcode.InvalidSlot, errcode.UnclaimedSlot, errcode.InvalidTopic:
		return http.StatusNotFound
	case errcode.RegistryFull, errcode.Busy:
		return http.StatusConflict
	case errcode.InvalidPayload, errcode.InvalidParams:
		return http.StatusBadRequest
	case errcode.Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// pathID returns -1 for ids that do not fit an int, which the registry
// rejects as out of range.
func pathID(r *http.Request) int {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		return -1
	}
	return id
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 4096))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, errcode.InvalidPayload)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, c errcode.Code) {
	writeJSON(w, status, types.ErrorReply{OK: false, Error: string(c)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
