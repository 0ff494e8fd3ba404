package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"timerbank-go/bus"
	"timerbank-go/platform"
	"timerbank-go/services/blinker"
	"timerbank-go/types"
)

var _ = Describe("Monitor", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		router http.Handler
	)

	do := func(method, path, contentType, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	decode := func(rec *httptest.ResponseRecorder, v any) {
		ExpectWithOffset(1, json.Unmarshal(rec.Body.Bytes(), v)).To(Succeed())
	}

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		b := bus.NewBus(16)
		res := &platform.Resources{LED: platform.NewSimPin(25), Ticker: platform.NewTicker(1000)}

		svc, err := blinker.New(res, b.NewConnection("blinker"), blinker.Options{ConfigWait: time.Millisecond})
		Expect(err).NotTo(HaveOccurred())

		status := b.NewConnection("probe").Subscribe(blinker.TopicStatus())
		go svc.Run(ctx)
		Eventually(status.Channel()).Should(Receive())

		router = NewMonitor(b.NewConnection("monitor")).WithTimeout(time.Second).Router()
	})

	AfterEach(func() {
		cancel()
	})

	It("lists every timer slot", func() {
		rec := do(http.MethodGet, "/api/timers", "", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp struct {
			OK     bool              `json:"ok"`
			Result []types.TimerSlot `json:"result"`
		}
		decode(rec, &rsp)
		Expect(rsp.OK).To(BeTrue())
		Expect(rsp.Result).To(HaveLen(10))
		Expect(rsp.Result[0].Reserved).To(BeTrue())
	})

	It("adds, reads, updates and stops a timer", func() {
		rec := do(http.MethodPost, "/api/timers", "application/json", `{"duration": 500, "auto_start": true}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
		var added struct {
			Result types.TimerAdded `json:"result"`
		}
		decode(rec, &added)
		id := added.Result.ID
		Expect(id).To(Equal(1))

		rec = do(http.MethodPut, "/api/timers/1", "application/json", `{"duration": 800}`)
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = do(http.MethodGet, "/api/timers/1", "", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var got struct {
			Result types.TimerSlot `json:"result"`
		}
		decode(rec, &got)
		Expect(got.Result.Duration).To(Equal(uint32(800)))
		Expect(got.Result.Active).To(BeTrue())

		rec = do(http.MethodPost, "/api/timers/1/stop", "", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("maps registry errors to HTTP status codes", func() {
		Expect(do(http.MethodGet, "/api/timers/42", "", "").Code).To(Equal(http.StatusNotFound))
		Expect(do(http.MethodPost, "/api/timers/5/start", "", "").Code).To(Equal(http.StatusNotFound))
		Expect(do(http.MethodPost, "/api/timers/0/stop", "", "").Code).To(Equal(http.StatusConflict))
		Expect(do(http.MethodGet, "/api/timers/99999999999999999999", "", "").Code).To(Equal(http.StatusNotFound))
		Expect(do(http.MethodPost, "/api/timers", "application/json", `{bad`).Code).To(Equal(http.StatusBadRequest))
		Expect(do(http.MethodPost, "/api/timers/1/pause", "", "").Code).To(Equal(http.StatusNotFound))
	})

	It("runs commands from plain text and JSON", func() {
		rec := do(http.MethodPost, "/api/command", "text/plain", "Led250ms\n")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var reply types.CommandReply
		decode(rec, &reply)
		Expect(reply).To(Equal(types.CommandReply{Line: "Led250ms", Response: "OK"}))

		rec = do(http.MethodPost, "/api/command", "application/json", `{"line": "Led11s"}`)
		decode(rec, &reply)
		Expect(reply.Response).To(Equal("Invalid value"))

		rec = do(http.MethodGet, "/api/led", "", "")
		var st struct {
			Result types.BlinkState `json:"result"`
		}
		decode(rec, &st)
		Expect(st.Result.PeriodMs).To(Equal(uint32(250)))
		Expect(st.Result.Running).To(BeFalse())
	})

	It("reports process resources", func() {
		rec := do(http.MethodGet, "/api/resource", "", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var rsp resourceRsp
		decode(rec, &rsp)
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("serves over a real listener", func() {
		url, err := NewMonitor(bus.NewBus(1).NewConnection("x")).StartServer(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(url).To(HavePrefix("http://127.0.0.1:"))
	})
})
