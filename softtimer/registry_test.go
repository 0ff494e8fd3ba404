package softtimer

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"timerbank-go/errcode"
	"timerbank-go/types"
)

var _ = Describe("Registry", func() {
	var (
		reg     *Registry
		expired []int
	)

	BeforeEach(func() {
		expired = nil
		reg = New(Config{OnExpire: func(id int) { expired = append(expired, id) }})
	})

	slotOf := func(id int) types.TimerSlot {
		s, err := reg.Slot(id)
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	Context("add", func() {
		It("should claim the first free slot with remaining == duration", func() {
			id, err := reg.Add(100, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(0))

			s := slotOf(id)
			Expect(s.Duration).To(Equal(uint32(100)))
			Expect(s.Remaining).To(Equal(uint32(100)))
			Expect(s.Active).To(BeTrue())
			Expect(s.Claimed).To(BeTrue())

			id, err = reg.Add(7, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(1))
			Expect(slotOf(id).Active).To(BeFalse())
			Expect(slotOf(id).Remaining).To(Equal(uint32(7)))
		})

		It("should fail with RegistryFull and leave slots untouched", func() {
			for i := 0; i < DefaultSlots; i++ {
				_, err := reg.Add(uint32(i+1), true)
				Expect(err).NotTo(HaveOccurred())
			}
			before := reg.Snapshot()

			id, err := reg.Add(999, true)
			Expect(err).To(MatchError(errcode.RegistryFull))
			Expect(id).To(Equal(-1))
			Expect(reg.Snapshot()).To(Equal(before))
		})

		It("should reclaim a slot freed by stop", func() {
			a, _ := reg.Add(5, true)
			_, _ = reg.Add(5, true)
			Expect(reg.Stop(a)).To(Succeed())

			id, err := reg.Add(9, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(a))
			Expect(slotOf(id).Duration).To(Equal(uint32(9)))
		})

		It("should never hand out a reserved slot", func() {
			r, err := reg.Reserve(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(slotOf(r).Reserved).To(BeTrue())
			Expect(slotOf(r).Active).To(BeFalse())

			id, err := reg.Add(3, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).NotTo(Equal(r))
		})
	})

	Context("control operations", func() {
		It("should reject out-of-range ids", func() {
			for _, id := range []int{-1, DefaultSlots, 1000} {
				Expect(reg.Start(id)).To(MatchError(errcode.InvalidSlot))
				Expect(reg.Stop(id)).To(MatchError(errcode.InvalidSlot))
				Expect(reg.Update(id, 1)).To(MatchError(errcode.InvalidSlot))
				_, err := reg.Slot(id)
				Expect(err).To(MatchError(errcode.InvalidSlot))
			}
		})

		It("should reject slots that were never claimed", func() {
			Expect(reg.Start(3)).To(MatchError(errcode.UnclaimedSlot))
			Expect(reg.Stop(3)).To(MatchError(errcode.UnclaimedSlot))
			Expect(reg.Update(3, 10)).To(MatchError(errcode.UnclaimedSlot))
		})

		It("should restart from the full duration", func() {
			id, _ := reg.Add(5, true)
			reg.Tick()
			reg.Tick()
			Expect(slotOf(id).Remaining).To(Equal(uint32(3)))

			Expect(reg.Start(id)).To(Succeed())
			Expect(slotOf(id).Remaining).To(Equal(uint32(5)))
			Expect(slotOf(id).Active).To(BeTrue())
		})

		It("should reset remaining when updating an active slot", func() {
			id, _ := reg.Add(10, true)
			reg.Tick()
			Expect(reg.Update(id, 50)).To(Succeed())
			s := slotOf(id)
			Expect(s.Duration).To(Equal(uint32(50)))
			Expect(s.Remaining).To(Equal(uint32(50)))
		})

		It("should leave remaining untouched when updating an inactive slot", func() {
			id, _ := reg.Add(10, false)
			Expect(reg.Update(id, 4)).To(Succeed())
			s := slotOf(id)
			Expect(s.Duration).To(Equal(uint32(4)))
			Expect(s.Remaining).To(Equal(uint32(10)))
			Expect(s.Active).To(BeFalse())
		})
	})

	Context("tick", func() {
		It("should decrement active slots and keep them active", func() {
			id, _ := reg.Add(3, true)
			Expect(reg.Tick()).To(Equal(0))
			s := slotOf(id)
			Expect(s.Remaining).To(Equal(uint32(2)))
			Expect(s.Active).To(BeTrue())
		})

		It("should expire exactly once when remaining reaches zero", func() {
			id, _ := reg.Add(2, true)
			Expect(reg.Tick()).To(Equal(0))
			Expect(reg.Tick()).To(Equal(1))

			s := slotOf(id)
			Expect(s.Remaining).To(Equal(uint32(0)))
			Expect(s.Active).To(BeFalse())
			Expect(expired).To(Equal([]int{id}))

			for i := 0; i < 5; i++ {
				Expect(reg.Tick()).To(Equal(0))
			}
			Expect(expired).To(HaveLen(1))
		})

		It("should be a no-op on inactive slots", func() {
			id, _ := reg.Add(4, false)
			for i := 0; i < 10; i++ {
				reg.Tick()
			}
			Expect(slotOf(id).Remaining).To(Equal(uint32(4)))
			Expect(expired).To(BeEmpty())
		})

		It("should expire a zero-duration timer on the first tick", func() {
			id, _ := reg.Add(0, true)
			Expect(reg.Tick()).To(Equal(1))
			Expect(expired).To(Equal([]int{id}))
			Expect(slotOf(id).Active).To(BeFalse())
		})

		It("should stop counting after stop", func() {
			id, _ := reg.Add(5, true)
			reg.Tick()
			Expect(reg.Stop(id)).To(Succeed())
			reg.Tick()
			reg.Tick()
			Expect(slotOf(id).Remaining).To(Equal(uint32(4)))
			Expect(expired).To(BeEmpty())
		})

		It("should let the expiry handler rearm the slot", func() {
			var id int
			reg.OnExpire(func(x int) {
				expired = append(expired, x)
				Expect(reg.Rearm(x)).To(BeTrue())
			})
			id, _ = reg.Reserve(2)
			Expect(reg.Start(id)).To(Succeed())

			for i := 0; i < 6; i++ {
				reg.Tick()
			}
			Expect(expired).To(Equal([]int{id, id, id}))
			Expect(slotOf(id).Active).To(BeTrue())
		})

		It("should not rearm an active slot", func() {
			id, _ := reg.Add(3, true)
			Expect(reg.Rearm(id)).To(BeFalse())
			Expect(reg.Rearm(-1)).To(BeFalse())
		})
	})

	Context("concurrent foreground and tick", func() {
		It("should keep every slot consistent", func() {
			reg.OnExpire(nil)
			ids := make([]int, 0, DefaultSlots)
			for i := 0; i < DefaultSlots; i++ {
				id, err := reg.Add(50, true)
				Expect(err).NotTo(HaveOccurred())
				ids = append(ids, id)
			}

			var wg sync.WaitGroup
			stop := make(chan struct{})
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-stop:
						return
					default:
						reg.Tick()
					}
				}
			}()

			for n := 0; n < 2000; n++ {
				id := ids[n%len(ids)]
				switch n % 3 {
				case 0:
					Expect(reg.Update(id, uint32(n%97+1))).To(Succeed())
				case 1:
					Expect(reg.Start(id)).To(Succeed())
				default:
					Expect(reg.Stop(id)).To(Succeed())
				}
			}
			close(stop)
			wg.Wait()

			for _, s := range reg.Snapshot() {
				if s.Active {
					Expect(s.Remaining).To(BeNumerically("<=", s.Duration))
				}
			}
		})
	})
})
