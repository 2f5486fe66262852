package state_test

import (
	"dispatcher/bizerror"
	"dispatcher/domain"
	"dispatcher/domain/state"
	"errors"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("StateMachine", func() {
	var (
		stateMachine *state.StateMachine
	)

	BeforeEach(func() {
		stateMachine = state.NewStateMachine(
			[]state.State{state.Pending, state.Processing, state.Delivered},
			[]state.Transition{
				{Name: "process", From: state.Pending, To: state.Processing},
				{Name: "deliver", From: state.Processing, To: state.Delivered},
			})
	})

	Describe("AvailableTransitions", func() {
		It("should filter transitions by from and to state", func() {
			Ω(stateMachine.AvailableTransitions(domain.StatusPending, "")).Should(Equal([]state.Transition{
				{Name: "process", From: state.Pending, To: state.Processing},
			}))
			Ω(stateMachine.AvailableTransitions("", domain.StatusDelivered)).Should(Equal([]state.Transition{
				{Name: "deliver", From: state.Processing, To: state.Delivered},
			}))
			Ω(stateMachine.AvailableTransitions(domain.StatusPending, domain.StatusDelivered)).Should(BeEmpty())
			Ω(stateMachine.AvailableTransitions("", "")).Should(HaveLen(2))
		})
	})

	Describe("FindState", func() {
		It("should find known states only", func() {
			s, found := stateMachine.FindState(domain.StatusProcessing)
			Expect(found).To(BeTrue())
			Expect(s.Category).To(Equal(state.InProcess))

			_, found = stateMachine.FindState(domain.StatusCancelled)
			Expect(found).To(BeFalse())
		})
	})

	Describe("CheckTransition", func() {
		It("should reject any transition out of delivered", func() {
			for _, to := range domain.OrderStatuses {
				Expect(state.OrderLifecycle.CheckTransition(domain.StatusDelivered, to)).To(Equal(bizerror.ErrAlreadyTerminal))
			}
		})
		It("should reject same state transitions", func() {
			Expect(state.OrderLifecycle.CheckTransition(domain.StatusProcessing, domain.StatusProcessing)).
				To(Equal(bizerror.ErrRedundantTransition))
		})
		It("should be permissive for transitions outside the table", func() {
			Expect(state.OrderLifecycle.AvailableTransitions(domain.StatusCancelled, domain.StatusPending)).To(BeEmpty())
			Expect(state.OrderLifecycle.CheckTransition(domain.StatusCancelled, domain.StatusPending)).To(BeNil())
			Expect(state.OrderLifecycle.CheckTransition(domain.StatusShipped, domain.StatusPending)).To(BeNil())
		})
		It("should reject unknown target states", func() {
			err := state.OrderLifecycle.CheckTransition(domain.StatusPending, domain.OrderStatus("lost"))
			var badParam *bizerror.ErrBadParam
			Expect(errors.As(err, &badParam)).To(BeTrue())
		})
	})
})

var _ = Describe("OrderLifecycle", func() {
	It("should start with pending", func() {
		Expect(state.InitialState.Name).To(Equal(domain.StatusPending))
	})

	It("should declare every status exactly once", func() {
		Expect(state.OrderLifecycle.States).To(HaveLen(len(domain.OrderStatuses)))
		for _, s := range domain.OrderStatuses {
			_, found := state.OrderLifecycle.FindState(s)
			Expect(found).To(BeTrue(), string(s))
		}
	})

	It("should follow the documented transition table", func() {
		next := func(from domain.OrderStatus) []domain.OrderStatus {
			var r []domain.OrderStatus
			for _, t := range state.OrderLifecycle.AvailableTransitions(from, "") {
				r = append(r, t.To.Name)
			}
			return r
		}
		Expect(next(domain.StatusPending)).To(ContainElements(domain.StatusProcessing, domain.StatusCancelled, domain.StatusScheduled))
		Expect(next(domain.StatusProcessing)).To(ContainElements(domain.StatusShipped, domain.StatusDelivered, domain.StatusCancelled))
		Expect(next(domain.StatusShipped)).To(ContainElements(domain.StatusDelivered, domain.StatusCancelled))
		Expect(next(domain.StatusCancelled)).To(BeEmpty())
		Expect(next(domain.StatusRefunded)).To(BeEmpty())
		Expect(next(domain.StatusReturned)).To(BeEmpty())
	})

	It("should classify terminal statuses", func() {
		terminals := map[domain.OrderStatus]bool{domain.StatusDelivered: true, domain.StatusCancelled: true,
			domain.StatusRefunded: true, domain.StatusReturned: true}
		for _, s := range domain.OrderStatuses {
			Expect(state.IsTerminal(s)).To(Equal(terminals[s]), string(s))
			st, _ := state.OrderLifecycle.FindState(s)
			Expect(st.Category == state.Done).To(Equal(terminals[s]), string(s))
		}
		Expect(state.IsTerminal(domain.OrderStatus("lost"))).To(BeFalse())
		Expect(state.IsTerminal("")).To(BeFalse())
	})
})

var _ = Describe("EffectsOf", func() {
	started := time.Date(2021, 1, 1, 12, 0, 0, 0, time.UTC)

	It("should require startedAt for delivered", func() {
		_, err := state.EffectsOf(domain.Order{Status: domain.StatusProcessing}, domain.StatusDelivered)
		Expect(err).To(Equal(bizerror.ErrNotStarted))
	})

	It("should complete and release worker on delivered", func() {
		order := domain.Order{Status: domain.StatusProcessing, AssignedUserID: 3, AssignedAt: &started, StartedAt: &started}
		effects, err := state.EffectsOf(order, domain.StatusDelivered)
		Expect(err).To(BeNil())
		Expect(effects).To(Equal(state.Effects{Complete: true, ReleaseWorker: true}))
	})

	It("should release and clear assignment on cancellation", func() {
		order := domain.Order{Status: domain.StatusShipped, AssignedUserID: 3, AssignedAt: &started, StartedAt: &started}
		effects, err := state.EffectsOf(order, domain.StatusCancelled)
		Expect(err).To(BeNil())
		Expect(effects).To(Equal(state.Effects{ReleaseWorker: true, ClearAssignment: true}))

		effects, err = state.EffectsOf(domain.Order{Status: domain.StatusPending}, domain.StatusCancelled)
		Expect(err).To(BeNil())
		Expect(effects).To(Equal(state.Effects{}))
	})

	It("should not release twice when leaving a terminal status", func() {
		order := domain.Order{Status: domain.StatusCancelled, AssignedUserID: 3, AssignedAt: &started, StartedAt: &started}
		effects, err := state.EffectsOf(order, domain.StatusRefunded)
		Expect(err).To(BeNil())
		Expect(effects.ReleaseWorker).To(BeFalse())
	})

	It("should have no side effects for intermediate transitions", func() {
		order := domain.Order{Status: domain.StatusProcessing, AssignedUserID: 3, AssignedAt: &started, StartedAt: &started}
		effects, err := state.EffectsOf(order, domain.StatusShipped)
		Expect(err).To(BeNil())
		Expect(effects).To(Equal(state.Effects{}))
	})
})
