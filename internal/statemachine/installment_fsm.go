package statemachine

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/sjperalta/fintera-ledger/internal/models"
)

// InstallmentFSM wraps an installment with its lifecycle
type InstallmentFSM struct {
	installment *models.Installment
	fsm         *fsm.FSM
}

// NewInstallmentFSM creates a new installment state machine
func NewInstallmentFSM(installment *models.Installment) *InstallmentFSM {
	ifsm := &InstallmentFSM{
		installment: installment,
	}

	ifsm.fsm = fsm.NewFSM(
		installment.Status,
		fsm.Events{
			// planned → posted (loan side, terminal)
			{Name: "post", Src: []string{models.InstallmentStatusPlanned}, Dst: models.InstallmentStatusPosted},

			// planned/partially_paid → partially_paid (BNPL side)
			{Name: "pay_partial", Src: []string{models.InstallmentStatusPlanned, models.InstallmentStatusPartiallyPaid}, Dst: models.InstallmentStatusPartiallyPaid},

			// planned/partially_paid → paid (BNPL side, terminal)
			{Name: "pay_full", Src: []string{models.InstallmentStatusPlanned, models.InstallmentStatusPartiallyPaid}, Dst: models.InstallmentStatusPaid},
		},
		fsm.Callbacks{},
	)

	return ifsm
}

// Post transitions the installment to posted
func (i *InstallmentFSM) Post(ctx context.Context) error {
	if !i.installment.MayPost() {
		return fmt.Errorf("installment #%d cannot be posted in current state: %s", i.installment.Sequence, i.installment.Status)
	}
	return i.fire(ctx, "post")
}

// PayPartial records a partial payment. Repeated partial payments keep the state.
func (i *InstallmentFSM) PayPartial(ctx context.Context) error {
	return i.fire(ctx, "pay_partial")
}

// PayFull marks the installment as fully paid
func (i *InstallmentFSM) PayFull(ctx context.Context) error {
	return i.fire(ctx, "pay_full")
}

func (i *InstallmentFSM) fire(ctx context.Context, event string) error {
	if err := i.fsm.Event(ctx, event); err != nil {
		var noTransition fsm.NoTransitionError
		if !errors.As(err, &noTransition) {
			return fmt.Errorf("failed to %s installment #%d: %w", event, i.installment.Sequence, err)
		}
	}

	i.installment.Status = i.fsm.Current()
	return nil
}

// Current returns the current state
func (i *InstallmentFSM) Current() string {
	return i.fsm.Current()
}

// Can checks if a transition is possible
func (i *InstallmentFSM) Can(event string) bool {
	return i.fsm.Can(event)
}
