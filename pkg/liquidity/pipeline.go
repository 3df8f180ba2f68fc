package liquidity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"lp-helper/pkg/approval"
	"lp-helper/pkg/chain"
	"lp-helper/pkg/logger"
	"lp-helper/pkg/mint"
	"lp-helper/pkg/planner"
	"lp-helper/pkg/types"
)

// ErrBusy is returned when an attempt is already in progress
var ErrBusy = errors.New("submission already in progress")

// Phase is the submission state
type Phase string

const (
	Idle                 Phase = "idle"
	AwaitingConfirmation Phase = "awaiting_confirmation"
	Estimating           Phase = "estimating"
	Submitting           Phase = "submitting"
	Submitted            Phase = "submitted"
	Failed               Phase = "failed"
)

// Gateway estimates and executes plans on chain
type Gateway interface {
	EstimateGas(ctx context.Context, plan *planner.Plan) (uint64, error)
	Execute(ctx context.Context, plan *planner.Plan, gasLimit uint64) (common.Hash, error)
}

// Recorder keeps submitted transactions for later status tracking
type Recorder interface {
	Record(hash common.Hash, summary string) error
}

// Approvals checks allowances for the amounts of an attempt
type Approvals interface {
	Check(ctx context.Context, amounts map[types.Field]types.AssetAmount) (*approval.Result, error)
}

// Options are the user facing submission parameters
type Options struct {
	ExpertMode      bool
	DeadlineMinutes int
	SlippageBps     int64
	GasMarginBps    int64
	Now             func() time.Time
}

// Attempt is one resolved deposit waiting to be planned
type Attempt struct {
	Pair      types.Pair
	Derived   *mint.Derived
	Recipient common.Address
}

// Amounts returns the deposit amount of each field
func (a *Attempt) Amounts() map[types.Field]types.AssetAmount {
	return map[types.Field]types.AssetAmount{
		types.FieldA: a.Derived.Amount(types.FieldA, a.Pair.A),
		types.FieldB: a.Derived.Amount(types.FieldB, a.Pair.B),
	}
}

// Summary is the ledger description of the deposit
func (a *Attempt) Summary() string {
	amounts := a.Amounts()
	return fmt.Sprintf("Add %s %s and %s %s",
		amounts[types.FieldA].ToSignificant(3), a.Pair.A,
		amounts[types.FieldB].ToSignificant(3), a.Pair.B)
}

// Status is a snapshot of the pipeline
type Status struct {
	Phase   Phase
	TxHash  common.Hash
	Summary string
	Err     error
}

// Pipeline drives one deposit at a time from request to submission
type Pipeline struct {
	gateway   Gateway
	approvals Approvals
	recorder  Recorder
	opts      Options
	log       zerolog.Logger

	mu      sync.Mutex
	status  Status
	attempt *Attempt
	onTrans []func(from, to Phase)
}

// NewPipeline creates an idle pipeline
func NewPipeline(gateway Gateway, approvals Approvals, recorder Recorder, opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		gateway:   gateway,
		approvals: approvals,
		recorder:  recorder,
		opts:      opts,
		log:       logger.New("pipeline"),
		status:    Status{Phase: Idle},
	}
}

// OnTransition registers fn to be called after every phase change
func (p *Pipeline) OnTransition(fn func(from, to Phase)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onTrans = append(p.onTrans, fn)
}

// Status returns the current state
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Pending returns the attempt awaiting confirmation, if any
func (p *Pipeline) Pending() *Attempt {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempt
}

// transition moves to next only from one of the allowed phases
func (p *Pipeline) transition(next Status, from ...Phase) bool {
	return p.transitionWith(next, nil, from...)
}

// transitionWith is transition with set applied under the lock on success
func (p *Pipeline) transitionWith(next Status, set func(), from ...Phase) bool {
	p.mu.Lock()
	prev := p.status.Phase
	allowed := false
	for _, f := range from {
		if prev == f {
			allowed = true
			break
		}
	}
	if !allowed {
		p.mu.Unlock()
		return false
	}
	p.status = next
	if set != nil {
		set()
	}
	listeners := append([]func(from, to Phase){}, p.onTrans...)
	p.mu.Unlock()

	p.log.Debug().Str("from", string(prev)).Str("to", string(next.Phase)).Msg("transition")
	for _, fn := range listeners {
		fn(prev, next.Phase)
	}
	return true
}

// Request starts an attempt. Without expert mode the attempt waits for
// Confirm; in expert mode it is estimated and submitted right away.
func (p *Pipeline) Request(ctx context.Context, attempt *Attempt) (Status, error) {
	if attempt == nil {
		return p.Status(), fmt.Errorf("%w: nothing to submit", types.ErrInputInvalid)
	}
	if err := p.precheck(ctx, attempt); err != nil {
		return p.Status(), err
	}

	if p.opts.ExpertMode {
		if !p.transition(Status{Phase: Estimating}, Idle) {
			return p.Status(), ErrBusy
		}
		return p.run(ctx, attempt)
	}

	if !p.transitionWith(Status{Phase: AwaitingConfirmation}, func() { p.attempt = attempt }, Idle) {
		return p.Status(), ErrBusy
	}
	return p.Status(), nil
}

// Confirm submits the attempt awaiting confirmation. The attempt is taken
// in the same step that leaves AwaitingConfirmation.
func (p *Pipeline) Confirm(ctx context.Context) (Status, error) {
	var attempt *Attempt
	take := func() {
		attempt = p.attempt
		p.attempt = nil
	}
	if !p.transitionWith(Status{Phase: Estimating}, take, AwaitingConfirmation) {
		return p.Status(), ErrBusy
	}
	if attempt == nil {
		return p.fail(fmt.Errorf("%w: no attempt awaiting confirmation", types.ErrInputInvalid), Estimating)
	}
	return p.run(ctx, attempt)
}

// Decline drops the attempt awaiting confirmation
func (p *Pipeline) Decline() {
	p.transitionWith(Status{Phase: Idle}, p.dropAttempt, AwaitingConfirmation)
}

// Dismiss acknowledges a finished attempt and clears the typed value of the
// independent field
func (p *Pipeline) Dismiss(state *mint.State) {
	if p.transition(Status{Phase: Idle}, Submitted, Failed) && state != nil {
		state.ClearIndependent()
	}
}

// dropAttempt runs under p.mu
func (p *Pipeline) dropAttempt() {
	p.attempt = nil
}

func (p *Pipeline) precheck(ctx context.Context, attempt *Attempt) error {
	d := attempt.Derived
	if d == nil {
		return fmt.Errorf("%w: amounts not resolved", types.ErrInputInvalid)
	}
	if d.PairState == types.PairInvalid {
		return fmt.Errorf("%w: %s", types.ErrPairInvalid, attempt.Pair.Symbols())
	}
	if d.Err != nil {
		return d.Err
	}
	res, err := p.approvals.Check(ctx, attempt.Amounts())
	if err != nil {
		return err
	}
	return res.Err()
}

// plan builds the transaction for attempt at the current time
func (p *Pipeline) plan(attempt *Attempt) (*planner.Plan, error) {
	amounts := attempt.Amounts()
	return planner.Build(planner.Input{
		AssetA:          attempt.Pair.A,
		AssetB:          attempt.Pair.B,
		AmountA:         amounts[types.FieldA].Raw,
		AmountB:         amounts[types.FieldB].Raw,
		Recipient:       attempt.Recipient,
		Deadline:        planner.Deadline(p.opts.Now(), p.opts.DeadlineMinutes),
		MinLiquidityOut: planner.MinLiquidity(attempt.Derived.LiquidityMinted, p.opts.SlippageBps),
	})
}

// run is entered in Estimating and always leaves the pipeline in Idle,
// Submitted or Failed
func (p *Pipeline) run(ctx context.Context, attempt *Attempt) (Status, error) {
	if err := p.precheck(ctx, attempt); err != nil {
		p.transitionWith(Status{Phase: Idle}, p.dropAttempt, Estimating)
		return p.Status(), err
	}

	plan, err := p.plan(attempt)
	if err != nil {
		return p.fail(err, Estimating)
	}

	gas, err := p.gateway.EstimateGas(ctx, plan)
	if err != nil {
		if chain.IsUserRejected(err) {
			return p.abort(Estimating)
		}
		return p.fail(fmt.Errorf("%w: %v", types.ErrEstimationFailed, err), Estimating)
	}
	gasLimit := planner.WithMargin(gas, p.opts.GasMarginBps)

	if !p.transition(Status{Phase: Submitting}, Estimating) {
		return p.Status(), ErrBusy
	}

	hash, err := p.gateway.Execute(ctx, plan, gasLimit)
	if err != nil {
		if chain.IsUserRejected(err) {
			return p.abort(Submitting)
		}
		return p.fail(fmt.Errorf("%w: %v", types.ErrExecutionFailed, err), Submitting)
	}

	summary := attempt.Summary()
	if err := p.recorder.Record(hash, summary); err != nil {
		p.log.Warn().Err(err).Str("tx", hash.Hex()).Msg("failed to record transaction")
	}
	p.log.Info().Str("tx", hash.Hex()).Str("summary", summary).Uint64("gas_limit", gasLimit).Msg("liquidity submitted")

	p.transitionWith(Status{Phase: Submitted, TxHash: hash, Summary: summary}, p.dropAttempt, Submitting)
	return p.Status(), nil
}

// abort handles a declined signature: back to Idle with nothing surfaced
func (p *Pipeline) abort(from Phase) (Status, error) {
	p.log.Debug().Str("phase", string(from)).Msg("user rejected the request")
	p.transitionWith(Status{Phase: Idle}, p.dropAttempt, from)
	return p.Status(), nil
}

func (p *Pipeline) fail(err error, from Phase) (Status, error) {
	p.log.Error().Err(err).Str("phase", string(from)).Msg("liquidity submission failed")
	p.transitionWith(Status{Phase: Failed, Err: err}, p.dropAttempt, from)
	return p.Status(), err
}
