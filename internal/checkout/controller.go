// Package checkout orchestrates a full payment attempt: prepare the order,
// hand the signed cashier parameters to the native bridge, then ask the
// backend for the authoritative result.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/khomabhena/h5-airtime/internal/bridge"
	"github.com/khomabhena/h5-airtime/internal/faults"
	"github.com/khomabhena/h5-airtime/internal/superapp"
)

// State is the controller's position in one payment attempt.
type State string

const (
	StateIdle            State = "idle"
	StatePreparing       State = "preparing"
	StateAwaitingCashier State = "awaiting_cashier"
	StateQuerying        State = "querying"
	StateSucceeded       State = "succeeded"
	StateFailed          State = "failed"
)

// Bridge methods exposed by the host payment surface.
const (
	payOrderMethod     = "payOrder"
	getAuthTokenMethod = "getAuthToken"
)

// Controller drives the payment lifecycle:
// Idle -> Preparing -> AwaitingCashier -> Querying -> Succeeded | Failed.
//
// A Controller runs one attempt at a time; construct one per session next to
// its Gateway. The cashier's immediate return value is never authoritative -
// the backend status query decides the outcome.
type Controller struct {
	gateway  *superapp.Gateway
	registry *bridge.Registry
	invoker  *bridge.Invoker
	handler  *faults.Handler
	logger   *slog.Logger

	mu    sync.Mutex
	state State
}

// Result is the outcome of one payment attempt.
type Result struct {
	State    State                   `json:"state"`
	OutBizID string                  `json:"outBizId"`
	PrepayID string                  `json:"prepayId,omitempty"`
	Status   string                  `json:"status,omitempty"`
	Query    superapp.QueryResult    `json:"query,omitempty"`
	Err      *faults.ClassifiedError `json:"error,omitempty"`
}

// NewController wires the payment gateway, bridge layer and fault handler
// into a lifecycle controller.
func NewController(gateway *superapp.Gateway, registry *bridge.Registry, invoker *bridge.Invoker, handler *faults.Handler, logger *slog.Logger) *Controller {
	return &Controller{
		gateway:  gateway,
		registry: registry,
		invoker:  invoker,
		handler:  handler,
		logger:   logger,
		state:    StateIdle,
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.logger.Debug("lifecycle state", slog.String("state", string(s)))
}

// ProcessPayment runs one full payment attempt.
//
// Preparing failures stop the attempt immediately. A missing payment bridge
// fails the attempt with an auth error; there is no fallback that skips the
// cashier. A cashier error is recorded but does not stop the attempt - the
// status query runs regardless and its outcome is final. Every error is
// classified before being surfaced; the returned Result carries the
// classified form.
func (c *Controller) ProcessPayment(ctx context.Context, req superapp.OrderRequest) (*Result, error) {
	c.setState(StatePreparing)

	prepared, err := c.gateway.PreparePayment(ctx, req)
	if err != nil {
		return c.fail("preparePayment", "", err)
	}

	c.setState(StateAwaitingCashier)

	desc, err := c.registry.FindPaymentBridge()
	if err != nil {
		// the order stays Prepared: the cashier was never shown, so the
		// order may still be abandoned with no side effects
		authErr := faults.WrapAuthError(err, "payment not supported in this environment")
		return c.fail("findPaymentBridge", prepared.OutBizID, authErr)
	}

	if err := c.gateway.TransitionOrder(prepared.OutBizID, superapp.StatusProcessing); err != nil {
		return c.fail("transitionOrder", prepared.OutBizID, err)
	}

	// the cashier's return value is advisory only; hold any error and let
	// the backend query decide
	var cashierErr error
	if _, err := c.invoker.Invoke(ctx, desc, payOrderMethod, prepared.PaymentParams); err != nil {
		cashierErr = err
		c.handler.Handle(err, "cashier")
	}

	c.setState(StateQuerying)

	query, err := c.gateway.QueryPaymentResult(ctx, prepared.OutBizID)
	if err != nil {
		if cashierErr != nil {
			err = faults.WrapPaymentError(cashierErr, fmt.Sprintf("cashier and status query both failed: %v", err))
		}
		if terr := c.gateway.TransitionOrder(prepared.OutBizID, superapp.StatusFailed); terr != nil {
			c.handler.Handle(terr, "transitionOrder")
		}
		return c.fail("queryPaymentResult", prepared.OutBizID, err)
	}

	if err := c.gateway.TransitionOrder(prepared.OutBizID, superapp.StatusCompleted); err != nil {
		c.handler.Handle(err, "transitionOrder")
	}

	c.setState(StateSucceeded)
	c.logger.Info("payment attempt succeeded",
		slog.String("outBizId", prepared.OutBizID),
		slog.String("status", query.Status()),
	)

	return &Result{
		State:    StateSucceeded,
		OutBizID: prepared.OutBizID,
		PrepayID: prepared.PrepayID,
		Status:   query.Status(),
		Query:    query,
	}, nil
}

// fail classifies err, moves the controller to Failed and returns the failed
// result alongside the original error.
func (c *Controller) fail(operation, outBizID string, err error) (*Result, error) {
	classified := c.handler.Handle(err, operation)
	c.setState(StateFailed)
	return &Result{
		State:    StateFailed,
		OutBizID: outBizID,
		Err:      &classified,
	}, err
}

// GetAuthToken requests an auth token for appID from the host environment.
// The standard payment object is preferred; any other detected payment bridge
// is used as a fallback.
func (c *Controller) GetAuthToken(ctx context.Context, appID string) (any, error) {
	desc, err := c.registry.FindPaymentBridge()
	if err != nil {
		return nil, faults.WrapAuthError(err, "auth token not available in this environment")
	}
	result, err := c.invoker.Invoke(ctx, desc, getAuthTokenMethod, map[string]string{"appId": appID})
	if err != nil {
		return nil, faults.WrapAuthError(err, "failed to get auth token")
	}
	return result, nil
}
