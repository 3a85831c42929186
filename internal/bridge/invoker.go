package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCallTimeout is how long a callback-style invocation waits for the
// native side before failing with a timeout.
const DefaultCallTimeout = 30 * time.Second

// Message is the payload posted to message-based transports (ios-webkit,
// react-native). The native side replies by invoking the callback registered
// under CallbackID.
type Message struct {
	Method     string `json:"method"`
	Params     any    `json:"params"`
	CallbackID string `json:"callbackId"`
}

// Invoker dispatches calls through detected bridges.
//
// For message-based transports it owns an explicit callback registry: one
// pending-result slot per call, keyed by a fresh callback ID. Slots are
// removed on delivery and on timeout, so a callback can fire at most once and
// abandoned slots never accumulate. Calls are independent - concurrent
// invocations of the same method each get their own slot.
type Invoker struct {
	host    Host
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]chan any
}

// NewInvoker creates an Invoker for the given host. A timeout of zero uses
// DefaultCallTimeout.
func NewInvoker(host Host, timeout time.Duration, logger *slog.Logger) *Invoker {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Invoker{
		host:    host,
		timeout: timeout,
		logger:  logger,
		pending: make(map[string]chan any),
	}
}

// Invoke issues an asynchronous call through the described bridge and waits
// for the result.
func (inv *Invoker) Invoke(ctx context.Context, desc Descriptor, method string, params any) (any, error) {
	inv.logger.Debug("bridge call",
		slog.String("bridge", desc.Name),
		slog.String("transport", string(desc.Transport)),
		slog.String("method", method),
	)

	switch desc.Transport {
	case TransportStandard:
		obj, ok := inv.host.PaymentObject()
		if !ok {
			return nil, NewTransportError("standard payment object no longer present")
		}
		return inv.invokeDirect(ctx, obj, desc.Name, method, params)

	case TransportIOSWebkit:
		poster, ok := inv.host.MessageHandler(desc.Name)
		if !ok {
			return nil, NewTransportError(fmt.Sprintf("ios handler %s not found", desc.Name))
		}
		return inv.postAndWait(ctx, poster, desc.Name, method, params)

	case TransportAndroid:
		obj, ok := inv.host.AndroidObject(desc.Name)
		if !ok {
			return nil, NewTransportError(fmt.Sprintf("android bridge %s not found", desc.Name))
		}
		if !hasMethod(obj, method) {
			// absent method fails immediately - never a timeout
			return nil, NewMethodNotFoundError(fmt.Sprintf("method %s not found on %s", method, desc.Name))
		}
		return obj.Invoke(ctx, method, params)

	case TransportReactNative:
		poster, ok := inv.host.ReactNativeWebView()
		if !ok {
			return nil, NewTransportError("ReactNativeWebView not found")
		}
		return inv.postAndWait(ctx, poster, desc.Name, method, params)

	case TransportFlutter:
		obj, ok := inv.host.FlutterInAppWebView()
		if !ok {
			return nil, NewTransportError("flutter_inappwebview not found")
		}
		return inv.invokeDirect(ctx, obj, desc.Name, method, params)

	default:
		return nil, NewTransportError(fmt.Sprintf("unsupported bridge transport %q", desc.Transport))
	}
}

// invokeDirect calls a method on an Object transport, failing immediately if
// the method is absent.
func (inv *Invoker) invokeDirect(ctx context.Context, obj Object, bridgeName, method string, params any) (any, error) {
	if !hasMethod(obj, method) {
		return nil, NewMethodNotFoundError(fmt.Sprintf("method %s not found on %s", method, bridgeName))
	}
	return obj.Invoke(ctx, method, params)
}

// postAndWait posts a message to the native side and waits for the one-shot
// callback registered under a fresh callback ID. The slot is released on
// every exit path.
func (inv *Invoker) postAndWait(ctx context.Context, poster MessagePoster, bridgeName, method string, params any) (any, error) {
	callbackID := "callback_" + uuid.NewString()

	slot := make(chan any, 1)
	inv.mu.Lock()
	inv.pending[callbackID] = slot
	inv.mu.Unlock()
	defer inv.release(callbackID)

	payload, err := json.Marshal(Message{Method: method, Params: params, CallbackID: callbackID})
	if err != nil {
		return nil, WrapTransportError(err, "failed to encode bridge message")
	}

	if err := poster.PostMessage(payload); err != nil {
		return nil, WrapTransportError(err, fmt.Sprintf("failed to post message to %s", bridgeName))
	}

	timer := time.NewTimer(inv.timeout)
	defer timer.Stop()

	select {
	case result := <-slot:
		return result, nil
	case <-timer.C:
		return nil, NewTimeoutError(fmt.Sprintf("%s bridge call timeout after %s (method %s)", bridgeName, inv.timeout, method))
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Callback delivers a native-side response to the pending call registered
// under callbackID. Host glue wires the environment's callback mechanism to
// this method. Returns false if no call is waiting (already delivered, timed
// out, or unknown).
func (inv *Invoker) Callback(callbackID string, result any) bool {
	inv.mu.Lock()
	slot, ok := inv.pending[callbackID]
	if ok {
		delete(inv.pending, callbackID)
	}
	inv.mu.Unlock()

	if !ok {
		return false
	}
	slot <- result
	return true
}

// PendingCallbacks reports the number of unresolved callback slots.
func (inv *Invoker) PendingCallbacks() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return len(inv.pending)
}

func (inv *Invoker) release(callbackID string) {
	inv.mu.Lock()
	delete(inv.pending, callbackID)
	inv.mu.Unlock()
}

func hasMethod(obj Object, method string) bool {
	for _, m := range obj.Methods() {
		if m == method {
			return true
		}
	}
	return false
}
