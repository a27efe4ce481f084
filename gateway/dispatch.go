package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/petal-labs/toolgate/backend"
	"github.com/petal-labs/toolgate/schema"
)

// ErrUnknownTool is the one dispatch failure that is NOT absorbed into an
// envelope: an unknown tool name indicates a malformed caller and surfaces
// as a protocol-level fault.
type ErrUnknownTool struct {
	Name string
}

func (e *ErrUnknownTool) Error() string {
	return fmt.Sprintf("gateway: unknown tool %q", e.Name)
}

// Dispatcher validates input, invokes handlers, and wraps every outcome in
// an envelope. It holds no mutable state across calls beyond the read-only
// registry, so concurrent dispatches need no locking.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
}

// NewDispatcher builds a dispatcher over a registry. A nil logger disables
// dispatch logging.
func NewDispatcher(registry *Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{registry: registry, logger: logger}
}

// Registry exposes the descriptor table for the wire server's tools/list.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch runs one tool call. Validation failures and handler failures are
// reported inside a normal envelope; only an unknown tool name returns an
// error, which the transport layer converts into a protocol fault.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, raw map[string]any) (Envelope, error) {
	entry, ok := d.registry.lookup(name)
	if !ok {
		return Envelope{}, &ErrUnknownTool{Name: name}
	}

	callID := uuid.NewString()
	logger := d.logger.With("tool", name, "call_id", callID)
	start := time.Now()

	params, diags := schema.Validate(entry.desc.Input, raw)
	if schema.HasErrors(diags) {
		// Deliberate: validation failures are ordinary tool output, not
		// protocol faults, so calling agents can read and react to them.
		logger.Warn("input validation failed", "violations", len(diags))
		emitObservation(Observation{
			Tool:       name,
			CallID:     callID,
			DurationMS: backend.ElapsedMS(start),
			Outcome:    OutcomeInvalid,
		})
		payload := correlationFields(raw)
		payload["error"] = "Invalid input: " + schema.Summarize(diags)
		payload["diagnostics"] = diags
		return errorEnvelope(payload), nil
	}

	result, err := d.invoke(ctx, entry.handler, params)
	if err != nil {
		env := d.failureEnvelope(logger, name, params, err)
		emitObservation(Observation{
			Tool:       name,
			CallID:     callID,
			DurationMS: backend.ElapsedMS(start),
			Outcome:    OutcomeFailed,
			ErrorCode:  errorCode(err),
		})
		return env, nil
	}

	env, err := JSONEnvelope(result)
	if err != nil {
		// A result that cannot be serialized is an unexpected fault, still
		// absorbed into the envelope per the dispatch contract.
		env = d.failureEnvelope(logger, name, params, err)
		emitObservation(Observation{
			Tool:       name,
			CallID:     callID,
			DurationMS: backend.ElapsedMS(start),
			Outcome:    OutcomeFailed,
			ErrorCode:  backend.CodeUnexpected,
		})
		return env, nil
	}

	logger.Debug("dispatch completed", "duration_ms", backend.ElapsedMS(start))
	emitObservation(Observation{
		Tool:       name,
		CallID:     callID,
		DurationMS: backend.ElapsedMS(start),
		Outcome:    OutcomeOK,
	})
	return env, nil
}

// invoke shields the dispatcher from handler panics so the envelope totality
// contract holds even for programming errors.
func (d *Dispatcher) invoke(ctx context.Context, handler Handler, params schema.Params) (result any, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("handler panic: %v", recovered)
		}
	}()
	return handler(ctx, params)
}

func (d *Dispatcher) failureEnvelope(logger *slog.Logger, name string, params schema.Params, err error) Envelope {
	payload := correlationFields(params.Map())

	if backendErr, ok := backend.From(err); ok {
		logger.Warn("backend call failed",
			"code", backendErr.Code,
			"backend", backendErr.Backend,
			"error", backendErr.Message)
		payload["error"] = fmt.Sprintf("%s: %s", backendErr.Tag(), backendErr.Message)
		payload["code"] = backendErr.Code
		if backendErr.StatusCode != 0 {
			payload["statusCode"] = backendErr.StatusCode
		}
		if backendErr.Detail != "" {
			payload["detail"] = backendErr.Detail
		}
		for key, value := range backendErr.Details {
			payload[key] = value
		}
		return errorEnvelope(payload)
	}

	logger.Error("tool call failed", "error", err.Error())
	payload["error"] = "Unexpected error: " + err.Error()
	return errorEnvelope(payload)
}

// correlationFields copies the request's identifying fields into an error
// payload so callers can match failures to their own calls. Only scalar
// values are carried; nested payloads stay out of error text.
func correlationFields(values map[string]any) map[string]any {
	out := make(map[string]any, len(values)+2)
	for key, value := range values {
		switch value.(type) {
		case string, bool, int, int64, float64:
			out[key] = value
		}
	}
	return out
}

func errorCode(err error) string {
	if backendErr, ok := backend.From(err); ok {
		return backendErr.Code
	}
	return backend.CodeUnexpected
}
