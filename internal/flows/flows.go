// Package flows runs named server-side functions with typed JSON input and
// output. Input that fails decoding or validation is reported as an
// *InputError so callers can tell it apart from execution failures.
package flows

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var ErrUnknownFlow = errors.New("unknown flow")

type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type InputError struct {
	Issues []Issue
}

func (e *InputError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		if is.Path == "" {
			parts = append(parts, is.Message)
			continue
		}
		parts = append(parts, is.Path+": "+is.Message)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Validator is implemented by flow input types.
type Validator interface {
	Validate() []Issue
}

type Flow interface {
	Name() string
	Run(ctx context.Context, input json.RawMessage) (any, error)
}

type typedFlow[In Validator, Out any] struct {
	name string
	fn   func(context.Context, In) (Out, error)
}

// Define wraps fn as a Flow that decodes and validates its input first.
func Define[In Validator, Out any](name string, fn func(context.Context, In) (Out, error)) Flow {
	return &typedFlow[In, Out]{name: name, fn: fn}
}

func (f *typedFlow[In, Out]) Name() string { return f.name }

func (f *typedFlow[In, Out]) Run(ctx context.Context, raw json.RawMessage) (any, error) {
	var in In
	if err := decodeInput(raw, &in); err != nil {
		return nil, err
	}
	if issues := in.Validate(); len(issues) > 0 {
		return nil, &InputError{Issues: issues}
	}
	return f.fn(ctx, in)
}

// decodeInput accepts either the bare input object or the {"data": ...}
// envelope used by flow clients.
func decodeInput(raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return &InputError{Issues: []Issue{{Message: "body required"}}}
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return decodeIssue(err)
	}
	if data, ok := envelope["data"]; ok && len(envelope) == 1 {
		raw = data
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return decodeIssue(err)
	}
	return nil
}

func decodeIssue(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		path := typeErr.Field
		msg := fmt.Sprintf("expected %s, received %s", typeErr.Type.Kind(), typeErr.Value)
		if path == "" {
			msg = fmt.Sprintf("expected object, received %s", typeErr.Value)
		}
		return &InputError{Issues: []Issue{{Path: path, Message: msg}}}
	}
	return &InputError{Issues: []Issue{{Message: "malformed JSON"}}}
}

type Registry struct {
	mu    sync.RWMutex
	flows map[string]Flow
}

func NewRegistry(flows ...Flow) (*Registry, error) {
	r := &Registry{flows: make(map[string]Flow)}
	for _, f := range flows {
		if err := r.Register(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(f Flow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := f.Name()
	if name == "" {
		return errors.New("flow name required")
	}
	if _, ok := r.flows[name]; ok {
		return fmt.Errorf("flow %q already registered", name)
	}
	r.flows[name] = f
	return nil
}

func (r *Registry) Run(ctx context.Context, name string, input json.RawMessage) (any, error) {
	r.mu.RLock()
	f, ok := r.flows[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFlow, name)
	}
	return f.Run(ctx, input)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.flows))
	for name := range r.flows {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
