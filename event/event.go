// Package event defines the dispatch envelope and the per-template outcome
// union the dispatcher returns to callers.
package event

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/scriptcore/runtime/jsonenc"
)

// Envelope is the bit-stable event shape exposed across the dispatch
// surface: a JSON object with title, base_name, name, data, uid, and an
// optional author. It is immutable after construction; Data's
// script-visible serialised form is computed at most once per invocation
// (see Envelope.ScriptForm), not per access.
type Envelope struct {
	Title    string          `json:"title"`
	BaseName string          `json:"base_name"`
	Name     string          `json:"name"`
	Data     json.RawMessage `json:"data,omitempty"`
	UID      string          `json:"uid"`
	Author   string          `json:"author,omitempty"`

	once       sync.Once
	scriptForm any
	scriptErr  error
}

// New builds an Envelope with a fresh random uid. data is marshalled
// immediately so the envelope is self-contained and independent of the
// caller's buffer.
func New(name, baseName, title string, data any, author string) (*Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Title:    title,
		BaseName: baseName,
		Name:     name,
		Data:     raw,
		UID:      uuid.NewString(),
		Author:   author,
	}, nil
}

// ScriptForm lazily unmarshals Data into a generic Go value (map/slice/
// scalar) suitable for handing to the script VM, caching the result behind
// a set-once slot. Per spec.md §4.7 / §9, this cache is safe as a plain
// sync.Once because an invocation context — and the envelope it wraps for
// the duration of one dispatch — is only ever touched from its owning
// worker thread.
func (e *Envelope) ScriptForm() (any, error) {
	e.once.Do(func() {
		if len(e.Data) == 0 {
			return
		}
		e.scriptErr = json.Unmarshal(e.Data, &e.scriptForm)
	})
	return e.scriptForm, e.scriptErr
}

// Kind classifies a per-template dispatch outcome.
type Kind int

const (
	// Ok indicates the template returned a value successfully.
	Ok Kind = iota
	// ScriptError indicates the template raised an error; the VM survives
	// unless the underlying cause was memory exhaustion.
	ScriptError
	// VmBroken indicates the VM was broken before or during the task.
	VmBroken
	// CapabilityDenied indicates a capability call lacked the required grant.
	CapabilityDenied
	// RateLimited indicates a capability call exhausted its rate budget.
	RateLimited
	// Timeout indicates the invocation or wait deadline elapsed.
	Timeout
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Ok:
		return "Ok"
	case ScriptError:
		return "ScriptError"
	case VmBroken:
		return "VmBroken"
	case CapabilityDenied:
		return "CapabilityDenied"
	case RateLimited:
		return "RateLimited"
	case Timeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// Outcome is the result of running one template against one event: exactly
// one of the Kind-tagged fields below is meaningful.
type Outcome struct {
	Kind    Kind
	Value   any    // meaningful when Kind == Ok
	Message string // meaningful for ScriptError, CapabilityDenied, RateLimited, Timeout
}

// MarshalJSON hand-encodes the outcome using jsonenc's string-escaping
// helper rather than reflection-based encoding/json, since telemetry may
// serialise one of these per dispatched template. Mirrors the buffer-append
// idiom logiface's own stumpy backend uses jsonenc for.
func (o Outcome) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 64)
	buf = append(buf, `{"kind":`...)
	buf = jsonenc.AppendString(buf, o.Kind.String())
	if o.Message != "" {
		buf = append(buf, `,"message":`...)
		buf = jsonenc.AppendString(buf, o.Message)
	}
	if o.Kind == Ok && o.Value != nil {
		val, err := json.Marshal(o.Value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, `,"value":`...)
		buf = append(buf, val...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// TemplateOutcome pairs a template name with its Outcome so callers can
// reorder results that completed out of spawn order.
type TemplateOutcome struct {
	Template string
	Outcome  Outcome
}

// MultiResult is the sequence of per-template outcomes a dispatch returns.
type MultiResult []TemplateOutcome
