// Package pipeline implements the node contract layer and pipeline
// graph: each node is a small struct with a Name/Execute pair invoked by
// a shared runner, declaring a Contract of required/optional/guaranteed/
// conditional state fields that the graph validates before and after
// each run.
package pipeline

import (
	"context"
	"fmt"
	"reflect"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/faqrag/engine/internal/common"
	"github.com/faqrag/engine/internal/types"
)

var tracer = otel.Tracer("pipeline")

// Contract declares the field names (as they appear on types.State) a
// node reads and writes, per spec §4.1.
type Contract struct {
	Required    []string
	Optional    []string
	Guaranteed  []string
	Conditional []string
}

func (c Contract) allowedInputs() map[string]struct{} {
	return toSet(c.Required, c.Optional)
}

func (c Contract) allowedOutputs() map[string]struct{} {
	return toSet(c.Guaranteed, c.Conditional)
}

func toSet(lists ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, l := range lists {
		for _, f := range l {
			set[f] = struct{}{}
		}
	}
	return set
}

// Node is one pipeline stage. Body receives a *types.State already
// filtered to the node's input contract and returns a partial state to
// be merged back, per spec §4.1 steps 3-5.
type Node interface {
	Name() string
	Contract() Contract
	Execute(ctx context.Context, in *types.State) (*types.State, error)
}

// StrictMode toggles required-field enforcement and contract filtering
// globally (spec §4.1: "Validation is globally toggleable; when disabled
// the wrapper is a pass-through.").
var StrictMode = true

// ProducedSet tracks which state-bag field names have actually been
// produced by some upstream node during one request. The underlying
// Python state bag is a dict, where "required field absent" means "key
// not present"; a Go struct has no such notion (a legitimately computed
// false/zero value is indistinguishable from a field nobody ever wrote),
// so Dispatch threads this side-table alongside *types.State rather than
// probing field values for zero-ness (spec §9's design note: enforce
// field-level presence, not runtime type/value probing).
type ProducedSet map[string]struct{}

// NewProducedSet seeds a ProducedSet from whatever fields are already
// non-zero on an initial request state (the caller-supplied fields, e.g.
// Question/UserID/SessionID), for the start of a Graph.Run.
func NewProducedSet(state *types.State) ProducedSet {
	produced := make(ProducedSet)
	v := reflect.ValueOf(*state)
	zero := reflect.Zero(v.Type())
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if !reflect.DeepEqual(v.Field(i).Interface(), zero.Field(i).Interface()) {
			produced[t.Field(i).Name] = struct{}{}
		}
	}
	return produced
}

// Dispatch runs the full contract-enforcing wrapper around a node: filter
// input, open a trace span, execute, validate output, and return the
// validated partial state for the caller to merge. produced tracks which
// fields have been legitimately produced so far in the request; pass nil
// for a one-off dispatch outside a Graph.Run (required-field presence
// then falls back to a zero-value check against the input state).
func Dispatch(ctx context.Context, node Node, state *types.State, produced ProducedSet) (*types.State, error) {
	contract := node.Contract()

	if StrictMode {
		if err := checkRequired(contract, state, produced); err != nil {
			return nil, types.NewError(types.ErrMissingRequiredInput, node.Name(), err)
		}
	}

	filtered := filterInput(contract, state, StrictMode)

	ctx, span := tracer.Start(ctx, node.Name())
	defer span.End()
	span.SetAttributes(attribute.StringSlice("pipeline.input_fields",
		setKeys(contract.allowedInputs())))

	out, err := node.Execute(ctx, filtered)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	validated, touched := validateOutput(ctx, node.Name(), contract, out)
	if produced != nil {
		// Guaranteed fields are always considered present once this node
		// has dispatched (spec §4.1: "guaranteed fields not present are
		// logged but never fabricated" — the value isn't fabricated, but
		// downstream presence checks trust the contract's declaration).
		for _, name := range contract.Guaranteed {
			produced[name] = struct{}{}
		}
		// Conditional fields are only present when this node actually
		// set them this time.
		for name := range touched {
			if _, ok := contract.allowedOutputs()[name]; ok {
				produced[name] = struct{}{}
			}
		}
	}
	return validated, nil
}

func checkRequired(c Contract, state *types.State, produced ProducedSet) error {
	if produced != nil {
		for _, name := range c.Required {
			if _, ok := produced[name]; !ok {
				return fmt.Errorf("required field %q is absent", name)
			}
		}
		return nil
	}
	v := reflect.ValueOf(*state)
	for _, name := range c.Required {
		field := v.FieldByName(name)
		if !field.IsValid() {
			return fmt.Errorf("required field %q not declared on state", name)
		}
		if field.IsZero() {
			return fmt.Errorf("required field %q is absent", name)
		}
	}
	return nil
}

// filterInput returns a copy of state with only the contract's
// required+optional fields populated. When strict is false every field
// passes through unfiltered (pass-through mode, spec §4.1).
func filterInput(c Contract, state *types.State, strict bool) *types.State {
	if !strict {
		return state.Clone()
	}
	allowed := c.allowedInputs()
	full := state.Clone()
	filtered := &types.State{}
	sv := reflect.ValueOf(full).Elem()
	fv := reflect.ValueOf(filtered).Elem()
	t := sv.Type()
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Name
		if _, ok := allowed[name]; ok {
			fv.Field(i).Set(sv.Field(i))
		}
	}
	return filtered
}

// validateOutput copies every field the node is contractually allowed to
// produce (guaranteed ∪ conditional) from out into validated unconditionally
// — a field's membership in the contract, not its zero-ness, decides
// whether it belongs in the output (spec §4.1 step 4: "Validates the
// returned mapping against guaranteed∪conditional; removes undeclared
// keys"). Any other field the node actually touched is a contract
// violation, logged and stripped. touched reports every field name whose
// value differs from the zero value, for the caller to distinguish a
// conditional field the node set this time from one it left alone.
func validateOutput(ctx context.Context, nodeName string, c Contract, out *types.State) (validated *types.State, touched map[string]struct{}) {
	if out == nil {
		return &types.State{}, nil
	}
	if !StrictMode {
		return out, nil
	}
	allowed := c.allowedOutputs()
	zero := types.State{}
	validated = &types.State{}
	touched = make(map[string]struct{})

	sv := reflect.ValueOf(out).Elem()
	zv := reflect.ValueOf(&zero).Elem()
	vv := reflect.ValueOf(validated).Elem()
	t := sv.Type()
	seen := make(map[string]struct{}, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Name
		field := sv.Field(i)
		isZero := reflect.DeepEqual(field.Interface(), zv.Field(i).Interface())
		if !isZero {
			touched[name] = struct{}{}
		}
		if _, ok := allowed[name]; ok {
			vv.Field(i).Set(field)
			if !isZero {
				seen[name] = struct{}{}
			}
			continue
		}
		if !isZero {
			common.PipelineWarn(ctx, nodeName, "contract_violation", map[string]interface{}{
				"field": name,
			})
		}
	}
	for _, name := range c.Guaranteed {
		if _, ok := seen[name]; !ok {
			common.PipelineWarn(ctx, nodeName, "guaranteed_field_missing", map[string]interface{}{
				"field": name,
			})
		}
	}
	return validated, touched
}

func setKeys(s map[string]struct{}) []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}

// Merge applies a validated partial state onto base (caller-side merge,
// spec §4.1 step 5): every field named in fields is copied from patch
// into base unconditionally, including legitimate zero values (an
// all-false DialogAnalysis, a 0.0 Confidence, an empty Docs slice); a
// node's contract — not the value's zero-ness — decides what it owns.
// Fields not in the set are left untouched on base. Callers within a
// Graph.Run pass the dispatched node's Contract().allowedOutputs(); a
// nil fields set merges every field patch actually touched (legacy
// best-effort behavior for standalone, non-graph dispatch).
func Merge(base *types.State, patch *types.State, fields map[string]struct{}) *types.State {
	if patch == nil {
		return base
	}
	bv := reflect.ValueOf(base).Elem()
	pv := reflect.ValueOf(patch).Elem()
	zero := reflect.Zero(pv.Type())
	t := pv.Type()
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Name
		field := pv.Field(i)
		if fields != nil {
			if _, ok := fields[name]; ok {
				bv.Field(i).Set(field)
			}
			continue
		}
		if !reflect.DeepEqual(field.Interface(), zero.Field(i).Interface()) {
			bv.Field(i).Set(field)
		}
	}
	return base
}
