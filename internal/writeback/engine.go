// Package writeback applies semantic field values to a target document.
package writeback

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/a3tai/formkey/internal/document"
	"github.com/a3tai/formkey/internal/formerr"
	"github.com/a3tai/formkey/internal/inventory"
	"github.com/a3tai/formkey/internal/widget"
)

// Outcome of processing one value-store entry
type Outcome string

const (
	Applied Outcome = "applied"
	Skipped Outcome = "skipped"
	Errored Outcome = "errored"
)

// FieldResult is the per-field detail of a write-back run
type FieldResult struct {
	Key         string            `json:"key"`
	FieldName   string            `json:"fieldName,omitempty"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Kind        widget.FieldKind  `json:"kind"`
	Outcome     Outcome           `json:"outcome"`
	Value       string            `json:"value,omitempty"`
	ErrorType   formerr.ErrorType `json:"errorType,omitempty"`
	Reason      string            `json:"reason,omitempty"`
}

// Result aggregates a write-back run
type Result struct {
	Applied            int           `json:"applied"`
	Skipped            int           `json:"skipped"`
	Errored            int           `json:"errored"`
	Fields             []FieldResult `json:"fields"`
	Refreshed          []string      `json:"refreshed,omitempty"`
	ShadowLayerRemoved bool          `json:"shadowLayerRemoved"`
}

func (r *Result) add(fr FieldResult) {
	switch fr.Outcome {
	case Applied:
		r.Applied++
	case Skipped:
		r.Skipped++
	case Errored:
		r.Errored++
	}
	r.Fields = append(r.Fields, fr)
}

// Engine translates a value store into document mutations. The inventory is
// read-only here, so one Engine may serve many documents, one at a time each.
type Engine struct {
	inv      *inventory.Inventory
	metadata Metadata
	mode     KeyMode
	byKey    map[string]*inventory.FieldRecord
	logger   *log.Logger
	debug    bool
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithMetadata sets the selection/dropdown option metadata
func WithMetadata(m Metadata) EngineOption {
	return func(e *Engine) { e.metadata = m }
}

// WithKeyMode sets how value-store keys address records
func WithKeyMode(mode KeyMode) EngineOption {
	return func(e *Engine) { e.mode = mode }
}

// WithLogger sets the logger; debug logs every field outcome.
func WithLogger(l *log.Logger, debug bool) EngineOption {
	return func(e *Engine) {
		e.logger = l
		e.debug = debug
	}
}

// NewEngine creates an engine over a built inventory
func NewEngine(inv *inventory.Inventory, opts ...EngineOption) *Engine {
	e := &Engine{
		inv:    inv,
		mode:   KeyUIPath,
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.byKey = make(map[string]*inventory.FieldRecord, len(inv.Records))
	for _, rec := range inv.Sorted() {
		key := KeyOf(rec, e.mode)
		if _, dup := e.byKey[key]; !dup {
			e.byKey[key] = rec
		}
	}
	return e
}

// Apply writes every value to doc and returns per-field outcomes. Field
// failures are collected in the result; an error is returned only when the
// document as a whole could not be finalized.
func (e *Engine) Apply(doc document.Document, values ValueStore) (*Result, error) {
	if doc == nil {
		return nil, formerr.New(formerr.ErrorTypeDocumentLoad, "", "no target document")
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	res := &Result{Fields: make([]FieldResult, 0, len(keys))}
	var changed []string
	for _, key := range keys {
		fr := e.applyOne(doc, key, values[key])
		if e.debug {
			e.logger.Printf("%s %s: %s %s", fr.Outcome, key, fr.Value, fr.Reason)
		}
		if fr.Outcome == Applied {
			changed = append(changed, fr.FieldName)
		}
		res.add(fr)
	}

	if len(changed) > 0 {
		if err := doc.RefreshAppearances(changed); err != nil {
			return res, formerr.Wrap(formerr.ErrorTypeMutationFailed, "", fmt.Errorf("refresh appearances: %w", err))
		}
		res.Refreshed = changed

		removed, err := doc.RemoveShadowLayer()
		if err != nil {
			return res, formerr.Wrap(formerr.ErrorTypeMutationFailed, "", fmt.Errorf("remove shadow layer: %w", err))
		}
		res.ShadowLayerRemoved = removed
	}

	e.logger.Printf("Write-back: %d applied, %d skipped, %d errored", res.Applied, res.Skipped, res.Errored)
	return res, nil
}

func (e *Engine) applyOne(doc document.Document, key string, raw any) FieldResult {
	rec, ok := e.byKey[key]
	if !ok {
		return FieldResult{
			Key:       key,
			Outcome:   Skipped,
			ErrorType: formerr.ErrorTypeUnknownFieldKind,
			Reason:    fmt.Sprintf("no inventory record for %s %q", e.mode, key),
		}
	}

	fr := FieldResult{Key: key, FieldName: rec.FieldName, Fingerprint: rec.Fingerprint, Kind: rec.FieldKind}
	if raw == nil {
		fr.Outcome = Skipped
		fr.Reason = "no value"
		return fr
	}
	if !doc.HasField(rec.FieldName) {
		return errored(fr, formerr.ErrorTypeTargetFieldAbsent, "field not present in target document")
	}

	switch rec.FieldKind {
	case widget.KindText:
		return e.applyText(doc, fr, textOf(raw))
	case widget.KindCheckbox:
		return e.applyCheckbox(doc, fr, isTruthy(raw))
	case widget.KindSelection, widget.KindDropdown:
		return e.applySelection(doc, fr, rec, raw)
	case widget.KindUnknown:
		return e.applyGeneric(doc, fr, textOf(raw))
	default:
		return e.applyGeneric(doc, fr, textOf(raw))
	}
}

func (e *Engine) applyText(doc document.Document, fr FieldResult, v string) FieldResult {
	if err := doc.SetText(fr.FieldName, v); err != nil {
		return mutationFailed(fr, err)
	}
	fr.Outcome = Applied
	fr.Value = v
	return fr
}

func (e *Engine) applyCheckbox(doc document.Document, fr FieldResult, checked bool) FieldResult {
	if err := doc.SetChecked(fr.FieldName, checked); err != nil {
		return mutationFailed(fr, err)
	}
	fr.Outcome = Applied
	fr.Value = fmt.Sprint(checked)
	return fr
}

// applySelection resolves the value through metadata (selectionValue,
// uiLabel or label; never internalState), then checks the result against
// the document's own option list before selecting the document's spelling.
func (e *Engine) applySelection(doc document.Document, fr FieldResult, rec *inventory.FieldRecord, raw any) FieldResult {
	candidate := selectionOf(raw)
	if candidate == "" {
		return skipped(fr, formerr.ErrorTypeInvalidSelectionValue, "empty selection")
	}

	resolved := strings.ToUpper(candidate)
	if md, ok := e.metadata.For(rec); ok && len(md.Options) > 0 {
		match, found := matchOption(md.Options, candidate)
		if !found {
			return skipped(fr, formerr.ErrorTypeInvalidSelectionValue,
				fmt.Sprintf("%q matches no option in field metadata", candidate))
		}
		resolved = match.SelectionValue
	}

	options, err := doc.Options(fr.FieldName)
	if err != nil {
		return mutationFailed(fr, err)
	}
	value, found := "", false
	for _, o := range options {
		if strings.EqualFold(o, resolved) {
			value, found = o, true
			break
		}
	}
	if !found {
		return skipped(fr, formerr.ErrorTypeInvalidSelectionValue,
			fmt.Sprintf("%q is not an option of the document field (options %v)", resolved, options))
	}

	if err := doc.Select(fr.FieldName, value); err != nil {
		return mutationFailed(fr, err)
	}
	fr.Outcome = Applied
	fr.Value = value
	return fr
}

func matchOption(options []Option, candidate string) (Option, bool) {
	for _, o := range options {
		if strings.EqualFold(candidate, o.SelectionValue) ||
			(o.UILabel != "" && strings.EqualFold(candidate, o.UILabel)) ||
			(o.Label != "" && strings.EqualFold(candidate, o.Label)) {
			return o, true
		}
	}
	return Option{}, false
}

func (e *Engine) applyGeneric(doc document.Document, fr FieldResult, v string) FieldResult {
	if err := doc.SetText(fr.FieldName, v); err != nil {
		if errors.Is(err, document.ErrUnsupported) {
			return errored(fr, formerr.ErrorTypeUnknownFieldKind, err.Error())
		}
		return mutationFailed(fr, err)
	}
	fr.Outcome = Applied
	fr.Value = v
	return fr
}

func skipped(fr FieldResult, t formerr.ErrorType, reason string) FieldResult {
	fr.Outcome = Skipped
	fr.ErrorType = t
	fr.Reason = reason
	return fr
}

func errored(fr FieldResult, t formerr.ErrorType, reason string) FieldResult {
	fr.Outcome = Errored
	fr.ErrorType = t
	fr.Reason = reason
	return fr
}

func mutationFailed(fr FieldResult, err error) FieldResult {
	if errors.Is(err, document.ErrFieldAbsent) {
		return errored(fr, formerr.ErrorTypeTargetFieldAbsent, err.Error())
	}
	return errored(fr, formerr.ErrorTypeMutationFailed, err.Error())
}
