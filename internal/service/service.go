// Package service runs the file-level form operations (build, reconcile,
// validate, drift, fill, entries, ranges) inside a guarded workspace.
package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/formkey/internal/entries"
	"github.com/a3tai/formkey/internal/inventory"
	"github.com/a3tai/formkey/internal/pdf/acroform"
	"github.com/a3tai/formkey/internal/pdf/headings"
	"github.com/a3tai/formkey/internal/reconcile"
	"github.com/a3tai/formkey/internal/schema"
	"github.com/a3tai/formkey/internal/semantic"
	"github.com/a3tai/formkey/internal/structure"
	"github.com/a3tai/formkey/internal/widget"
	"github.com/a3tai/formkey/internal/writeback"
)

// Options are the service settings, normally taken from config.Config.
// Artifact paths are relative to Dir unless absolute.
type Options struct {
	Dir            string
	MaxFileSize    int64
	Index          string
	Ranges         string
	Aliases        string
	Metadata       string
	Inventory      string
	LabelCacheSize int
	NameFallback   bool
	Logger         *log.Logger
	Debug          bool
}

// Service orchestrates the form components over files in one workspace
type Service struct {
	opts      Options
	workspace *Workspace
	schema    *schema.Validator
	cache     *semantic.LabelCache
	logger    *log.Logger
}

// NewService creates a service rooted at opts.Dir
func NewService(opts Options) (*Service, error) {
	ws, err := NewWorkspace(opts.Dir, opts.MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace guard: %w", err)
	}
	validator, err := schema.New()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		opts:      opts,
		workspace: ws,
		schema:    validator,
		cache:     semantic.NewLabelCache("", opts.LabelCacheSize),
		logger:    logger,
	}, nil
}

// Workspace returns the path guard
func (s *Service) Workspace() *Workspace {
	return s.workspace
}

// LabelCacheStats returns the hit/miss counters of the shared label cache
func (s *Service) LabelCacheStats() semantic.CacheStats {
	return s.cache.Stats()
}

// BuildInventory extracts widgets, resolves locations and paths, and saves
// the inventory artifact.
func (s *Service) BuildInventory(req BuildRequest) (*BuildResult, error) {
	source, err := s.workspace.ResolveInput(req.Source)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	widgets, err := s.extract(source)
	if err != nil {
		return nil, err
	}

	idx, err := s.loadIndex(firstNonEmpty(req.Index, s.opts.Index))
	if err != nil {
		return nil, err
	}
	aliases, err := s.loadAliases()
	if err != nil {
		return nil, err
	}

	version := req.Version
	if version == "" {
		if version, err = documentVersion(source); err != nil {
			return nil, err
		}
	}

	resolver := structure.NewResolver(idx, structure.WithNameFallback(s.opts.NameFallback))
	builder := inventory.NewBuilder(resolver,
		inventory.WithAliases(aliases),
		inventory.WithLabelCache(s.cache),
		inventory.WithLogger(s.logger, s.opts.Debug),
	)
	inv, err := builder.Build(version, widgets)
	if err != nil {
		return nil, err
	}

	result := &BuildResult{Version: version, Widgets: len(widgets)}
	if req.Reconcile {
		table, err := s.loadRanges("")
		if err != nil {
			return nil, err
		}
		result.Reconcile = reconcile.New(table, reconcile.WithLogger(s.logger, s.opts.Debug)).Reconcile(inv)
	}

	out, err := s.workspace.Resolve(firstNonEmpty(req.Output, s.opts.Inventory))
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	if err := inventory.Save(out, inv); err != nil {
		return nil, err
	}

	result.Path = out
	result.TotalFields = inv.TotalFields
	result.Unresolved = len(inv.Unresolved())
	result.Sections = inv.SectionSummary()
	return result, nil
}

// Reconcile corrects section assignments against the page-range table and
// saves the inventory unless DryRun is set.
func (s *Service) Reconcile(req ReconcileRequest) (*ReconcileResult, error) {
	path, inv, err := s.loadInventory(req.Inventory)
	if err != nil {
		return nil, err
	}
	table, err := s.loadRanges(req.Ranges)
	if err != nil {
		return nil, err
	}

	report := reconcile.New(table, reconcile.WithLogger(s.logger, s.opts.Debug)).Reconcile(inv)
	result := &ReconcileResult{Path: path, Report: report}
	if req.DryRun || report.CorrectedRecords == 0 {
		return result, nil
	}
	if err := inventory.Save(path, inv); err != nil {
		return nil, err
	}
	result.Saved = true
	return result, nil
}

// Validate reports section/page disagreements without changing anything
func (s *Service) Validate(req ValidateRequest) (*ValidateResult, error) {
	path, inv, err := s.loadInventory(req.Inventory)
	if err != nil {
		return nil, err
	}
	table, err := s.loadRanges(req.Ranges)
	if err != nil {
		return nil, err
	}
	return &ValidateResult{
		Path:        path,
		TotalFields: inv.TotalFields,
		Unresolved:  len(inv.Unresolved()),
		Issues:      reconcile.New(table).ValidateSectionAssignments(inv),
	}, nil
}

// DetectDrift compares a saved inventory with a fresh extraction
func (s *Service) DetectDrift(req DriftRequest) (*DriftResult, error) {
	_, inv, err := s.loadInventory(req.Inventory)
	if err != nil {
		return nil, err
	}
	source, err := s.workspace.ResolveInput(req.Source)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	live, err := s.extract(source)
	if err != nil {
		return nil, err
	}

	report := inventory.DetectDrift(inv, live)
	s.logger.Printf("Drift check %s: %d checked, %d missing, %d added, %d changed",
		inv.Version, report.Checked, len(report.Missing), len(report.Added), len(report.Changed))
	return &DriftResult{Source: source, Report: report}, nil
}

// Fill applies a value store to a PDF and writes the filled copy. The input
// PDF is never modified in place unless Output names it.
func (s *Service) Fill(req FillRequest) (*FillResult, error) {
	_, inv, err := s.loadInventory(req.Inventory)
	if err != nil {
		return nil, err
	}
	pdfPath, err := s.workspace.ResolveInput(req.PDF)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	valuesPath, err := s.workspace.ResolveInput(req.Values)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	output := req.Output
	if output == "" {
		output = strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath)) + ".filled.pdf"
	}
	output, err = s.workspace.Resolve(output)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}

	mode, err := writeback.ParseKeyMode(req.KeyMode)
	if err != nil {
		return nil, err
	}
	metadata, err := s.loadMetadata(firstNonEmpty(req.Metadata, s.opts.Metadata))
	if err != nil {
		return nil, err
	}
	values, err := writeback.LoadValues(valuesPath)
	if err != nil {
		return nil, err
	}

	form, err := acroform.Open(pdfPath, acroform.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	engine := writeback.NewEngine(inv,
		writeback.WithMetadata(metadata),
		writeback.WithKeyMode(mode),
		writeback.WithLogger(s.logger, s.opts.Debug),
	)
	res, err := engine.Apply(form, values)
	if err != nil {
		return nil, err
	}
	if err := form.Save(output); err != nil {
		return nil, err
	}
	return &FillResult{Output: output, Result: res}, nil
}

// Entries runs one entry-manager action. Manager state lives only for the
// call; StateFile carries it between calls.
func (s *Service) Entries(req EntriesRequest) (*EntriesResult, error) {
	_, inv, err := s.loadInventory(req.Inventory)
	if err != nil {
		return nil, err
	}
	manager := entries.NewManager(entries.Derive(inv))

	var statePath string
	if req.StateFile != "" {
		if statePath, err = s.workspace.Resolve(req.StateFile); err != nil {
			return nil, fmt.Errorf("security validation failed: %w", err)
		}
		if err := restoreState(manager, statePath); err != nil {
			return nil, err
		}
	}

	result := &EntriesResult{Action: req.Action, Section: req.Section, Entry: req.Entry}
	var st entries.State
	switch req.Action {
	case EntriesList, "":
		result.Action = EntriesList
		snap := manager.Snapshot()
		for _, section := range manager.Sections() {
			cfg, _ := manager.Config(section)
			result.Sections = append(result.Sections, SectionEntries{
				Section:    section,
				MaxEntries: cfg.MaxEntries,
				State:      snap[section],
			})
		}
		return result, nil
	case EntriesShow:
		st, err = manager.State(req.Section)
	case EntriesAdd:
		result.Entry, st, err = manager.AddNextEntry(req.Section)
	case EntriesRemove:
		result.ClearedFields, st, err = manager.RemoveEntry(req.Section, req.Entry)
	case EntriesToggle:
		st, err = manager.ToggleExpanded(req.Section, req.Entry)
	default:
		return nil, fmt.Errorf("unknown entries action %q", req.Action)
	}
	if err != nil {
		return nil, err
	}
	result.State = &st
	if result.ActiveFields, err = manager.ActiveFieldIDs(req.Section); err != nil {
		return nil, err
	}

	if len(result.ClearedFields) > 0 && req.Values != "" {
		if result.ClearedValues, err = s.clearValues(inv, req, result.ClearedFields); err != nil {
			return nil, err
		}
	}
	if statePath != "" && req.Action != EntriesShow {
		if err := saveState(manager, statePath); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ProposeRanges scans a PDF for section headings and compares the proposed
// page-range table with the configured one.
func (s *Service) ProposeRanges(req RangesRequest) (*RangesResult, error) {
	pdfPath, err := s.workspace.ResolveInput(req.PDF)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	configured, err := s.loadRanges(req.Ranges)
	if err != nil {
		return nil, err
	}
	proposed, found, err := headings.Discover(pdfPath)
	if err != nil {
		return nil, err
	}

	result := &RangesResult{Proposed: proposed, Headings: found, Diff: configured.Diff(proposed)}
	if req.Output != "" {
		out, err := s.workspace.Resolve(req.Output)
		if err != nil {
			return nil, fmt.Errorf("security validation failed: %w", err)
		}
		data, err := proposed.Marshal()
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write page-range table: %w", err)
		}
		result.Output = out
	}
	return result, nil
}

func (s *Service) extract(source string) ([]widget.Widget, error) {
	if strings.EqualFold(filepath.Ext(source), ".pdf") {
		return acroform.Extract(source, acroform.WithLogger(s.logger))
	}
	return widget.LoadFile(source)
}

func (s *Service) loadInventory(path string) (string, *inventory.Inventory, error) {
	resolved, err := s.workspace.ResolveInput(firstNonEmpty(path, s.opts.Inventory))
	if err != nil {
		return "", nil, fmt.Errorf("security validation failed: %w", err)
	}
	inv, err := inventory.Load(resolved)
	if err != nil {
		return "", nil, err
	}
	return resolved, inv, nil
}

// readArtifact reads a configuration artifact and checks it against its
// schema before any decoding into engine types.
func (s *Service) readArtifact(kind schema.Artifact, path string) ([]byte, error) {
	resolved, err := s.workspace.ResolveInput(path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := s.schema.Validate(kind, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Service) loadIndex(path string) (*structure.Index, error) {
	if path == "" {
		s.logger.Printf("No structural index configured; every field falls back to name patterns or stays unresolved")
		return nil, nil
	}
	data, err := s.readArtifact(schema.Index, path)
	if err != nil {
		return nil, err
	}
	return structure.ParseIndex(data)
}

// loadRanges returns the table at path, the configured table, or the
// built-in default, in that order.
func (s *Service) loadRanges(path string) (reconcile.PageRangeTable, error) {
	path = firstNonEmpty(path, s.opts.Ranges)
	if path == "" {
		return reconcile.DefaultPageRanges(), nil
	}
	data, err := s.readArtifact(schema.PageRanges, path)
	if err != nil {
		return nil, err
	}
	return reconcile.ParsePageRanges(data)
}

func (s *Service) loadMetadata(path string) (writeback.Metadata, error) {
	if path == "" {
		return nil, nil
	}
	data, err := s.readArtifact(schema.Metadata, path)
	if err != nil {
		return nil, err
	}
	return writeback.ParseMetadata(data)
}

func (s *Service) loadAliases() (semantic.Aliases, error) {
	if s.opts.Aliases == "" {
		return semantic.DefaultAliases(), nil
	}
	path, err := s.workspace.ResolveInput(s.opts.Aliases)
	if err != nil {
		return semantic.Aliases{}, fmt.Errorf("security validation failed: %w", err)
	}
	return semantic.LoadAliases(path)
}

func (s *Service) clearValues(inv *inventory.Inventory, req EntriesRequest, fingerprints []string) (int, error) {
	path, err := s.workspace.ResolveInput(req.Values)
	if err != nil {
		return 0, fmt.Errorf("security validation failed: %w", err)
	}
	mode, err := writeback.ParseKeyMode(req.KeyMode)
	if err != nil {
		return 0, err
	}
	values, err := writeback.LoadValues(path)
	if err != nil {
		return 0, err
	}
	n := values.Clear(inv, fingerprints, mode)
	if n == 0 {
		return 0, nil
	}
	return n, writeback.SaveValues(path, values)
}

func restoreState(m *entries.Manager, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read entry state: %w", err)
	}
	var saved map[string]entries.State
	if err := json.Unmarshal(data, &saved); err != nil {
		return fmt.Errorf("failed to decode entry state: %w", err)
	}
	for section, st := range saved {
		if err := m.Restore(section, st); err != nil {
			return err
		}
	}
	return nil
}

func saveState(m *entries.Manager, path string) error {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode entry state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write entry state: %w", err)
	}
	return nil
}

// documentVersion derives a version tag from the source file's name and
// content hash, so the label cache is invalidated when the document changes.
func documentVersion(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read source: %w", err)
	}
	sum := sha256.Sum256(data)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return base + "@" + hex.EncodeToString(sum[:])[:12], nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
