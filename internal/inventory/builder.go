package inventory

import (
	"io"
	"log"
	"time"

	"github.com/a3tai/formkey/internal/fingerprint"
	"github.com/a3tai/formkey/internal/formerr"
	"github.com/a3tai/formkey/internal/semantic"
	"github.com/a3tai/formkey/internal/structure"
	"github.com/a3tai/formkey/internal/widget"
)

// Builder turns a raw widget extraction into an Inventory
type Builder struct {
	resolver *structure.Resolver
	aliases  semantic.Aliases
	cache    *semantic.LabelCache
	logger   *log.Logger
	debug    bool
	now      func() time.Time
}

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithAliases sets the section/subsection alias tables used for uiPaths.
func WithAliases(a semantic.Aliases) BuilderOption {
	return func(b *Builder) { b.aliases = a }
}

// WithLabelCache injects the label cache. It is invalidated whenever a build
// runs for a different document version than the one it holds.
func WithLabelCache(c *semantic.LabelCache) BuilderOption {
	return func(b *Builder) { b.cache = c }
}

// WithLogger sets the logger; debug enables per-field output.
func WithLogger(l *log.Logger, debug bool) BuilderOption {
	return func(b *Builder) {
		b.logger = l
		b.debug = debug
	}
}

// WithClock overrides the generatedAt timestamp source
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates an inventory builder around a location resolver
func NewBuilder(resolver *structure.Resolver, opts ...BuilderOption) *Builder {
	b := &Builder{
		resolver: resolver,
		aliases:  semantic.DefaultAliases(),
		logger:   log.New(io.Discard, "", 0),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.resolver == nil {
		b.resolver = structure.NewResolver(nil)
	}
	return b
}

// Build groups the widgets, fingerprints each logical field, resolves its
// location and derives its uiPath. One record is produced per logical field.
func (b *Builder) Build(version string, widgets []widget.Widget) (*Inventory, error) {
	for _, w := range widgets {
		if err := w.Validate(); err != nil {
			return nil, &formerr.Error{Type: formerr.ErrorTypeInvalidArtifact, Field: w.FieldName, Message: "invalid widget", Err: err}
		}
	}

	cache := b.cache
	if cache == nil {
		cache = semantic.NewLabelCache(version, 0)
	} else if cache.Invalidate(version) {
		b.logger.Printf("Label cache invalidated for version %s", version)
	}
	paths := semantic.NewBuilder(b.aliases, semantic.NewLabelNormalizer(cache))

	groups := widget.Group(widgets)
	inv := New(version, b.now().UTC())

	var unresolved, disambiguated int
	for _, f := range groups.Fields {
		fp := fingerprint.ForField(f)
		if prev, dup := inv.Records[fp]; dup {
			return nil, formerr.Newf(formerr.ErrorTypeInvalidArtifact, f.FieldName,
				"fingerprint %s collides with field %q", fp, prev.FieldName)
		}

		id, _, _ := f.Representative()
		res := b.resolver.Resolve(id, f.FieldName)
		if res.Source == structure.SourceUnresolved {
			unresolved++
			if b.debug {
				b.logger.Printf("No structural mapping for %s (widget %s)", f.FieldName, id)
			}
		}

		path := paths.Build(f, res.Location)
		if path.Disambiguated {
			disambiguated++
			if b.debug {
				b.logger.Printf("uiPath %s already issued; %s gets %s", path.Base, f.FieldName, path.Value)
			}
		}

		inv.Records[fp] = &FieldRecord{
			Fingerprint:      fp,
			UIPath:           path.Value,
			FieldName:        f.FieldName,
			WidgetIDs:        append([]string(nil), f.WidgetIDs...),
			Page:             f.Page,
			Rects:            append([]widget.Rect(nil), f.Rects...),
			FieldKind:        f.RawTypeCode.Kind(),
			RawTypeCode:      f.RawTypeCode,
			Label:            f.RawLabel,
			LogicalLocation:  res.Location,
			ResolutionSource: res.Source,
			LabelSource:      path.LabelSource,
		}
	}

	inv.Reindex()
	stats := cache.Stats()
	b.logger.Printf("Built inventory %s: %d widgets, %d fields, %d unresolved, %d disambiguated paths (label cache %d hits/%d misses)",
		version, len(widgets), inv.TotalFields, unresolved, disambiguated, stats.Hits, stats.Misses)
	return inv, nil
}
