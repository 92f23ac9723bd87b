package shopping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const (
	// TimestampLayout renders labels such as "Jan 02 2024 10:00:00".
	TimestampLayout = "Jan 02 2006 15:04:05"
	DefaultCaption  = "Приятного аппетита"

	FormatPDF  = "pdf"
	FormatJSON = "json"
)

var ErrUnknownFormat = errors.New("shopping: unknown export format")

// CartSource returns a read-only snapshot of the recipes in a user's cart.
type CartSource interface {
	CartItems(ctx context.Context, userID int64) ([]CartItem, error)
}

// Renderer turns a report into a document. Failures must wrap render.ErrRender.
type Renderer interface {
	Render(ctx context.Context, report Report) ([]byte, error)
}

type ExportNotifier interface {
	PublishShoppingListExported(ctx context.Context, userID int64, report Report) error
}

type ExportRecorder interface {
	ObserveExport(format, outcome string, rows int)
}

type ExporterOptions struct {
	Caption  string
	Location *time.Location
	Now      func() time.Time
	Notifier ExportNotifier
	Recorder ExportRecorder
	Logger   zerolog.Logger
}

// Exporter builds shopping lists from cart snapshots and renders them.
type Exporter struct {
	source   CartSource
	renderer Renderer
	notifier ExportNotifier
	recorder ExportRecorder
	caption  string
	loc      *time.Location
	now      func() time.Time
	logger   zerolog.Logger
}

func NewExporter(source CartSource, renderer Renderer, opts ExporterOptions) *Exporter {
	e := &Exporter{
		source:   source,
		renderer: renderer,
		notifier: opts.Notifier,
		recorder: opts.Recorder,
		caption:  opts.Caption,
		loc:      opts.Location,
		now:      opts.Now,
		logger:   opts.Logger,
	}
	if e.caption == "" {
		e.caption = DefaultCaption
	}
	if e.loc == nil {
		e.loc = time.UTC
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Build fetches the cart and aggregates it into a report.
func (e *Exporter) Build(ctx context.Context, userID int64) (Report, error) {
	cart, err := e.source.CartItems(ctx, userID)
	if err != nil {
		return Report{}, fmt.Errorf("load cart: %w", err)
	}

	label := e.now().In(e.loc).Format(TimestampLayout)
	return Aggregate(cart, e.caption, label)
}

// Export builds the report and encodes it in the requested format.
// A successful export is announced through the notifier; notification
// failures are logged and do not fail the export.
func (e *Exporter) Export(ctx context.Context, userID int64, format string) (Document, error) {
	if format == "" {
		format = FormatPDF
	}
	if format != FormatPDF && format != FormatJSON {
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	report, err := e.Build(ctx, userID)
	if err != nil {
		e.observe(format, "failed", 0)
		return Document{}, err
	}

	doc := Document{Report: report}
	switch format {
	case FormatPDF:
		body, err := e.renderer.Render(ctx, report)
		if err != nil {
			e.observe(format, "render_failed", len(report.Rows))
			return Document{}, fmt.Errorf("render shopping list: %w", err)
		}
		doc.Body = body
		doc.ContentType = "application/pdf"
		doc.Filename = "shopping_list.pdf"
	case FormatJSON:
		body, err := json.Marshal(report)
		if err != nil {
			e.observe(format, "failed", len(report.Rows))
			return Document{}, fmt.Errorf("encode shopping list: %w", err)
		}
		doc.Body = body
		doc.ContentType = "application/json"
		doc.Filename = "shopping_list.json"
	}

	e.observe(format, "ok", len(report.Rows))

	if e.notifier != nil {
		if err := e.notifier.PublishShoppingListExported(ctx, userID, report); err != nil {
			e.logger.Warn().Err(err).Int64("user_id", userID).Msg("publish shopping list exported")
		}
	}

	return doc, nil
}

func (e *Exporter) observe(format, outcome string, rows int) {
	if e.recorder != nil {
		e.recorder.ObserveExport(format, outcome, rows)
	}
}
