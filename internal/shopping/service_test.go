package shopping

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

type fakeSource struct {
	carts map[int64][]CartItem
	err   error
}

func (f *fakeSource) CartItems(ctx context.Context, userID int64) ([]CartItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.carts[userID], nil
}

var errRenderBroken = errors.New("renderer broken")

type fakeRenderer struct {
	err  error
	got  *Report
	body []byte
}

func (f *fakeRenderer) Render(ctx context.Context, report Report) ([]byte, error) {
	f.got = &report
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

type fakeNotifier struct {
	calls []int64
	err   error
}

func (f *fakeNotifier) PublishShoppingListExported(ctx context.Context, userID int64, report Report) error {
	f.calls = append(f.calls, userID)
	return f.err
}

type fakeRecorder struct {
	outcomes []string
}

func (f *fakeRecorder) ObserveExport(format, outcome string, rows int) {
	f.outcomes = append(f.outcomes, format+":"+outcome)
}

func fixedClock() time.Time {
	return time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC)
}

func soupCart() map[int64][]CartItem {
	return map[int64][]CartItem{
		42: {
			{RecipeID: 1, RecipeName: "Soup", Items: []LineItem{
				{IngredientID: 1, Name: "Salt", Unit: "g", Amount: 5},
				{IngredientID: 2, Name: "Water", Unit: "ml", Amount: 200},
			}},
		},
	}
}

func TestExporter_ExportPDF(t *testing.T) {
	renderer := &fakeRenderer{body: []byte("%PDF-1.3 fake")}
	notifier := &fakeNotifier{}
	recorder := &fakeRecorder{}
	exp := NewExporter(&fakeSource{carts: soupCart()}, renderer, ExporterOptions{
		Caption:  "Enjoy",
		Now:      fixedClock,
		Notifier: notifier,
		Recorder: recorder,
		Logger:   zerolog.Nop(),
	})

	doc, err := exp.Export(context.Background(), 42, "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if doc.ContentType != "application/pdf" || doc.Filename != "shopping_list.pdf" {
		t.Fatalf("unexpected document metadata: %+v", doc)
	}
	if string(doc.Body) != "%PDF-1.3 fake" {
		t.Fatalf("unexpected body %q", doc.Body)
	}
	if renderer.got == nil || renderer.got.TimestampLabel != "Jan 01 2024 10:00:00" {
		t.Fatalf("renderer did not receive expected report: %+v", renderer.got)
	}
	if renderer.got.Caption != "Enjoy" {
		t.Fatalf("expected caption Enjoy, got %q", renderer.got.Caption)
	}
	if len(notifier.calls) != 1 || notifier.calls[0] != 42 {
		t.Fatalf("expected one notification for user 42, got %v", notifier.calls)
	}
	if len(recorder.outcomes) != 1 || recorder.outcomes[0] != "pdf:ok" {
		t.Fatalf("unexpected recorded outcomes: %v", recorder.outcomes)
	}
}

func TestExporter_ExportJSON(t *testing.T) {
	exp := NewExporter(&fakeSource{carts: soupCart()}, &fakeRenderer{}, ExporterOptions{Now: fixedClock})

	doc, err := exp.Export(context.Background(), 42, FormatJSON)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if doc.ContentType != "application/json" {
		t.Fatalf("expected JSON content type, got %q", doc.ContentType)
	}

	var got Report
	if err := json.Unmarshal(doc.Body, &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.Caption != DefaultCaption {
		t.Fatalf("expected default caption, got %q", got.Caption)
	}
	if len(got.Rows) != 2 || got.Rows[1].Name != "Water" || got.Rows[1].Amount != 200 {
		t.Fatalf("unexpected rows: %+v", got.Rows)
	}
}

func TestExporter_EmptyCartRendersEmptyReport(t *testing.T) {
	renderer := &fakeRenderer{body: []byte("pdf")}
	exp := NewExporter(&fakeSource{carts: map[int64][]CartItem{}}, renderer, ExporterOptions{Now: fixedClock})

	if _, err := exp.Export(context.Background(), 7, FormatPDF); err != nil {
		t.Fatalf("export: %v", err)
	}
	if renderer.got == nil || len(renderer.got.Rows) != 0 || len(renderer.got.RecipeNames) != 0 {
		t.Fatalf("expected empty report, got %+v", renderer.got)
	}
}

func TestExporter_Failures(t *testing.T) {
	t.Run("render failure is propagated", func(t *testing.T) {
		notifier := &fakeNotifier{}
		exp := NewExporter(&fakeSource{carts: soupCart()}, &fakeRenderer{err: errRenderBroken}, ExporterOptions{Notifier: notifier})

		_, err := exp.Export(context.Background(), 42, FormatPDF)
		if !errors.Is(err, errRenderBroken) {
			t.Fatalf("expected render error, got %v", err)
		}
		if len(notifier.calls) != 0 {
			t.Fatalf("no notification expected on failure")
		}
	})

	t.Run("integrity error stops before rendering", func(t *testing.T) {
		renderer := &fakeRenderer{}
		carts := map[int64][]CartItem{1: {{RecipeName: "Bad", Items: []LineItem{{IngredientID: 1, Amount: 0}}}}}
		exp := NewExporter(&fakeSource{carts: carts}, renderer, ExporterOptions{})

		_, err := exp.Export(context.Background(), 1, FormatPDF)
		if !errors.Is(err, ErrDataIntegrity) {
			t.Fatalf("expected ErrDataIntegrity, got %v", err)
		}
		if renderer.got != nil {
			t.Fatalf("renderer must not be called")
		}
	})

	t.Run("source error is wrapped", func(t *testing.T) {
		exp := NewExporter(&fakeSource{err: errors.New("db down")}, &fakeRenderer{}, ExporterOptions{})

		_, err := exp.Export(context.Background(), 1, FormatPDF)
		if err == nil || !strings.Contains(err.Error(), "load cart") {
			t.Fatalf("expected wrapped source error, got %v", err)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		exp := NewExporter(&fakeSource{}, &fakeRenderer{}, ExporterOptions{})

		if _, err := exp.Export(context.Background(), 1, "docx"); !errors.Is(err, ErrUnknownFormat) {
			t.Fatalf("expected ErrUnknownFormat, got %v", err)
		}
	})

	t.Run("notifier failure does not fail export", func(t *testing.T) {
		exp := NewExporter(&fakeSource{carts: soupCart()}, &fakeRenderer{body: []byte("pdf")}, ExporterOptions{
			Notifier: &fakeNotifier{err: errors.New("broker down")},
			Logger:   zerolog.Nop(),
		})

		if _, err := exp.Export(context.Background(), 42, FormatPDF); err != nil {
			t.Fatalf("expected export to succeed, got %v", err)
		}
	})
}

func TestExporter_TimestampUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	exp := NewExporter(&fakeSource{}, &fakeRenderer{}, ExporterOptions{Now: fixedClock, Location: loc})

	report, err := exp.Build(context.Background(), 1)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if report.TimestampLabel != "Jan 01 2024 13:00:00" {
		t.Fatalf("unexpected label %q", report.TimestampLabel)
	}
}
