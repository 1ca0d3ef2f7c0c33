package main

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// 1. Empty editor: empty string -> no output, no errors.
//    (TestE2EEmptySource already exists; this verifies additional invariants.)
// ---------------------------------------------------------------------------

func TestE2EEmptySourceExtended(t *testing.T) {
	app := NewApp(1, 8)
	result := app.Evaluate("")

	if len(result.Errors) != 0 {
		t.Errorf("expected 0 errors for empty source, got %d", len(result.Errors))
	}
	if len(result.Heatmaps) != 0 || len(result.Meshes) != 0 {
		t.Errorf("expected no output for empty source")
	}
	// An empty scene has no sources; that is advisory only.
	if len(result.Warnings) != 1 {
		t.Errorf("expected 1 warning for empty source, got %d", len(result.Warnings))
	}
	// Ensure slices are non-nil (JSON should serialize as [] not null).
	if result.Heatmaps == nil {
		t.Error("Heatmaps should be non-nil empty slice, got nil")
	}
	if result.Meshes == nil {
		t.Error("Meshes should be non-nil empty slice, got nil")
	}
	if result.Errors == nil {
		t.Error("Errors should be non-nil empty slice, got nil")
	}
	if result.Warnings == nil {
		t.Error("Warnings should be non-nil empty slice, got nil")
	}
}

func TestE2EWhitespaceAndComments(t *testing.T) {
	app := NewApp(1, 8)
	for _, src := range []string{"   \n\t\n  ", ";; just a comment", "  ;; comment\n\n  ;; another\n"} {
		result := app.Evaluate(src)
		if len(result.Errors) != 0 {
			t.Errorf("%q: unexpected errors %v", src, result.Errors)
		}
		if len(result.Heatmaps) != 0 {
			t.Errorf("%q: expected no heatmaps", src)
		}
	}
}

// ---------------------------------------------------------------------------
// 2. Syntax error mid-expression: unmatched parens -> eval error, no output.
// ---------------------------------------------------------------------------

func TestE2ESyntaxErrorWithLineInfo(t *testing.T) {
	app := NewApp(1, 8)

	// Put valid code on line 1, broken code on line 2 so line info is meaningful.
	source := "(+ 1 2)\n(source (vec3 0 1 0) 3"
	result := app.Evaluate(source)

	if len(result.Errors) == 0 {
		t.Fatal("expected at least one eval error for unmatched parens")
	}
	if len(result.Heatmaps) != 0 {
		t.Errorf("expected 0 heatmaps on syntax error, got %d", len(result.Heatmaps))
	}
	if result.Errors[0].Message == "" {
		t.Error("syntax error should have a non-empty message")
	}
}

func TestE2EUndefinedSymbol(t *testing.T) {
	app := NewApp(1, 8)
	result := app.Evaluate(`(source (vec3 0 1 0) strength)`)

	if len(result.Errors) == 0 {
		t.Fatal("expected an error for an undefined symbol")
	}
}

// ---------------------------------------------------------------------------
// 3. Bad geometry: rejected by validation, reported as errors.
// ---------------------------------------------------------------------------

func TestE2EInvalidIntensity(t *testing.T) {
	app := NewApp(1, 8)
	for _, src := range []string{
		`(source (vec3 0 1 0) 0)`,
		`(source (vec3 0 1 0) -2)`,
	} {
		result := app.Evaluate(src)
		if len(result.Errors) == 0 {
			t.Errorf("%s: expected an error", src)
		}
		if len(result.Heatmaps) != 0 {
			t.Errorf("%s: expected no heatmaps", src)
		}
	}
}

func TestE2ECapacityExceeded(t *testing.T) {
	app := NewApp(1, 8)
	var b strings.Builder
	b.WriteString("(limits :gpu)\n")
	for i := 0; i < 16; i++ {
		b.WriteString("(source (vec3 0 1 0) 1)\n")
	}
	result := app.Evaluate(b.String())

	if len(result.Errors) == 0 {
		t.Fatal("expected a capacity error for 16 sources under GPU limits")
	}
	if !strings.Contains(result.Errors[0].Message, "capacity") {
		t.Errorf("error = %q, want a capacity error", result.Errors[0].Message)
	}
}

func TestE2EOversizedVolumeIsAnError(t *testing.T) {
	app := NewApp(1, 8)
	result := app.Evaluate(`
(source (vec3 0 0 0) 4)
(volume :min (vec3 0 0 0) :max (vec3 1 1 1) :resolution 3000000)`)

	if len(result.Errors) == 0 {
		t.Fatal("expected an invalid grid error for an oversized volume")
	}
	if !strings.Contains(result.Errors[0].Message, "invalid grid spec") {
		t.Errorf("error = %q, want an invalid grid spec error", result.Errors[0].Message)
	}
	if len(result.Meshes) != 0 || len(result.Frames) != 0 {
		t.Error("nothing should be sampled for an oversized volume")
	}
}

// ---------------------------------------------------------------------------
// 4. Warnings: advisory findings do not block rendering.
// ---------------------------------------------------------------------------

func TestE2EWarningsStillRender(t *testing.T) {
	app := NewApp(1, 8)
	app.Resolution = 8
	result := app.Evaluate(`
(source (vec3 0 1 0) 3)
(box (vec3 2 2 2) (vec3 1 0 1))
(slab (vec3 -2 3 0) (vec3 2 0 0))`)

	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Warnings) < 2 {
		t.Errorf("expected swapped box and reversed slab warnings, got %v", result.Warnings)
	}
	if len(result.Heatmaps) != 1 {
		t.Errorf("expected 1 heatmap, got %d", len(result.Heatmaps))
	}
}

// ---------------------------------------------------------------------------
// 5. Rapid evaluation (debounce simulation): no panics, no data races.
//    Run with `go test -race` to detect data races.
// ---------------------------------------------------------------------------

func TestE2ERapidEvaluationAlternating(t *testing.T) {
	// Alternates between valid and invalid sources rapidly.
	// Ensures the engine recovers cleanly between error and success states.
	app := NewApp(2, 8)
	app.Resolution = 8

	sources := []string{
		`(source (vec3 0 1 0) 3)`,
		`(source (vec3 0 1 0)`,
		``,
		`(box (vec3 0 0 0))`,
		`(source (vec3 1 1 1) 2) (box (vec3 2 0 2) (vec3 3 2 3))`,
		`(+ 1 2)`,
		`;; just a comment`,
		`(undefined-func 1 2 3)`,
		`(source (vec3 0 1 0) 5) (plane :origin (vec3 -1 1 -1) :size-x 2 :size-z 2)`,
	}

	for i, source := range sources {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("iteration %d panicked on source %q: %v", i, source, r)
				}
			}()
			result := app.Evaluate(source)
			_ = result
		}()
	}
}

// ---------------------------------------------------------------------------
// 6. Arithmetic and variables inside the scene language.
// ---------------------------------------------------------------------------

func TestE2ENestedArithmeticDef(t *testing.T) {
	app := NewApp(1, 8)
	source := `
(def room 10)
(def half (/ room 2))
(source (vec3 0 1.1 (- half 1)) (* 2 3))
(plane :origin (vec3 (- 0 half) 1.1 (- 0 half)) :size-x room :size-z room :width 10 :height 10)`
	result := app.Evaluate(source)

	if len(result.Errors) != 0 {
		t.Fatalf("errors: %v", result.Errors)
	}
	f := result.Frames[0].Field
	if got := f.Spec.Origin; got.X != -5 || got.Z != -5 {
		t.Errorf("origin = %v, want (-5, 1.1, -5)", got)
	}
	// Cell (5, 0, 9) centre is (0.5, 1.1, 4.5), half a unit from the source.
	if d := f.At(5, 0, 9).Density; d < 0.75 {
		t.Errorf("density next to the source = %g", d)
	}
}

// ---------------------------------------------------------------------------
// 7. Volumetric output: surfaces per level, palette wraps.
// ---------------------------------------------------------------------------

func TestE2EColorPaletteWrapping(t *testing.T) {
	app := NewApp(2, 12)
	app.Levels = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}

	result := app.Evaluate(`
(source (vec3 0 0 0) 4)
(volume :min (vec3 -4 -4 -4) :max (vec3 4 4 4) :resolution 9)`)

	if len(result.Errors) > 0 {
		t.Fatalf("errors: %v", result.Errors)
	}
	if len(result.Meshes) != 9 {
		t.Fatalf("expected 9 meshes, got %d", len(result.Meshes))
	}
	for i, m := range result.Meshes {
		if m.Color == "" {
			t.Errorf("mesh %d should have a color assigned (palette wrapping)", i)
		}
		if m.Level != app.Levels[i] {
			t.Errorf("mesh %d level = %g, want %g", i, m.Level, app.Levels[i])
		}
	}
	if result.Meshes[0].Color != result.Meshes[8].Color {
		t.Errorf("palette should wrap after 8 colors: %q vs %q", result.Meshes[0].Color, result.Meshes[8].Color)
	}
}

func TestE2EIndexModeHeatmap(t *testing.T) {
	app := NewApp(1, 8)
	result := app.Evaluate(`
(evaluator :index-mode true)
(source (vec3 -2 1 0) 3)
(source (vec3 2 1 0) 3)
(plane :origin (vec3 -3 1 -1) :size-x 6 :size-z 2 :width 6 :height 2)`)

	if len(result.Errors) > 0 {
		t.Fatalf("errors: %v", result.Errors)
	}
	f := result.Frames[0].Field
	if !result.Frames[0].IndexMode {
		t.Error("frame should be in index mode")
	}
	if left, right := f.At(0, 0, 0).Dominant, f.At(5, 0, 0).Dominant; left != 0 || right != 0.5 {
		t.Errorf("dominant left %g right %g, want 0 and 0.5", left, right)
	}
}
