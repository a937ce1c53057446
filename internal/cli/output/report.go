package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/QodeSrl/infrar-engine/pkg/core"
)

// RenderReport writes a transform run report in the renderer's mode.
func RenderReport(r *Renderer, report *core.Report) error {
	if r.EffectiveMode() == ModeJSON {
		return r.JSON(report)
	}
	renderReportText(r, report)
	return nil
}

func renderReportText(r *Renderer, report *core.Report) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header.Render(fmt.Sprintf("Transform for provider %q", report.Provider)))
	r.Println("")
	r.Printf("  %s: %d\n", styles.Bold.Render("Files"), report.Files)
	r.Printf("  %s: %d\n", styles.Bold.Render("Rewritten"), report.Rewritten)
	r.Printf("  %s: %d\n", styles.Bold.Render("Call sites converted"), report.Sites)

	if len(report.Skipped) > 0 {
		r.Printf("  %s: %d\n", styles.Warning.Render("Skipped"), len(report.Skipped))
	}
	if len(report.ParseFailures) > 0 {
		r.Printf("  %s: %d\n", styles.Error.Render("Parse failures"), len(report.ParseFailures))
	}
	r.Println("")

	if len(report.Skipped) > 0 {
		r.Println(styles.Bold.Render("Skipped call sites"))
		t := table.NewWriter()
		t.SetOutputMirror(r.Writer())
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"File", "Line", "Function", "Reason", "Detail"})
		for _, s := range report.Skipped {
			t.AppendRow(table.Row{s.File, s.Line, s.Function, s.Reason, s.Detail})
		}
		t.Render()
		r.Println("")
	}

	for _, pf := range report.ParseFailures {
		r.Println(styles.Error.Render("parse failure: ") + pf.Message)
	}

	if report.OK() {
		r.Println(styles.Success.Render("OK"))
	} else {
		r.Println(styles.Error.Render("FAILED") + styles.Muted.Render(" (some files could not be parsed)"))
	}
}

// CallSiteRow is one recognized call site in a scan listing.
type CallSiteRow struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
	Function string `json:"function"`
	Context  string `json:"context"`
}

// ScanListing is the scan command's result: every recognized call site plus
// any files that failed to parse.
type ScanListing struct {
	Sites         []CallSiteRow       `json:"sites"`
	ParseFailures []core.ParseFailure `json:"parse_failures,omitempty"`
}

// RenderScan writes a scan listing in the renderer's mode.
func RenderScan(r *Renderer, listing *ScanListing) error {
	if r.EffectiveMode() == ModeJSON {
		return r.JSON(listing)
	}

	styles := r.Styles()
	r.Println("")
	r.Println(styles.Header.Render(fmt.Sprintf("Recognized call sites (%d)", len(listing.Sites))))

	if len(listing.Sites) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(r.Writer())
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"File", "Line", "Col", "Function", "Context"})
		for _, s := range listing.Sites {
			t.AppendRow(table.Row{s.File, s.Line, s.Col, s.Function, s.Context})
		}
		t.Render()
	}
	r.Println("")

	for _, pf := range listing.ParseFailures {
		r.Println(styles.Error.Render("parse failure: ") + pf.Message)
	}
	return nil
}
