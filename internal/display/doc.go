// Package display renders operation results for humans on the terminal.
//
// All output goes through a Printer, which writes to any io.Writer and
// colours its output only when asked to:
//
//	p := display.NewPrinter(cmd.OutOrStdout(), display.ColorEnabled(cmd.OutOrStdout()))
//	p.Contract(report)
//	p.Drift(evidence)
//	p.Verify(result)
//
// Warnings group a title with optional detail, affected files and a
// suggestion:
//
//	p.Warning(display.Warning{
//	    Title:      "Freshness marker is stale",
//	    Files:      evidence.ChangedPaths,
//	    Suggestion: "Update docs/current_state.md",
//	})
package display
