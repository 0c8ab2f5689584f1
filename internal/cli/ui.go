package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/svg2avd/pkg/pipeline"

	errs "github.com/matzehuels/svg2avd/pkg/errors"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// =============================================================================
// Batch Summary
// =============================================================================

// printSummary prints one table row per source, then the totals.
func printSummary(results []*pipeline.Result, s convertSummary) {
	if len(results) == 0 {
		return
	}
	fmt.Println(resultTable(results, s).Render())

	line := fmt.Sprintf("%d converted", s.converted)
	if s.cached > 0 {
		line += StyleDim.Render(" · ") + styleCached.Render(fmt.Sprintf("%d %s", s.cached, iconCached))
	}
	if s.failed == 0 {
		printSuccess("%s", line)
		return
	}
	printError("%s%s%d failed", line, StyleDim.Render(" · "), s.failed)
	if hasWarnings(results) {
		printWarning("Vector drawables do not support every SVG feature; simplify the flagged files")
	}
	printNextStep("Details", "svg2avd convert -v <file>")
}

func resultTable(results []*pipeline.Result, s convertSummary) *table.Table {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	rows := make([][]string, 0, len(results))
	for _, res := range results {
		source := filepath.Base(res.Source)
		switch {
		case res.Err != nil:
			rows = append(rows, []string{iconError, source, errs.UserMessage(res.Err)})
		case res.Cached:
			rows = append(rows, []string{iconSuccess, source, iconArrow + " " + filepath.Base(s.outputs[res.Source]) + " (" + iconCached + ")"})
		default:
			rows = append(rows, []string{iconSuccess, source, iconArrow + " " + filepath.Base(s.outputs[res.Source]) + " (" + iconFresh + ")"})
		}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Source", "Result").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row < 0 || row >= len(results) {
				return lipgloss.NewStyle()
			}
			res := results[row]
			switch {
			case res.Err != nil && col != 1:
				return styleIconError
			case res.Err != nil:
				return StyleValue
			case col == 0:
				return styleIconSuccess
			case col == 2 && res.Cached:
				return styleCached
			case col == 2:
				return styleComputed
			}
			return StyleValue
		})
}

func hasWarnings(results []*pipeline.Result) bool {
	for _, res := range results {
		var w *errs.WarningsError
		if errors.As(res.Err, &w) {
			return true
		}
	}
	return false
}
