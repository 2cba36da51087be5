// Package ui provides colored terminal output helpers for the CLI.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

const headerWidth = 60

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	stepColor    = color.New(color.FgBlue)
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgCyan)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
)

// Header prints a centered section header.
func Header(text string) {
	line := strings.Repeat("=", headerWidth)
	headerColor.Fprintln(os.Stderr, line)
	headerColor.Fprintln(os.Stderr, center(text, headerWidth))
	headerColor.Fprintln(os.Stderr, line)
}

// Step prints a numbered progress step, e.g. "[1/4] Scanning".
func Step(current, total int, text string) {
	stepColor.Fprintf(os.Stderr, "[%d/%d] %s\n", current, total, text)
}

// Success prints a green check line.
func Success(text string) {
	successColor.Fprintf(os.Stderr, "✓ %s\n", text)
}

// Info prints an informational line.
func Info(text string) {
	infoColor.Fprintf(os.Stderr, "• %s\n", text)
}

// Warning prints a yellow warning line.
func Warning(text string) {
	warningColor.Fprintf(os.Stderr, "! %s\n", text)
}

// Error prints a red error line.
func Error(text string) {
	errorColor.Fprintf(os.Stderr, "✗ %s\n", text)
}

// BlueText prints text in blue without any prefix.
func BlueText(text string) {
	stepColor.Fprintln(os.Stderr, text)
}

// YellowText prints text in yellow without any prefix.
func YellowText(text string) {
	warningColor.Fprintln(os.Stderr, text)
}

// center left-pads text so it sits in the middle of width columns. Text wider
// than width is returned unchanged.
func center(text string, width int) string {
	if len(text) >= width {
		return text
	}
	padding := (width - len(text)) / 2
	return fmt.Sprintf("%s%s", strings.Repeat(" ", padding), text)
}
