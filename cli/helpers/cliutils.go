package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/tidwall/pretty"
)

// ErrTimeout represents a timeout error
var ErrTimeout = errors.New("operation timed out")

// CliError represents a CLI-specific error with enhanced context
type CliError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   string         `json:"details,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func (e *CliError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewCliError creates a new CLI error with context
func NewCliError(code, message string, details ...string) *CliError {
	err := &CliError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Context:   make(map[string]any),
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// WithContext adds context to the error
func (e *CliError) WithContext(key string, value any) *CliError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// IsTimeoutError checks if an error is a timeout error
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out")
}

// IsNetworkError checks if an error is a network-related error
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	networkKeywords := []string{
		"connection refused", "connection reset", "connection timeout",
		"no route to host", "network unreachable", "dns",
		"name resolution failed", "temporary failure",
	}
	for _, keyword := range networkKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// FormatError formats errors based on output mode
func FormatError(err error, mode Mode) string {
	if err == nil {
		return ""
	}
	if mode == ModeJSON {
		return formatErrorJSON(err)
	}
	return formatErrorText(err)
}

func formatErrorJSON(err error) string {
	message, details := extractErrorInfo(err)
	body := map[string]any{
		"error":   message,
		"details": details,
	}
	var cliErr *CliError
	if errors.As(err, &cliErr) && cliErr != nil {
		body["code"] = cliErr.Code
	}
	jsonBytes, marshalErr := json.MarshalIndent(body, "", "  ")
	if marshalErr != nil {
		return `{"error": "JSON marshaling failed", "details": ""}`
	}
	return string(jsonBytes)
}

func formatErrorText(err error) string {
	message, details := extractErrorInfo(err)
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	out := "✗ " + style.Render(message)
	if details != "" {
		detailStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)
		out += "\n" + detailStyle.Render("Details: "+details)
	}
	return out
}

func extractErrorInfo(err error) (message, details string) {
	var cliErr *CliError
	if errors.As(err, &cliErr) && cliErr != nil {
		return cliErr.Message, cliErr.Details
	}
	return err.Error(), ""
}

// OutputError outputs an error to stderr in the appropriate format
func OutputError(err error, mode Mode) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, FormatError(err, mode))
}

// WriteJSON writes v indented, colorized when w is an interactive stdout.
func WriteJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	data = pretty.Pretty(data)
	if f, ok := w.(*os.File); ok && f == os.Stdout && ShouldUseColor() {
		data = pretty.Color(data, nil)
	}
	_, err = w.Write(data)
	return err
}

// Truncate shortens s to maxLength runes, marking the cut with "...".
func Truncate(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	return string(runes[:maxLength-3]) + "..."
}

// LogOperation logs the start, duration and outcome of fn.
func LogOperation(ctx context.Context, operation string, fn func() error) error {
	log := logger.FromContext(ctx)
	start := time.Now()
	log.Debug("starting operation", "operation", operation)
	err := fn()
	if err != nil {
		log.Error("operation failed", "operation", operation, "duration", time.Since(start), "error", err)
		return err
	}
	log.Debug("operation completed", "operation", operation, "duration", time.Since(start))
	return nil
}
