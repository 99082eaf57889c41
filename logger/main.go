// Package logger provides colorized leveled console logging and fans every
// record out to any attached control-plane log WebSocket, the Go rendering
// of pymock/wshandler.py's logging.Handler subclass.
package logger

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/fatih/color"
)

// GetServerHost returns a colorized "http://localhost:<port>" string for
// startup banners.
func GetServerHost(addr string) string {
	urlColor := color.New(color.FgCyan).SprintFunc()
	port := addr
	if _, p, err := net.SplitHostPort(addr); err == nil {
		port = p
	}
	return urlColor(fmt.Sprintf("http://localhost:%s", port))
}

// StartupMessage prints the application banner.
func StartupMessage(version string) {
	bannerStyle.Println("mocktun " + version)
}

// LogServerStart prints a standardized "server started" line.
func LogServerStart(name, addr string) {
	LogSuccess(fmt.Sprintf("%s listening on %s", name, GetServerHost(addr)))
}

// LogRoute logs one mock/control-plane request: method, path, status, and
// duration, colorized by status-code severity (mirrors teacher's
// logger.LogRoute).
func LogRoute(method, path string, status int, duration time.Duration) {
	methodColor := color.New(color.FgHiCyan)
	switch method {
	case http.MethodGet:
		methodColor = color.New(color.FgHiGreen)
	case http.MethodPost:
		methodColor = color.New(color.FgHiCyan)
	case http.MethodPut:
		methodColor = color.New(color.FgYellow)
	case http.MethodDelete:
		methodColor = color.New(color.FgHiRed)
	case http.MethodPatch:
		methodColor = color.New(color.FgMagenta)
	}

	var statusColor *color.Color
	switch {
	case status >= 500:
		statusColor = color.New(color.FgRed, color.Bold)
	case status >= 400:
		statusColor = color.New(color.FgHiYellow)
	case status >= 300:
		statusColor = color.New(color.FgYellow)
	case status >= 200:
		statusColor = color.New(color.FgGreen)
	default:
		statusColor = color.New(color.FgWhite)
	}

	msg := fmt.Sprintf("%s %s", methodColor.Sprintf("%-6s", method), color.New(color.FgHiBlack).Sprint(path))
	if status > 0 {
		msg += " " + statusColor.Sprintf("%d %s", status, http.StatusText(status))
	}
	if duration > 0 {
		msg += " " + color.New(color.FgMagenta).Sprintf("%.2fms", float64(duration.Microseconds())/1000)
	}
	record("ROUTE", msg)
}

func LogSuccess(msg string) { record("OK", msg) }
func LogError(msg string)   { record("ERROR", msg) }
func LogWarn(msg string)    { record("WARN", msg) }
func LogInfo(msg string)    { record("INFO", msg) }
