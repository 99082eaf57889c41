package logger

import (
	"fmt"
	"strings"
	"time"
)

import "github.com/fatih/color"

// Config controls console formatting, kept from the teacher's LoggerConfig.
type Config struct {
	ShowTimestamp bool
}

var LoggerConfig = Config{
	ShowTimestamp: true,
}

var (
	successStyle   = color.New(color.FgGreen, color.Bold)
	errorStyle     = color.New(color.FgRed, color.Bold)
	warnStyle      = color.New(color.FgYellow, color.Bold)
	infoStyle      = color.New(color.FgCyan)
	bannerStyle    = color.New(color.FgHiMagenta, color.Bold)
	messageStyle   = color.New(color.FgHiWhite)
	timestampStyle = color.New(color.FgHiBlack)
)

func styleFor(prefix string) *color.Color {
	switch prefix {
	case "OK":
		return successStyle
	case "ERROR":
		return errorStyle
	case "WARN":
		return warnStyle
	case "ROUTE":
		return infoStyle
	default:
		return infoStyle
	}
}

func printEmptyLines(count int) {
	if count <= 0 {
		return
	}
	fmt.Print(strings.Repeat("\n", count))
}

func printTimestamp() string {
	if LoggerConfig.ShowTimestamp {
		return timestampStyle.Sprintf("[%s] ", time.Now().Format("15:04:05"))
	}
	return ""
}

// record composes one log line, prints it, and fans it out to wsHub (ws.go)
// so a control-plane /ws/logs subscriber sees the same stream, the Go
// rendering of pymock/wshandler.py's WebsocketHandler.emit.
//
// prefix: log type (OK, ERROR, WARN, ROUTE, INFO).
// addEmptyLines: optional [0]=blank line count, [1]=position(1 before/-1 after), [2]=leading spaces.
func record(prefix, msg string, addEmptyLines ...int) {
	style := styleFor(prefix)

	n := 0
	space := 0
	position := 1
	if len(addEmptyLines) > 0 {
		n = addEmptyLines[0]
	}
	if len(addEmptyLines) > 1 {
		position = addEmptyLines[1]
	}
	if len(addEmptyLines) > 2 {
		space = addEmptyLines[2]
	}

	if position > 0 {
		printEmptyLines(n)
	}

	fmt.Print(strings.Repeat(" ", space))
	fmt.Print(printTimestamp())
	fmt.Print(style.Sprintf("[%s] ", prefix))
	fmt.Println(messageStyle.Sprint(msg))

	if position == -1 {
		printEmptyLines(n)
	}

	wsHub.broadcast(fmt.Sprintf("[%s] %s", prefix, msg))
}
