package mockengine

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mocktun/utils"
)

const recordingsDir = "recordings"

// writeRecording writes one request/response transcript to
// recordings/<HHMMSSffffff>-<safe path>.txt, matching pymock/mock.py
// MockMessageDelegate._process's finally block byte-for-byte.
func writeRecording(ctx *RequestContext) error {
	if err := os.MkdirAll(recordingsDir, 0755); err != nil {
		return err
	}

	timeStr := time.Now().Format("150405.000000")
	timeStr = fmt.Sprintf("%s%s", timeStr[:6], timeStr[7:])
	name := fmt.Sprintf("%s-%s.txt", timeStr, utils.SafeFilename(ctx.path))
	path := filepath.Join(recordingsDir, name)

	var buf bytes.Buffer
	buf.WriteString("===== REQUEST =====\n")
	fmt.Fprintf(&buf, "%s %s\n", ctx.method, ctx.uri)
	for name, values := range ctx.header {
		for _, v := range values {
			fmt.Fprintf(&buf, "%s: %s\n", name, v)
		}
	}
	buf.WriteString("\n")
	body, _ := ctx.RequestBody()
	buf.Write(body)

	buf.WriteString("\n===== RESPONSE =====\n")
	fmt.Fprintf(&buf, "%d %s\n", ctx.respStatus, ctx.respReason)
	for name, values := range ctx.respHeader {
		for _, v := range values {
			fmt.Fprintf(&buf, "%s: %s\n", name, v)
		}
	}
	buf.WriteString("\n")
	if ctx.hasRespBody {
		buf.Write(ctx.respBody)
	}

	return os.WriteFile(path, buf.Bytes(), 0644)
}
