package mockengine

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"mocktun/logger"
)

const forwardStreamBufSize = 32 * 1024

var forwardClient = &http.Client{
	// follow_redirects=False in pymock's forward(): the caller sees the
	// upstream's redirect response directly instead of the client chasing it.
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

// Forward proxies the current request to host:port, copying the response
// status/headers/body back into ctx, matching pymock/mock.py's forward().
// When streamReq is set, the upstream request body is produced chunk by
// chunk from ctx:request_chunk() instead of being buffered up front
// (pymock's body_producer). When streamResp is set, the upstream's status
// line, headers, and body chunks are written straight to the client as they
// arrive instead of being buffered into ctx's response fields (pymock's
// header_callback/streaming_callback).
func (c *RequestContext) Forward(host string, port int, https bool, streamReq, streamResp bool) error {
	scheme := "http"
	if https {
		scheme = "https"
	}
	portSuffix := ""
	if !((https && port == 443) || (!https && port == 80)) {
		portSuffix = fmt.Sprintf(":%d", port)
	}
	url := fmt.Sprintf("%s://%s%s%s", scheme, host, portSuffix, c.uri)

	var reqBody io.Reader
	var contentLength int
	hasContentLength := false

	if streamReq {
		pr, pw := io.Pipe()
		reqBody = pr
		go func() {
			for {
				chunk, ok, err := c.RequestChunk()
				if err != nil || !ok {
					pw.Close()
					return
				}
				if _, werr := pw.Write(chunk); werr != nil {
					pw.Close()
					return
				}
			}
		}()
	} else {
		body, err := c.RequestBody()
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(body)
		contentLength = len(body)
		hasContentLength = true
	}

	req, err := http.NewRequest(c.method, url, reqBody)
	if err != nil {
		return err
	}
	req.Header = c.header.Clone()
	req.Header.Del("Transfer-Encoding")
	req.Header.Del("Content-Encoding")
	req.Host = host + portSuffix
	req.Header.Set("Host", req.Host)
	if streamReq {
		req.Header.Del("Content-Length")
		req.ContentLength = -1
	} else if hasContentLength && contentLength > 0 {
		req.Header.Set("Content-Length", fmt.Sprintf("%d", contentLength))
		req.ContentLength = int64(contentLength)
	}

	logger.LogInfo(fmt.Sprintf("[%s] FORWARD TO %s", c.RequestID, url))
	resp, err := forwardClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.SetStatus(resp.StatusCode)
	c.respHeader = resp.Header.Clone()
	c.respHeader.Del("Transfer-Encoding")
	c.respHeader.Del("Content-Encoding")

	if streamResp {
		if err := c.writeStreamingHeader(); err != nil {
			return err
		}
		buf := make([]byte, forwardStreamBufSize)
		for {
			n, rerr := resp.Body.Read(buf)
			if n > 0 {
				if werr := c.writeStreamingChunk(buf[:n]); werr != nil {
					return werr
				}
			}
			if rerr != nil {
				if rerr == io.EOF {
					break
				}
				return rerr
			}
		}
		c.markBodyWritten()
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	c.respBody = respBody
	c.hasRespBody = true
	return nil
}
