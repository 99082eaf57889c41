package mockengine

import "errors"

// ErrPeerClosed is returned by RequestContext.RequestChunk once the request
// input is already closed (end of input already seen, or the body already
// read by RequestBody), the Go analogue of pymock/mock.py's request_chunk raising IOError() once
// _input_closed is set.
var ErrPeerClosed = errors.New("mockengine: peer connection closed")
