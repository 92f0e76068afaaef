package plancache

import (
	"bufio"
	"bytes"
	"fmt"
	"net/http"
)

// bytesToResponse converts a stored byte slice back to an http.Response.
func bytesToResponse(b []byte) (*http.Response, error) {
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(b)), nil)
}

// responseToBytes converts a response to a byte slice.
// It returns the HTTP/1.1 representation of the response.
// Writing a response consumes its body, so the body is set back to a
// fresh reader afterwards and the response stays usable by the caller.
func responseToBytes(res *http.Response) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := res.Write(buf); err != nil {
		return nil, fmt.Errorf("serializing response: %w", err)
	}
	bts := buf.Bytes()
	clonedRes, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(bts)), res.Request)
	if err != nil {
		return nil, fmt.Errorf("restoring response body: %w", err)
	}
	res.Body = clonedRes.Body
	return bts, nil
}
