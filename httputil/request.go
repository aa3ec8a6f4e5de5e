package httputil

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/fastcore-dev/fastcore/errors"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// DecodeJSON reads the request body into dst, rejecting unknown fields and
// oversized payloads with a bad-request error.
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.BadRequest("invalid JSON body").WithDetails("error", err.Error())
	}
	return nil
}

// ClientIP resolves the originating client address, honouring
// X-Forwarded-For when the request came through a proxy.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
