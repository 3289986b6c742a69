package pulseagent

import (
	"bytes"
	"encoding/base64"
	"io"
	"runtime/pprof"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"
)

// ThreadDumper writes a textual dump of every goroutine to w.
type ThreadDumper func(w io.Writer) error

// GoroutineDump is the default [ThreadDumper]. It writes the goroutine
// profile in its most verbose text form, one stanza per goroutine headed by
// a line such as "goroutine 1 [running]:".
func GoroutineDump(w io.Writer) error {
	p := pprof.Lookup("goroutine")
	if p == nil {
		return errors.New("goroutine profile not available")
	}
	return p.WriteTo(w, 2)
}

// encodeThreadDump runs dump and returns its output gzip-compressed and
// base64-encoded.
func encodeThreadDump(dump ThreadDumper) (string, error) {
	var buf bytes.Buffer
	b64 := base64.NewEncoder(base64.StdEncoding, &buf)
	gz := gzip.NewWriter(b64)

	if err := dump(gz); err != nil {
		return "", errors.Wrap(err, "capture thread dump")
	}
	if err := gz.Close(); err != nil {
		return "", errors.Wrap(err, "compress thread dump")
	}
	if err := b64.Close(); err != nil {
		return "", errors.Wrap(err, "encode thread dump")
	}
	return buf.String(), nil
}

// DecodeThreadDump reverses the threadDumpGzip encoding: base64-decode then
// gunzip.
func DecodeThreadDump(s string) (string, error) {
	gz, err := gzip.NewReader(base64.NewDecoder(base64.StdEncoding, strings.NewReader(s)))
	if err != nil {
		return "", errors.Wrap(err, "open thread dump")
	}
	defer func() { _ = gz.Close() }()

	text, err := io.ReadAll(gz)
	if err != nil {
		return "", errors.Wrap(err, "read thread dump")
	}
	return string(text), nil
}
