package handlers

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenBody struct {
	r      io.Reader
	closed bool
}

func (b *brokenBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if errors.Is(err, io.EOF) {
		return n, errors.New("connection reset by bucket")
	}
	return n, err
}

func (b *brokenBody) Close() error {
	b.closed = true
	return nil
}

func TestStreamLoggerReportsInterruptedDownload(t *testing.T) {
	var logs bytes.Buffer
	body := &brokenBody{r: strings.NewReader("partial")}
	s := &streamLogger{ReadCloser: body, log: zerolog.New(&logs), key: "files/report.pdf", requestID: "req-42"}

	data, err := io.ReadAll(s)
	require.Error(t, err)
	assert.Equal(t, "partial", string(data))
	require.NoError(t, s.Close())
	assert.True(t, body.closed)

	out := logs.String()
	assert.Contains(t, out, `"requestid":"req-42"`)
	assert.Contains(t, out, `"key":"files/report.pdf"`)
	assert.Contains(t, out, `"sent":7`)
	assert.Contains(t, out, "connection reset by bucket")
}

func TestStreamLoggerQuietOnEOF(t *testing.T) {
	var logs bytes.Buffer
	s := &streamLogger{ReadCloser: io.NopCloser(strings.NewReader("whole file")), log: zerolog.New(&logs)}

	data, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "whole file", string(data))
	assert.Empty(t, logs.String())
}
