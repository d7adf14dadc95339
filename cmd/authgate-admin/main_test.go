package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/client"
)

func TestPromptPassword_ReadsLineWhenNotTerminal(t *testing.T) {
	var out bytes.Buffer
	in := bufio.NewReader(strings.NewReader("s3cret\r\nnext\n"))

	pw, err := promptPassword(&out, in, "Password")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pw)
	assert.Contains(t, out.String(), "Password: ")

	pw, err = promptPassword(&out, in, "Confirm")
	require.NoError(t, err)
	assert.Equal(t, "next", pw)
}

func TestPromptPassword_LastLineWithoutNewline(t *testing.T) {
	var out bytes.Buffer
	pw, err := promptPassword(&out, bufio.NewReader(strings.NewReader("tail")), "Password")
	require.NoError(t, err)
	assert.Equal(t, "tail", pw)
}

func TestPromptPassword_EmptyInput(t *testing.T) {
	var out bytes.Buffer
	_, err := promptPassword(&out, bufio.NewReader(strings.NewReader("")), "Password")
	assert.ErrorContains(t, err, "reading password")
}

func TestCmdSecret_RejectsShortSecret(t *testing.T) {
	err := cmdSecret([]string{"-bytes", "4"})
	assert.ErrorContains(t, err, "secret must be at least")
}

func TestCmdSecret_Default(t *testing.T) {
	assert.NoError(t, cmdSecret(nil))
}

// typingReader hands out one line per Read after a delay, like a user
// answering prompts.
type typingReader struct {
	lines []string
	delay time.Duration
}

func (r *typingReader) Read(p []byte) (int, error) {
	if len(r.lines) == 0 {
		return 0, io.EOF
	}
	time.Sleep(r.delay)
	n := copy(p, r.lines[0])
	r.lines = r.lines[1:]
	return n, nil
}

func TestCmdPasswd_TimeoutStartsAfterPrompts(t *testing.T) {
	orig := requestTimeout
	requestTimeout = 200 * time.Millisecond
	t.Cleanup(func() { requestTimeout = orig })

	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/changepassword", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"Successfully changed password for user 'alice'"}`))
	}))
	t.Cleanup(srv.Close)

	// The three answers together take longer than one request timeout.
	in := bufio.NewReader(&typingReader{
		lines: []string{"old\n", "new\n", "new\n"},
		delay: 100 * time.Millisecond,
	})

	c := client.New(srv.URL, "key")
	err := cmdPasswd(context.Background(), c, in, []string{"alice"})
	require.NoError(t, err)
	assert.Equal(t, "old", got["current_password"])
	assert.Equal(t, "new", got["new_password"])
	assert.Equal(t, "new", got["confirm_password"])
}
