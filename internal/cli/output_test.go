package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError(t *testing.T) {
	err := NewExitError(ExitFailure, "test error")
	assert.Equal(t, "test error", err.Error())
	assert.Equal(t, ExitFailure, GetExitCode(err))

	inner := errors.New("inner")
	wrapped := WrapExitError(ExitCommandError, "outer", inner)
	assert.Equal(t, "outer: inner", wrapped.Error())
	assert.ErrorIs(t, wrapped, inner)
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("context: %w", wrapped)))
}

func TestGetExitCodeDefaults(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestOutputFormatterJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(map[string]string{"key": "<value>"}))
	assert.JSONEq(t, `{"status":"ok","data":{"key":"<value>"}}`, buf.String())
	assert.Contains(t, buf.String(), "<value>")

	buf.Reset()
	require.NoError(t, f.Error("NOT_FOUND", "missing", nil))
	assert.JSONEq(t, `{"status":"error","error":{"code":"NOT_FOUND","message":"missing"}}`, buf.String())
}

func TestOutputFormatterText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, f.Success("done"))
	assert.Equal(t, "done\n", buf.String())

	buf.Reset()
	require.NoError(t, f.Error("NOT_FOUND", "missing", map[string]string{"id": "X"}))
	assert.Equal(t, "Error [NOT_FOUND]: missing\nDetails: map[id:X]\n", buf.String())
}

func TestVerboseLogUsesErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}

	f.VerboseLog("building %s", "index")
	assert.Empty(t, out.String())
	assert.Equal(t, "building index\n", errOut.String())

	f.Verbose = false
	f.VerboseLog("hidden")
	assert.Equal(t, "building index\n", errOut.String())
}
