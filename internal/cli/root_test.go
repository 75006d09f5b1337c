package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "augr", cmd.Use)
	assert.Contains(t, cmd.Long, "patch")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"start", "tag", "untag", "set-start", "tags", "summary", "chart", "check", "validate", "replay", "watch", "trace", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestSummaryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	summaryCmd, _, err := cmd.Find([]string{"summary"})
	require.NoError(t, err)

	for _, name := range []string{"start", "end", "edges", "refs", "show-ends"} {
		assert.NotNil(t, summaryCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "include", summaryCmd.Flags().Lookup("edges").DefValue)
}

func TestExecute_InvalidFormat(t *testing.T) {
	opts := newTestOptions(t)

	_, stderr, code := execute(t, opts, "--format", "xml", "tags")

	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "invalid format")
}

func TestExecute_UnknownCommand(t *testing.T) {
	opts := newTestOptions(t)

	_, stderr, code := execute(t, opts, "frobnicate")

	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "frobnicate")
}

func TestExecute_MissingArguments(t *testing.T) {
	opts := newTestOptions(t)

	_, _, code := execute(t, opts, "tag", "a")
	assert.Equal(t, ExitCommandError, code)
}

func TestExecute_JSONErrorEnvelope(t *testing.T) {
	opts := withBasicRepo(t, newTestOptions(t))

	out, _, code := execute(t, opts, "--format", "json", "tag", "nope", "x")

	assert.Equal(t, ExitCommandError, code)
	resp := decode[any](t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeUnknownEvent, resp.Error.Code)
}

func TestExecute_DefaultsToSummary(t *testing.T) {
	opts := withBasicRepo(t, newTestOptions(t))

	out, _, code := execute(t, opts)

	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Total: 5h 30m")
}

func TestExecute_WarnsOnConflict(t *testing.T) {
	opts := withBasicRepo(t, newTestOptions(t))
	concurrentStarts(t, opts)

	_, stderr, code := execute(t, opts, "summary")

	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stderr, "level=WARN")
	assert.Contains(t, stderr, "event conflict")
	assert.Contains(t, stderr, "event=b")
}

func TestExecute_LogFile(t *testing.T) {
	opts := withBasicRepo(t, newTestOptions(t))
	opts.Config.LogFile = filepath.Join(t.TempDir(), "augr.log")

	_, stderr, code := execute(t, opts, "-v", "tags")

	require.Equal(t, ExitSuccess, code)
	assert.Empty(t, stderr)

	data, err := os.ReadFile(opts.Config.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "store opened")
	assert.Contains(t, string(data), "device=laptop")
}
