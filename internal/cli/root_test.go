package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "recordctl", cmd.Use)
	assert.Contains(t, cmd.Long, "recordd")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"insert", "get", "update", "remove", "list", "prune", "filter", "stats", "demo"}

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

	addrFlag := cmd.PersistentFlags().Lookup("addr")
	require.NotNil(t, addrFlag)
	assert.Equal(t, "http://127.0.0.1:8081", addrFlag.DefValue)

	shardFlag := cmd.PersistentFlags().Lookup("shard")
	require.NotNil(t, shardFlag)
	assert.Equal(t, "0", shardFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidGlobalFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad format", []string{"--format", "xml", "demo"}},
		{"negative shard", []string{"--shard", "-1", "demo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewRootCommand()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "bad", errors.New("x"))))

	err := WrapExitError(ExitFailure, "get failed", errors.New("boom"))
	assert.Equal(t, "get failed: boom", err.Error())
	assert.Equal(t, "boom", errors.Unwrap(err).Error())

	assert.Equal(t, "msg", (&ExitError{Code: 1, Message: "msg"}).Error())
}
