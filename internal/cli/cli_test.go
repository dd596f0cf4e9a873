package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToRun(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.False(t, parsed.ShowHelp)
	require.Equal(t, CommandRun, parsed.Command)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/parley.jsonc", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/parley.jsonc", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)
}

func TestParseSendJoinsText(t *testing.T) {
	parsed, err := Parse([]string{"send", "what's", "the", "weather?"})
	require.NoError(t, err)
	require.Equal(t, CommandSend, parsed.Command)
	require.Equal(t, "what's the weather?", parsed.Text)

	parsed, err = Parse([]string{"send", "--config", "x"})
	require.NoError(t, err)
	require.Equal(t, "--config x", parsed.Text)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantErr     string
		wantCmd     Command
		wantHelp    bool
		wantPath    string
		wantVerbose bool
	}{
		{
			name:     "help short flag",
			args:     []string{"-h"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
		{
			name:     "help command",
			args:     []string{"help"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
		{
			name:    "version flag",
			args:    []string{"--version"},
			wantCmd: CommandVersion,
		},
		{
			name:        "verbose run",
			args:        []string{"--verbose"},
			wantCmd:     CommandRun,
			wantVerbose: true,
		},
		{
			name:    "config after command",
			args:    []string{"status", "--config", "/tmp/cfg"},
			wantErr: "unexpected arguments after command",
		},
		{
			name:    "missing config path",
			args:    []string{"--config"},
			wantErr: "requires a path",
		},
		{
			name:    "unknown flag",
			args:    []string{"--bogus"},
			wantErr: "unknown flag",
		},
		{
			name:    "unknown command",
			args:    []string{"bogus"},
			wantErr: "unknown command",
		},
		{
			name:    "send without text",
			args:    []string{"send", "  "},
			wantErr: "requires message text",
		},
		{
			name:        "toggle with config",
			args:        []string{"--config", "/tmp/cfg", "-v", "toggle"},
			wantCmd:     CommandToggle,
			wantPath:    "/tmp/cfg",
			wantVerbose: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
			require.Equal(t, tc.wantPath, parsed.ConfigPath)
			require.Equal(t, tc.wantVerbose, parsed.Verbose)
		})
	}
}

func TestRemoteCommands(t *testing.T) {
	for _, cmd := range []Command{CommandOpen, CommandClose, CommandToggle, CommandListen, CommandSend, CommandStatus} {
		require.True(t, cmd.Remote(), cmd)
	}
	for _, cmd := range []Command{CommandRun, CommandDevices, CommandDoctor, CommandVersion, CommandHelp} {
		require.False(t, cmd.Remote(), cmd)
	}
}

func TestHelpTextIncludesCoreCommands(t *testing.T) {
	text := HelpText("parley")
	for _, want := range []string{"run", "toggle", "listen", "send TEXT", "devices", "doctor", "--config PATH"} {
		require.Contains(t, text, want)
	}
}
