// Package cli parses parley's argv and renders help.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandRun     Command = "run"
	CommandOpen    Command = "open"
	CommandClose   Command = "close"
	CommandToggle  Command = "toggle"
	CommandListen  Command = "listen"
	CommandSend    Command = "send"
	CommandStatus  Command = "status"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandRun:     {},
	CommandOpen:    {},
	CommandClose:   {},
	CommandToggle:  {},
	CommandListen:  {},
	CommandSend:    {},
	CommandStatus:  {},
	CommandDevices: {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

// Remote reports whether the command is forwarded to a running widget.
func (c Command) Remote() bool {
	switch c {
	case CommandOpen, CommandClose, CommandToggle, CommandListen, CommandSend, CommandStatus:
		return true
	default:
		return false
	}
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
	Verbose    bool
	// Text is the message for send.
	Text string
}

// Parse reads flags then one command. With no command the widget runs.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandRun}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "-v", "--verbose":
			parsed.Verbose = true
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}
			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp

			rest := args[i+1:]
			if cmd == CommandSend {
				parsed.Text = strings.TrimSpace(strings.Join(rest, " "))
				if parsed.Text == "" {
					return Parsed{}, errors.New("send requires message text")
				}
				return parsed, nil
			}
			if len(rest) > 0 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
			return parsed, nil
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--verbose] [command]

Commands:
  run         Start the chat widget (default)
  open        Open the panel of the running widget
  close       Close the panel of the running widget
  toggle      Open or close the panel of the running widget
  listen      Start or stop voice input in the running widget
  send TEXT   Submit TEXT as a message to the running widget
  status      Print the running widget's state
  devices     List available input devices
  doctor      Run configuration and environment checks
  version     Print version information
  help        Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/parley/config.jsonc)
  -v, --verbose   Log at debug level
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
