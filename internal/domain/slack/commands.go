package slack

import (
	"fmt"
	"strings"
)

type CommandType string

const (
	CmdStatus CommandType = "status"
	CmdJobs   CommandType = "jobs"
	CmdClear  CommandType = "clear"
	CmdHelp   CommandType = "help"
)

type Command struct {
	Type CommandType
	Args []string
	Raw  string
}

func ParseCommand(text string) (*Command, error) {
	parts := strings.Fields(strings.TrimSpace(text))
	if len(parts) == 0 {
		return &Command{Type: CmdHelp}, nil
	}

	cmd := &Command{
		Raw: text,
	}

	switch strings.ToLower(parts[0]) {
	case "status":
		cmd.Type = CmdStatus
	case "jobs", "ls":
		cmd.Type = CmdJobs
	case "clear", "reset":
		cmd.Type = CmdClear
	case "help":
		cmd.Type = CmdHelp
	default:
		return nil, fmt.Errorf("unknown command: %s", parts[0])
	}

	if len(parts) > 1 {
		cmd.Args = parts[1:]
	}

	return cmd, nil
}

func GetHelpText() string {
	return `*Available Commands:*

• ` + "`/shift status`" + ` - Show the latest shift, pending alarms and the last delivered message
• ` + "`/shift jobs`" + ` - List pending alarms in firing order
• ` + "`/shift clear`" + ` - Cancel every scheduled alarm
• ` + "`/shift help`" + ` - Show this help

Shifts are submitted with ` + "`POST /shifts`" + `.`
}
