package notify

import (
	"context"
	"os"
	"os/exec"
)

// CommandChannel shells out to a configured command per notification, e.g. a
// desktop notifier or an audio player. The rendered title and body are passed
// via NOTIFY_TITLE and NOTIFY_BODY so the command string needs no escaping.
type CommandChannel struct {
	name    string
	command string
}

// NewCommandChannel constructs a command channel. Returns nil when no command
// is configured, which disables the channel.
func NewCommandChannel(name, command string) *CommandChannel {
	if command == "" {
		return nil
	}
	return &CommandChannel{name: name, command: command}
}

// Name identifies the channel.
func (c *CommandChannel) Name() string { return c.name }

// Notify runs the configured command once.
func (c *CommandChannel) Notify(ctx context.Context, n Notification) error {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", c.command)
	cmd.Env = append(os.Environ(),
		"NOTIFY_TITLE="+n.Title,
		"NOTIFY_BODY="+n.Body,
	)
	return cmd.Run()
}
