package itinera

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Slash commands understood by the Runner. Any other line is an answer.
const (
	CmdNew       = "/new"
	CmdHistory   = "/history"
	CmdLoad      = "/load"
	CmdVoice     = "/voice"
	CmdDownload  = "/download"
	CmdReconnect = "/reconnect"
	CmdCancel    = "/cancel"
	CmdRetry     = "/retry"
	CmdHelp      = "/help"
	CmdQuit      = "/quit"
)

// Help lists the commands.
const Help = `Commands:
  /new            start a new trip
  /history        refresh the list of past conversations
  /load <id>      show a past conversation
  /voice          toggle voice
  /download       save the itinerary PDF
  /reconnect      reconnect to the server
  /cancel         stop generating the itinerary
  /retry          generate the itinerary again
  /quit           exit`

// ErrUnknownCommand is returned by ParseCommand for an unrecognized slash command.
var ErrUnknownCommand = errors.New("unknown command")

// Command is a parsed input line.
type Command struct {
	Name string
	Arg  string
}

// ParseCommand splits a slash command from its argument. ok is false for plain answers.
func ParseCommand(line string) (cmd Command, ok bool, err error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return Command{}, false, nil
	}
	name, arg, _ := strings.Cut(line, " ")
	cmd = Command{Name: strings.ToLower(name), Arg: strings.TrimSpace(arg)}
	switch cmd.Name {
	case CmdNew, CmdHistory, CmdVoice, CmdDownload, CmdReconnect, CmdCancel, CmdRetry, CmdHelp, CmdQuit:
		return cmd, true, nil
	case CmdLoad:
		if _, err := strconv.ParseInt(cmd.Arg, 10, 64); err != nil {
			return cmd, true, fmt.Errorf("%s needs a conversation id", CmdLoad)
		}
		return cmd, true, nil
	}
	return cmd, true, fmt.Errorf("%w %q", ErrUnknownCommand, cmd.Name)
}

// Runner pumps lines from Input into a Client. Output receives help and command errors;
// the conversation itself is rendered by the Client's view.
type Runner struct {
	Input  io.Reader
	Output io.Writer
}

// Run reads until /quit, end of input or ctx cancellation.
func (r *Runner) Run(ctx context.Context, c *Client) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	out := r.Output
	if out == nil {
		out = io.Discard
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r.Input)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			if quit := r.dispatch(c, out, line); quit {
				return nil
			}
		}
	}
}

func (r *Runner) dispatch(c *Client, out io.Writer, line string) bool {
	cmd, ok, err := ParseCommand(line)
	if err != nil {
		fmt.Fprintf(out, "%v. Type %s for the list of commands.\n", err, CmdHelp)
		return false
	}
	if !ok {
		c.Submit(line)
		return false
	}

	switch cmd.Name {
	case CmdQuit:
		return true
	case CmdHelp:
		fmt.Fprintln(out, Help)
	case CmdNew:
		c.NewConversation()
	case CmdHistory:
		c.RefreshConversations()
	case CmdLoad:
		id, _ := strconv.ParseInt(cmd.Arg, 10, 64)
		c.LoadConversation(id)
	case CmdVoice:
		c.ToggleVoice()
	case CmdDownload:
		c.Download()
	case CmdReconnect:
		c.Reconnect()
	case CmdCancel:
		c.Cancel()
	case CmdRetry:
		c.Retry()
	}
	return false
}
