package debug

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/Versifine/packetgate/internal/dispatch"
	"github.com/Versifine/packetgate/internal/protocol"
	"github.com/Versifine/packetgate/internal/session"
	"github.com/Versifine/packetgate/internal/wrapper"
	"github.com/google/uuid"
	"golang.org/x/term"
)

var errQuit = errors.New("quit")

// StateChanger changes a connection's state with whatever side effects the
// transport attaches to it.
type StateChanger[C comparable] interface {
	ChangeConnectionState(c C, st protocol.State) error
}

// Console is an operator shell over a dispatch.Manager. Commands run
// against sessions picked by name or id; a leading "silent" uses the
// silent primitives.
type Console[C comparable] struct {
	manager *dispatch.Manager[C]
	states  StateChanger[C]
	out     io.Writer
}

func NewConsole[C comparable](manager *dispatch.Manager[C], states StateChanger[C]) *Console[C] {
	return &Console[C]{manager: manager, states: states, out: os.Stdout}
}

// Start puts the terminal in raw mode and reads commands until quit, EOF
// or ctx is done.
func (c *Console[C]) Start(ctx context.Context) error {
	if c == nil || c.manager == nil {
		return fmt.Errorf("console manager is nil")
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("set terminal raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
		fmt.Print("\r\n")
	}()

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, "packetgate> ")
	c.out = t
	fmt.Fprint(t, "[console] started, type help for commands\r\n")

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := t.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read console input: %w", err)
		}
		if errors.Is(c.Execute(line), errQuit) {
			return nil
		}
	}
}

// Execute runs one command line. It returns errQuit for quit; any other
// failure is printed, not returned.
func (c *Console[C]) Execute(line string) error {
	parts := strings.Fields(line)
	silent := false
	if len(parts) > 0 && parts[0] == "silent" {
		silent = true
		parts = parts[1:]
	}
	if len(parts) == 0 {
		return nil
	}

	var err error
	switch parts[0] {
	case "help":
		c.printHelp()
	case "quit", "exit":
		return errQuit
	case "list":
		c.list()
	case "info":
		err = c.info(parts[1:])
	case "state":
		err = c.state(parts[1:])
	case "version":
		err = c.version(parts[1:])
	case "chat":
		err = c.chat(parts[1:], silent)
	case "title":
		err = c.title(parts[1:], silent)
	case "broadcast":
		err = c.broadcast(parts[1:], silent)
	default:
		err = fmt.Errorf("unknown command: %s", parts[0])
	}
	if err != nil {
		c.printf("[console] %v", err)
		slog.Debug("Console command failed", "command", parts[0], "error", err)
	}
	return nil
}

func (c *Console[C]) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\r\n", args...)
}

func (c *Console[C]) printHelp() {
	c.printf("[console] commands:")
	c.printf("  list")
	c.printf("  info <player>")
	c.printf("  state <player> <handshake|status|login|config|play>")
	c.printf("  version <player> [version]")
	c.printf("  chat <player> <text>")
	c.printf("  title <player> <title> [| <subtitle>]")
	c.printf("  broadcast <text>")
	c.printf("  silent <command>  send without hooks or events")
	c.printf("  quit")
}

func (c *Console[C]) sortedUsers() []*session.Session {
	users := c.manager.Users()
	slices.SortFunc(users, func(a, b *session.Session) int {
		if n := strings.Compare(a.Name(), b.Name()); n != 0 {
			return n
		}
		return strings.Compare(a.ID().String(), b.ID().String())
	})
	return users
}

func (c *Console[C]) list() {
	users := c.sortedUsers()
	c.printf("[console] %d session(s), platform %s", len(users), c.manager.PlatformVersion())
	for _, s := range users {
		c.printf("  %s", s)
	}
}

// lookup finds a session by exact id, by name or by a unique id prefix.
func (c *Console[C]) lookup(who string) (*session.Session, C, error) {
	var zero C
	var match []*session.Session
	id, idErr := uuid.Parse(who)
	for _, s := range c.manager.Users() {
		switch {
		case idErr == nil && s.ID() == id,
			strings.EqualFold(s.Name(), who),
			strings.HasPrefix(s.ID().String(), strings.ToLower(who)):
			match = append(match, s)
		}
	}
	switch len(match) {
	case 0:
		return nil, zero, fmt.Errorf("no session matches %q", who)
	case 1:
	default:
		return nil, zero, fmt.Errorf("%q matches %d sessions", who, len(match))
	}
	ch, ok := c.manager.Channel(match[0].ID())
	if !ok {
		return nil, zero, fmt.Errorf("session %s: %w", match[0].ID(), session.ErrUnregisteredChannel)
	}
	return match[0], ch, nil
}

func (c *Console[C]) info(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: info <player>")
	}
	s, ch, err := c.lookup(args[0])
	if err != nil {
		return err
	}
	snap := s.Snapshot()
	name := snap.Name
	if name == "" {
		name = "-"
	}
	c.printf("[console] id=%s name=%s state=%s version=%s channel=%v", snap.ID, name, snap.State, snap.Version, ch)
	return nil
}

func (c *Console[C]) state(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: state <player> <state>")
	}
	st, err := protocol.ParseState(args[1])
	if err != nil {
		return err
	}
	s, ch, err := c.lookup(args[0])
	if err != nil {
		return err
	}
	if c.states != nil {
		err = c.states.ChangeConnectionState(ch, st)
	} else {
		err = c.manager.ChangeConnectionState(ch, st)
	}
	if err != nil {
		return err
	}
	c.printf("[console] %s is now %s", s.ID(), st)
	return nil
}

func (c *Console[C]) version(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: version <player> [version]")
	}
	s, ch, err := c.lookup(args[0])
	if err != nil {
		return err
	}
	if len(args) == 1 {
		c.printf("[console] %s uses %s", s.ID(), s.ClientVersion())
		return nil
	}
	v, err := protocol.ParseClientVersion(args[1])
	if err != nil {
		return err
	}
	if err := c.manager.SetClientVersion(ch, v); err != nil {
		return err
	}
	c.printf("[console] %s set to %s", s.ID(), v)
	return nil
}

func (c *Console[C]) send(ch C, w wrapper.Wrapper, silent bool) error {
	if silent {
		return c.manager.SendWrapperSilently(ch, w)
	}
	return c.manager.SendWrapper(ch, w)
}

func (c *Console[C]) chat(args []string, silent bool) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: chat <player> <text>")
	}
	s, ch, err := c.lookup(args[0])
	if err != nil {
		return err
	}
	if err := c.send(ch, wrapper.NewSystemChat(strings.Join(args[1:], " "), false), silent); err != nil {
		return err
	}
	c.printf("[console] sent chat to %s", s.ID())
	return nil
}

func (c *Console[C]) title(args []string, silent bool) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: title <player> <title> [| <subtitle>]")
	}
	s, ch, err := c.lookup(args[0])
	if err != nil {
		return err
	}
	title, subtitle, _ := strings.Cut(strings.Join(args[1:], " "), "|")
	w := wrapper.NewTitle(strings.TrimSpace(title), strings.TrimSpace(subtitle))
	if err := c.send(ch, w, silent); err != nil {
		return err
	}
	c.printf("[console] sent title to %s", s.ID())
	return nil
}

func (c *Console[C]) broadcast(args []string, silent bool) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: broadcast <text>")
	}
	w := wrapper.NewSystemChat(strings.Join(args, " "), false)
	var err error
	if silent {
		err = c.manager.BroadcastSilently(w, protocol.Play)
	} else {
		err = c.manager.Broadcast(w, protocol.Play)
	}
	if err != nil {
		return err
	}
	c.printf("[console] broadcast sent")
	return nil
}
