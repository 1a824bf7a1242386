// Package interactive provides the esphome-ctl command shell.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/chzyer/readline"

	"github.com/esphome-native/esphome-go/pkg/connection"
	"github.com/esphome-native/esphome-go/pkg/entity"
	"github.com/esphome-native/esphome-go/pkg/service"
)

// Controller is the part of service.Controller the shell drives.
type Controller interface {
	Devices() []string
	Snapshot(name string) (service.DeviceSnapshot, error)
	CommandText(name string, kind entity.Kind, key uint32, text string) error
	PublishState(entityID, attribute, state string)
	OnEvent(handler service.EventHandler)
}

// Shell is an interactive prompt over a running controller.
type Shell struct {
	ctrl Controller
	rl   *readline.Instance
	out  io.Writer

	// watch prints state updates as they arrive.
	watch bool
}

// New creates a shell and subscribes it to controller events.
func New(ctrl Controller) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "esphome> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	s := newShell(ctrl, rl.Stdout())
	s.rl = rl
	return s, nil
}

func newShell(ctrl Controller, out io.Writer) *Shell {
	s := &Shell{ctrl: ctrl, out: out}
	ctrl.OnEvent(s.handleEvent)
	return s
}

// Stdout returns a writer that does not garble the prompt.
func (s *Shell) Stdout() io.Writer {
	return s.out
}

// Run reads commands until quit, EOF or ctx is done. cancel is called
// when the user leaves the shell.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if !s.Execute(line) {
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Execute runs one command line. It returns false when the shell should exit.
func (s *Shell) Execute(line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()
	case "devices", "ls":
		s.cmdDevices()
	case "status", "s":
		s.cmdStatus(args)
	case "entities", "e":
		s.cmdEntities(args)
	case "states":
		s.cmdStates(args)
	case "cmd", "c":
		s.cmdCommand(args)
	case "publish":
		s.cmdPublish(args)
	case "watch":
		s.watch = !s.watch
		fmt.Fprintf(s.out, "Watching state updates: %v\n", s.watch)
	case "quit", "exit", "q":
		return false
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
Commands:
  devices                         - List configured devices
  status <device>                 - Show connection status and device info
  entities <device>               - List the device's entities
  states <device>                 - Show the latest entity states
  cmd <device> <key> <value> [kind]
                                  - Send a command to an entity
  publish <entity_id> [attr] <state>
                                  - Push a host entity state to subscribers
  watch                           - Toggle printing of state updates
  quit                            - Exit`)
}

func (s *Shell) cmdDevices() {
	names := s.ctrl.Devices()
	if len(names) == 0 {
		fmt.Fprintln(s.out, "No devices configured.")
		return
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATE\tONLINE\tENTITIES")
	for _, name := range names {
		snap, err := s.ctrl.Snapshot(name)
		if err != nil {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%v\t%d\n", name, snap.State, snap.Online(), len(snap.Entities))
	}
	tw.Flush()
}

func (s *Shell) snapshot(args []string, usage string) (service.DeviceSnapshot, bool) {
	if len(args) < 1 {
		fmt.Fprintf(s.out, "Usage: %s\n", usage)
		return service.DeviceSnapshot{}, false
	}
	snap, err := s.ctrl.Snapshot(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return service.DeviceSnapshot{}, false
	}
	return snap, true
}

func (s *Shell) cmdStatus(args []string) {
	snap, ok := s.snapshot(args, "status <device>")
	if !ok {
		return
	}
	fmt.Fprintf(s.out, "Device:       %s\n", snap.Name)
	fmt.Fprintf(s.out, "Address:      %s:%d\n", snap.Host, snap.Port)
	fmt.Fprintf(s.out, "State:        %s\n", snap.State)
	fmt.Fprintf(s.out, "Online:       %v\n", snap.Online())
	if !snap.Online() && snap.Status.Detail != connection.ClassNone {
		fmt.Fprintf(s.out, "Detail:       %s\n", snap.Status.Detail)
	}
	if snap.Status.Message != "" {
		fmt.Fprintf(s.out, "Message:      %s\n", snap.Status.Message)
	}
	fmt.Fprintf(s.out, "Interrogated: %v\n", snap.Interrogated)

	if len(snap.Properties) > 0 {
		keys := make([]string, 0, len(snap.Properties))
		for k := range snap.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(s.out, "Properties:")
		for _, k := range keys {
			fmt.Fprintf(s.out, "  %-20s %s\n", k+":", snap.Properties[k])
		}
	}
}

func (s *Shell) cmdEntities(args []string) {
	snap, ok := s.snapshot(args, "entities <device>")
	if !ok {
		return
	}
	if len(snap.Entities) == 0 {
		fmt.Fprintln(s.out, "No entities.")
		return
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tKIND\tOBJECT ID\tNAME")
	for _, e := range snap.Entities {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.Key, e.Kind, e.ObjectID, e.Name)
	}
	tw.Flush()
}

func (s *Shell) cmdStates(args []string) {
	snap, ok := s.snapshot(args, "states <device>")
	if !ok {
		return
	}
	if len(snap.States) == 0 {
		fmt.Fprintln(s.out, "No states received.")
		return
	}
	for _, st := range snap.States {
		fmt.Fprintf(s.out, "  %s\n", formatState(st))
	}
}

func (s *Shell) cmdCommand(args []string) {
	if len(args) < 3 {
		fmt.Fprintln(s.out, "Usage: cmd <device> <key> <value> [kind]")
		return
	}
	key, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid key: %s\n", args[1])
		return
	}
	var kind entity.Kind
	if len(args) > 3 {
		if kind, err = entity.ParseKind(args[3]); err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return
		}
	}
	if err := s.ctrl.CommandText(args[0], kind, uint32(key), args[2]); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Sent %s to %s/%d\n", args[2], args[0], key)
}

func (s *Shell) cmdPublish(args []string) {
	switch len(args) {
	case 2:
		s.ctrl.PublishState(args[0], "", args[1])
	case 3:
		s.ctrl.PublishState(args[0], args[1], args[2])
	default:
		fmt.Fprintln(s.out, "Usage: publish <entity_id> [attribute] <state>")
		return
	}
	fmt.Fprintf(s.out, "Published %s\n", args[0])
}

// handleEvent runs on a connection goroutine; it only writes output.
func (s *Shell) handleEvent(event service.Event) {
	switch event.Type {
	case service.EventStatusChanged:
		if event.Status.Online {
			fmt.Fprintf(s.out, "[%s] online\n", event.Device)
		} else if event.Status.Message != "" {
			fmt.Fprintf(s.out, "[%s] offline: %s\n", event.Device, event.Status.Message)
		}
	case service.EventAction:
		fmt.Fprintf(s.out, "[%s] action %s\n", event.Device, event.Action.Service)
	case service.EventStateChanged:
		if s.watch {
			fmt.Fprintf(s.out, "[%s] %s\n", event.Device, formatState(event.State))
		}
	}
}

func formatState(st entity.State) string {
	if st.Missing {
		return fmt.Sprintf("%s/%d: (missing)", st.Kind, st.Key)
	}
	return fmt.Sprintf("%s/%d: %v", st.Kind, st.Key, st.Value)
}
