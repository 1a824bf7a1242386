package logcmd

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/esphome-native/esphome-go/pkg/log"
)

// Stats aggregates the events of a capture file.
type Stats struct {
	Total  int
	Errors int
	First  time.Time
	Last   time.Time

	Layers     map[log.Layer]int
	Categories map[log.Category]int
	Directions map[log.Direction]int

	// Messages counts message events by type name.
	Messages map[string]int

	Devices     map[string]*DeviceStats
	Connections map[string]*ConnectionStats
}

// DeviceStats counts the traffic of one device across its connections.
type DeviceStats struct {
	Events      int
	Frames      int
	Bytes       int
	Connections int
	Errors      int
}

// ConnectionStats describes one connection attempt.
type ConnectionStats struct {
	ID         string
	Device     string
	FirstSeen  time.Time
	LastSeen   time.Time
	Events     int
	Errors     int
	FinalState string
}

func newStats() *Stats {
	return &Stats{
		Layers:      make(map[log.Layer]int),
		Categories:  make(map[log.Category]int),
		Directions:  make(map[log.Direction]int),
		Messages:    make(map[string]int),
		Devices:     make(map[string]*DeviceStats),
		Connections: make(map[string]*ConnectionStats),
	}
}

// Collect reads the file at path and aggregates every matching event.
func Collect(path string, filter log.Filter) (*Stats, error) {
	s := newStats()
	if err := forEach(path, filter, func(e log.Event) error {
		s.add(e)
		return nil
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Stats) add(e log.Event) {
	s.Total++
	s.Layers[e.Layer]++
	s.Categories[e.Category]++
	s.Directions[e.Direction]++
	if s.First.IsZero() || e.Timestamp.Before(s.First) {
		s.First = e.Timestamp
	}
	if e.Timestamp.After(s.Last) {
		s.Last = e.Timestamp
	}

	conn := s.Connections[e.ConnectionID]
	if conn == nil {
		conn = &ConnectionStats{ID: e.ConnectionID, FirstSeen: e.Timestamp}
		s.Connections[e.ConnectionID] = conn
	}
	conn.Events++
	conn.LastSeen = maxTime(conn.LastSeen, e.Timestamp)

	device := e.Device
	if device == "" {
		device = "-"
	}
	dev := s.Devices[device]
	if dev == nil {
		dev = &DeviceStats{}
		s.Devices[device] = dev
	}
	dev.Events++
	if conn.Device == "" && e.Device != "" {
		conn.Device = e.Device
		dev.Connections++
	}

	switch {
	case e.Frame != nil:
		dev.Frames++
		dev.Bytes += e.Frame.Size
	case e.Message != nil:
		s.Messages[e.Message.Name]++
	case e.StateChange != nil:
		conn.FinalState = e.StateChange.NewState
	case e.Error != nil:
		s.Errors++
		conn.Errors++
		dev.Errors++
	}
}

func maxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// RunStats prints the statistics of the file at path.
func RunStats(path string, filter log.Filter, w io.Writer) error {
	s, err := Collect(path, filter)
	if err != nil {
		return err
	}
	s.Print(w)
	return nil
}

// Print writes a report of s to w.
func (s *Stats) Print(w io.Writer) {
	fmt.Fprintf(w, "Events: %d", s.Total)
	if s.Total > 0 {
		fmt.Fprintf(w, " between %s and %s (%s)", s.First.Format(time.RFC3339), s.Last.Format(time.RFC3339),
			s.Last.Sub(s.First).Round(time.Millisecond))
	}
	fmt.Fprintln(w)
	if s.Errors > 0 {
		fmt.Fprintf(w, "Errors: %d\n", s.Errors)
	}
	if s.Total == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "\nBREAKDOWN\tCOUNT")
	for _, l := range []log.Layer{log.LayerTransport, log.LayerWire, log.LayerConnection} {
		printCount(tw, "layer "+l.String(), s.Layers[l])
	}
	for _, c := range []log.Category{log.CategoryMessage, log.CategoryControl, log.CategoryState, log.CategoryError} {
		printCount(tw, "category "+c.String(), s.Categories[c])
	}
	for _, d := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		printCount(tw, "direction "+d.String(), s.Directions[d])
	}

	if len(s.Messages) > 0 {
		fmt.Fprintln(tw, "\nMESSAGE\tCOUNT")
		names := sortedKeys(s.Messages)
		slices.SortStableFunc(names, func(a, b string) int { return cmp.Compare(s.Messages[b], s.Messages[a]) })
		for _, name := range names {
			fmt.Fprintf(tw, "%s\t%d\n", name, s.Messages[name])
		}
	}

	fmt.Fprintln(tw, "\nDEVICE\tEVENTS\tFRAMES\tBYTES\tCONNECTIONS\tERRORS")
	for _, name := range sortedKeys(s.Devices) {
		d := s.Devices[name]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", name, d.Events, d.Frames, d.Bytes, d.Connections, d.Errors)
	}

	conns := make([]*ConnectionStats, 0, len(s.Connections))
	for _, c := range s.Connections {
		conns = append(conns, c)
	}
	slices.SortFunc(conns, func(a, b *ConnectionStats) int { return a.FirstSeen.Compare(b.FirstSeen) })

	fmt.Fprintln(tw, "\nCONNECTION\tDEVICE\tEVENTS\tDURATION\tSTATE\tERRORS")
	for _, c := range conns {
		state := c.FinalState
		if state == "" {
			state = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%d\n", shortenConnID(c.ID), c.Device, c.Events,
			c.LastSeen.Sub(c.FirstSeen).Round(time.Millisecond), state, c.Errors)
	}
	tw.Flush()
}

func printCount(w io.Writer, label string, n int) {
	if n > 0 {
		fmt.Fprintf(w, "%s\t%d\n", label, n)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
