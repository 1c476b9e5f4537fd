package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"databridge/internal/locator"
)

// ListMode prints every network path and serial device discovery can
// see, marking the ones the bridge would pick.  Nothing is opened.
type ListMode struct {
	Locator *locator.Locator

	// Out defaults to os.Stdout when nil.
	Out io.Writer
}

// Run prints the report once.
func (m *ListMode) Run(ctx context.Context) error {
	r, err := m.Locator.Describe(ctx)
	if err != nil {
		return err
	}
	out := m.Out
	if out == nil {
		out = os.Stdout
	}

	fmt.Fprintf(out, "endpoint %s\n\nnetwork paths:\n", r.Endpoint)
	if r.PathErr != nil {
		fmt.Fprintf(out, "  error: %v\n", r.PathErr)
	}
	selected, ok := r.Selected()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, p := range r.Paths {
		mark := " "
		if ok && p.Name == selected.Name {
			mark = "*"
		}
		fmt.Fprintf(tw, "  %s %s\t%s\t%s\n", mark, p.Name, joinIPs(p), capabilities(p))
	}
	tw.Flush() //nolint:errcheck

	fmt.Fprintln(out, "\nserial devices:")
	if r.DeviceErr != nil {
		fmt.Fprintf(out, "  error: %v\n", r.DeviceErr)
	}
	if len(r.Devices) == 0 && r.DeviceErr == nil {
		fmt.Fprintln(out, "  (none)")
	}
	for i, d := range r.Devices {
		mark := " "
		if i == 0 {
			mark = "*"
		}
		fmt.Fprintf(out, "  %s %s (%s)\n", mark, d, d.Manufacturer())
	}
	return nil
}

func joinIPs(p locator.NetworkPath) string {
	if len(p.Addrs) == 0 {
		return "-"
	}
	s := make([]string, len(p.Addrs))
	for i, a := range p.Addrs {
		s[i] = a.String()
	}
	return strings.Join(s, ",")
}

func capabilities(p locator.NetworkPath) string {
	var c []string
	if p.Cellular {
		c = append(c, "cellular")
	}
	if p.Internet {
		c = append(c, "internet")
	}
	if !p.NotRestricted {
		c = append(c, "restricted")
	}
	if p.Eligible() {
		c = append(c, "eligible")
	}
	if len(c) == 0 {
		return "-"
	}
	return strings.Join(c, " ")
}
