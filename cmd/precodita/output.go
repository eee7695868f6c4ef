package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sghaida/precodita/dispatch"
	"github.com/sghaida/precodita/internal/scenario"
)

const (
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiReset = "\x1b[0m"
)

func paint(s, color string, enabled bool) string {
	if !enabled {
		return s
	}
	return color + s + ansiReset
}

// describeCall renders a call like "func(matrix, int) [Mat2]".
func describeCall(c scenario.Call) string {
	var b strings.Builder
	b.WriteString(c.Function)
	if c.IsInvoke() {
		b.WriteString(".invoke(" + c.Invoke + ")")
	} else {
		b.WriteString("(" + strings.Join(c.Args, ", ") + ")")
	}
	if len(c.Overrides) > 0 {
		b.WriteString(" with [" + strings.Join(c.Overrides, ", ") + "]")
	}
	if len(c.Context) > 0 {
		b.WriteString(" ctx [" + strings.Join(c.Context, ", ") + "]")
	}
	return b.String()
}

func writeReport(w io.Writer, rep *scenario.Report, color bool) {
	_, _ = fmt.Fprintf(w, "scenario %s\n", rep.Scenario)
	if len(rep.Late) > 0 {
		_, _ = fmt.Fprintf(w, "late registrations: %s\n", strings.Join(rep.Late, ", "))
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, o := range rep.Outcomes {
		status := ""
		switch {
		case o.Call.Expect == "":
		case o.Passed():
			status = paint("ok", ansiGreen, color)
		default:
			status = paint("FAIL (want "+o.Call.Expect+")", ansiRed, color)
		}
		_, _ = fmt.Fprintf(tw, "#%d\t%s\t-> %s\t%s\n", o.Index, describeCall(o.Call), o.Result(), status)
	}
	_ = tw.Flush()

	if failed := rep.Failed(); failed > 0 {
		_, _ = fmt.Fprintf(w, "%d of %d calls failed\n", failed, len(rep.Outcomes))
	}
}

func writeBackends(w io.Writer, backends []*dispatch.Backend) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tID\tTYPES\tSUPERSEDES\tFLAGS")
	for _, b := range backends {
		var flags []string
		if b.OptIn() {
			flags = append(flags, "opt-in")
		}
		if b.HasCallback() {
			flags = append(flags, "late")
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			b.Name(), b.ID(), b.Types(), b.Supersedes(), strings.Join(flags, ","))
	}
	_ = tw.Flush()
}
