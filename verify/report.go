package verify

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// WriteReport writes a formatted report to a writer
func (r Report) WriteReport(w io.Writer) {
	separator := strings.Repeat("=", 60)

	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, "CONTROL FLOW VERIFICATION REPORT")
	fmt.Fprintln(w, separator)

	fmt.Fprintf(w, "Maximum stack depth: %d of %d\n", r.MaxStackDepth, MaxStackDepth)

	if len(r.Subroutines) == 0 {
		fmt.Fprintln(w, "No subroutines discovered")
	} else {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetTitle(fmt.Sprintf("Subroutines (%d)", len(r.Subroutines)))
		t.AppendHeader(table.Row{"Start", "End", "Called From", "Depth"})

		for _, s := range r.Subroutines {
			t.AppendRow(table.Row{s.Start, s.End, s.Return, s.Depth})
		}

		t.Render()
	}

	if len(r.Advisories) == 0 {
		fmt.Fprintln(w, "✓ No advisories")
		return
	}

	fmt.Fprintf(w, "⚠ %d advisories:\n", len(r.Advisories))

	for _, issue := range r.Advisories {
		fmt.Fprintf(w, "  [%s] address %d: %s\n", issue.Type, issue.Address, issue.Message)
	}
}
