package metaspace

import (
	"fmt"
	"io"
)

// ReportFlag selects optional parts of a metaspace report.
type ReportFlag int

const (
	// ReportShowSettings includes the process-wide granule configuration.
	ReportShowSettings ReportFlag = 1 << iota
	// ReportShowCommitMap includes each node's commit mask rendering.
	ReportShowCommitMap
	// ReportShowNodes breaks totals down per node.
	ReportShowNodes
)

// Reporter renders usage reports over a set of node lists. Purely
// observational: it snapshots counters and masks but mutates nothing.
type Reporter struct {
	lists []*NodeList
}

// NewReporter returns a reporter over the given lists.
func NewReporter(lists ...*NodeList) *Reporter {
	return &Reporter{lists: lists}
}

// Lists returns the node lists the reporter covers.
func (r *Reporter) Lists() []*NodeList { return r.lists }

// PrintBasicReport writes per-list reserved/committed totals. Guaranteed to
// take no lock longer than a per-node counter snapshot, so it is safe to
// call from a signal-style diagnostic path.
func (r *Reporter) PrintBasicReport(w io.Writer) {
	fmt.Fprintln(w, "Metaspace:")

	var total NodeStats
	for _, l := range r.lists {
		s := l.Stats()
		total.Add(s)
		fmt.Fprintf(w, "  %s: reserved %d words (%d bytes), committed %d words (%d bytes)\n",
			l.Name(), s.ReservedWords, s.ReservedBytes(), s.CommittedWords, s.CommittedBytes())
	}

	fmt.Fprintf(w, "  total: reserved %d words (%d bytes), committed %d words (%d bytes)\n",
		total.ReservedWords, total.ReservedBytes(), total.CommittedWords, total.CommittedBytes())
}

// PrintReport writes the full report, with optional parts selected by
// flags.
func (r *Reporter) PrintReport(w io.Writer, flags ReportFlag) {
	r.PrintBasicReport(w)

	if flags&ReportShowSettings != 0 {
		fmt.Fprintf(w, "  commit granule: %d words (%d bytes)\n",
			CommitGranuleWords(), CommitGranuleBytes())
	}

	if flags&(ReportShowNodes|ReportShowCommitMap) == 0 {
		return
	}

	for _, l := range r.lists {
		for i, n := range l.Nodes() {
			s := n.Stats()
			fmt.Fprintf(w, "  %s, node %d, base %#x: reserved %d words, committed %d words\n",
				l.Name(), i, n.Base(), s.ReservedWords, s.CommittedWords)
			if flags&ReportShowCommitMap != 0 {
				io.WriteString(w, "    ")
				n.Render(w)
			}
		}
	}
}
