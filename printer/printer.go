// Package printer renders a module's graph to the diagnostic artifacts
// §6 names: a graphviz `.gv` per module, a `.txt` connection listing, and
// a `stats.csv` block-type count, plus a column-aligned console-friendly
// companion table for the latter (github.com/jedib0t/go-pretty/v6/table),
// matching core.PrintState's use of the same library for its register and
// buffer dumps.
package printer

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/synthflow/ir"
)

// WriteGraphviz renders m's blocks and connections as a graphviz digraph.
// Blocks are nodes labelled with their type and Print() detail; hidden
// connections (either endpoint blacklisted) are rendered dashed.
func WriteGraphviz(w io.Writer, m *ir.Module) error {
	conns := m.Conns()
	fmt.Fprintf(w, "digraph %q {\n", m.Name())
	fmt.Fprintln(w, "  rankdir=LR;")

	if conns == nil {
		fmt.Fprintln(w, "  // opaque module: no internal graph")
		fmt.Fprintln(w, "}")
		return nil
	}

	blocks := m.Blocks()
	sortBlocks(blocks)

	for _, b := range blocks {
		fmt.Fprintf(w, "  %q [label=%q];\n", nodeID(b), escapeLabel(b.Name(), b.Print()))
	}

	for _, b := range blocks {
		for _, op := range b.Outputs() {
			for _, ip := range conns.FindSinks(op) {
				style := ""
				if conns.IsHidden(op, ip) {
					style = " [style=dashed]"
				}
				fmt.Fprintf(w, "  %q -> %q%s;\n", nodeID(b), nodeID(ip.Owner()), style)
			}
		}
	}

	fmt.Fprintln(w, "}")
	return nil
}

func escapeLabel(name, detail string) string {
	if detail == "" {
		return name
	}
	return name + "\\n" + detail
}

func nodeID(b *ir.Block) string {
	return fmt.Sprintf("%s_%d", b.Name(), b.ID())
}

// WriteConnectionListing renders one line per connection in m, in
// deterministic (block-name, then port-name) order: "src.port -> dst.port
// : type".
func WriteConnectionListing(w io.Writer, m *ir.Module) error {
	conns := m.Conns()
	if conns == nil {
		fmt.Fprintf(w, "# %s: opaque module\n", m.Name())
		return nil
	}

	type line struct {
		src, dst string
		typ      string
	}
	var lines []line
	for _, b := range m.Blocks() {
		for _, op := range b.Outputs() {
			for _, ip := range conns.FindSinks(op) {
				lines = append(lines, line{
					src: fmt.Sprintf("%s.%s", b.Name(), op.Name()),
					dst: fmt.Sprintf("%s.%s", ip.Owner().Name(), ip.Name()),
					typ: op.Type().String(),
				})
			}
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].src != lines[j].src {
			return lines[i].src < lines[j].src
		}
		return lines[i].dst < lines[j].dst
	})

	fmt.Fprintf(w, "# %s\n", m.Name())
	for _, l := range lines {
		fmt.Fprintf(w, "%s -> %s : %s\n", l.src, l.dst, l.typ)
	}
	return nil
}

// BlockTypeCounts tallies m's blocks by TypeName, recursing into
// submodules.
func BlockTypeCounts(m *ir.Module) map[string]int {
	counts := map[string]int{}
	var walk func(*ir.Module)
	walk = func(mod *ir.Module) {
		for _, b := range mod.Blocks() {
			counts[b.TypeName()]++
		}
		for _, sub := range mod.SubModules() {
			walk(sub)
		}
	}
	walk(m)
	return counts
}

// WriteStatsCSV writes BlockTypeCounts(m) as "type,count" lines, sorted by
// type name, with a header row — the machine-readable stats.csv §6 names.
func WriteStatsCSV(w io.Writer, m *ir.Module) error {
	counts := BlockTypeCounts(m)
	types := sortedKeys(counts)

	fmt.Fprintln(w, "type,count")
	for _, t := range types {
		fmt.Fprintf(w, "%s,%d\n", t, counts[t])
	}
	return nil
}

// StatsTable renders BlockTypeCounts(m) as the human-readable companion
// to stats.csv.
func StatsTable(m *ir.Module) string {
	counts := BlockTypeCounts(m)
	types := sortedKeys(counts)

	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("Block counts: %s", m.Name()))
	t.AppendHeader(table.Row{"Type", "Count"})
	total := 0
	for _, k := range types {
		t.AppendRow(table.Row{k, counts[k]})
		total += counts[k]
	}
	t.AppendFooter(table.Row{"Total", total})
	return t.Render()
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortBlocks(blocks []*ir.Block) {
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].Name() != blocks[j].Name() {
			return blocks[i].Name() < blocks[j].Name()
		}
		return blocks[i].ID() < blocks[j].ID()
	})
}

// ExternalPortNames infers the §6 "input0, output0, ..." names for a
// ContainerModule's external ports, in declaration order.
func ExternalPortNames(c *ir.ContainerModule) (inputs, outputs []string) {
	for i := range c.Inputs {
		inputs = append(inputs, fmt.Sprintf("input%d", i))
	}
	for i := range c.Outputs {
		outputs = append(outputs, fmt.Sprintf("output%d", i))
	}
	return inputs, outputs
}
