package output

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

// Table renders rows as a go-pretty table in the standard light style.
func (r *Renderer) Table(header table.Row, rows []table.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)
	t.AppendRows(rows)
	t.Render()
}
