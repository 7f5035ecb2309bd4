package main

import (
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

var (
	greenCheck = color.GreenString("✔")
	redCross   = color.RedString("✘")
)

func applyTableFormat(t table.Writer) {
	t.SetStyle(table.StyleRounded)
	t.Style().Options.SeparateRows = false
}
