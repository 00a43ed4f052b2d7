package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vvka-141/erpsync/internal/entity"
)

// CatalogEntry is one row of the entity listing.
type CatalogEntry struct {
	Descriptor *entity.Descriptor
	// Overridden is set when the query comes from configuration.
	Overridden bool
	Disabled   bool
}

var catalogHeaders = []string{"#", "entity", "table", "key", "depends on", "query"}

// RenderCatalog formats entity types in load order. Disabled ones are dimmed.
func RenderCatalog(entries []CatalogEntry) string {
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		query := "default"
		switch {
		case e.Disabled:
			query = "disabled"
		case e.Overridden:
			query = "override"
		}
		deps := strings.Join(e.Descriptor.References(), ", ")
		if deps == "" {
			deps = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			e.Descriptor.Name,
			e.Descriptor.Table,
			strings.Join(e.Descriptor.Key, ", "),
			deps,
			query,
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(MutedStyle).
		Headers(catalogHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return HeaderStyle
			case entries[row].Disabled:
				return CellStyle.Foreground(ColorMuted)
			}
			return CellStyle
		}).
		String()
}
