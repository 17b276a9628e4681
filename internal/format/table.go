package format

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/wascc/wcc/schema"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	rightStyle  = cellStyle.Align(lipgloss.Right)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// HostsTable renders hosts as a two column table.
func HostsTable(namespace string, hosts []schema.Host) string {
	t := newTable("Host ID", "Uptime (seconds)").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 1:
				return rightStyle
			}
			return cellStyle
		})
	for _, h := range hosts {
		t.Row(string(h.ID), fmt.Sprintf("%d", h.UptimeSeconds))
	}
	return titleStyle.Render("Hosts - "+namespace) + "\n" + t.Render()
}

// InventoryTable renders labels, actors and providers of a host.
func InventoryTable(inv schema.HostInventory) string {
	var sections []string
	sections = append(sections, titleStyle.Render(fmt.Sprintf("Host Inventory - %s", inv.HostID)))
	if len(inv.Labels) > 0 {
		labels := newTable("Label", "Value")
		for _, key := range sortedKeys(inv.Labels) {
			labels.Row(key, inv.Labels[key])
		}
		sections = append(sections, labels.Render())
	} else {
		sections = append(sections, "No labels")
	}
	if len(inv.Actors) > 0 {
		actors := newTable("Actor ID", "Image Reference")
		for _, a := range inv.Actors {
			actors.Row(string(a.ID), orNA(a.ImageRef))
		}
		sections = append(sections, actors.Render())
	} else {
		sections = append(sections, "No actors found")
	}
	if len(inv.Providers) > 0 {
		providers := newTable("Provider ID", "Link Name", "Image Reference")
		for _, p := range inv.Providers {
			providers.Row(string(p.ID), p.LinkName, orNA(p.ImageRef))
		}
		sections = append(sections, providers.Render())
	} else {
		sections = append(sections, "No providers found")
	}
	return strings.Join(sections, "\n")
}

// ClaimsTable renders one key/value block per claim.
func ClaimsTable(namespace string, list schema.ClaimsList) string {
	t := newTable("Claim", "Value")
	for i, c := range list.Claims {
		if i > 0 {
			t.Row("", "")
		}
		t.Row("Issuer", c.Issuer)
		t.Row("Subject", c.Subject)
		t.Row("Capabilities", c.Capabilities)
		t.Row("Version", c.Version)
		t.Row("Revision", c.Revision)
	}
	return titleStyle.Render("Claims - "+namespace) + "\n" + t.Render()
}
