// Package format renders lattice results for the console Output panel and the one-shot CLI.
package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wascc/wcc/schema"
)

const notAvailable = "N/A"

// HostsText renders hosts with a HOST_ID/UPTIME header.
func HostsText(hosts []schema.Host) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(" %-58s %s ", "HOST_ID", "UPTIME(seconds)"))
	for _, h := range hosts {
		b.WriteString(fmt.Sprintf("\n %s   %d", h.ID, h.UptimeSeconds))
	}
	return b.String()
}

// InventoryText renders a host inventory as LABELS, ACTORS and PROVIDERS sections.
func InventoryText(inv schema.HostInventory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "HOST INVENTORY (%s)\nLABELS\n", inv.HostID)
	for _, key := range sortedKeys(inv.Labels) {
		fmt.Fprintf(&b, "  %s=%s\n", key, inv.Labels[key])
	}
	b.WriteString("\nACTORS\n")
	for _, a := range inv.Actors {
		fmt.Fprintf(&b, "  %s   %s\n", a.ID, orNA(a.ImageRef))
	}
	b.WriteString("\nPROVIDERS\n")
	for _, p := range inv.Providers {
		fmt.Fprintf(&b, "  %s   %s   %s\n", p.ID, p.LinkName, orNA(p.ImageRef))
	}
	return strings.TrimRight(b.String(), "\n")
}

// ClaimsText renders one block per claim.
func ClaimsText(list schema.ClaimsList) string {
	if len(list.Claims) == 0 {
		return "No claims found"
	}
	blocks := make([]string, 0, len(list.Claims))
	for _, c := range list.Claims {
		blocks = append(blocks, strings.Join([]string{
			"Issuer:       " + c.Issuer,
			"Subject:      " + c.Subject,
			"Capabilities: " + c.Capabilities,
			"Version:      " + c.Version,
			"Revision:     " + c.Revision,
		}, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// StartedText confirms a started actor or provider.
func StartedText(ref, id string) string {
	return fmt.Sprintf("Starting %s (%s)", ref, id)
}

// StoppedText confirms a stopped actor or provider.
func StoppedText(kind, ref string) string {
	return fmt.Sprintf("Successfully stopped %s %s", kind, ref)
}

// LinkedText confirms an advertised link.
func LinkedText(link schema.LinkDefinition) string {
	return fmt.Sprintf("Linked %s <-> %s", link.ActorID, link.ProviderID)
}

// CallText renders the raw response of an actor call.
func CallText(resp schema.InvocationResponse) string {
	return fmt.Sprintf("Call response (raw): %s", string(resp.Msg))
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return notAvailable
	}
	return value
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
