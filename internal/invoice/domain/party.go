package domain

import "strings"

// DisplayNamePlaceholder is shown when a party has neither company nor name.
const DisplayNamePlaceholder = "—"

// NormalizeReceiver reconciles the canonical receiver block with the legacy
// client block. Precedence is per field: a non-empty receiver field always
// wins, the legacy client fills gaps for the fields it defines (name and
// email), anything else stays empty. New saves only ever write the
// receiver; the client block exists for reading old records.
func NormalizeReceiver(receiver Party, client *LegacyClient) Party {
	out := receiver
	if client == nil {
		return out
	}
	if strings.TrimSpace(out.Name) == "" {
		out.Name = client.Name
	}
	if strings.TrimSpace(out.Email) == "" {
		out.Email = client.Email
	}
	return out
}

// DisplayName derives the label list and detail views use for a party:
// company first, then contact name, then a placeholder. Pure and stable so
// search and filtering can be built on top of it.
func DisplayName(p Party) string {
	if company := strings.TrimSpace(p.Company); company != "" {
		return company
	}
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return DisplayNamePlaceholder
}
