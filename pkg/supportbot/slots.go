package supportbot

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-go-golems/supportchat/pkg/tickets"
)

var (
	orderIDRe  = regexp.MustCompile(`\b\d{6,}\b`)
	productRes = compileWords(productKeywords)
)

func compileWords(words []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		out = append(out, regexp.MustCompile(`\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return out
}

// RequiredSlots returns the slots an intent needs. Sub-intents inherit the
// slots of their base intent.
func RequiredSlots(intent string) []string {
	if s, ok := intentSlots[intent]; ok {
		return s
	}
	return intentSlots[tickets.BaseIntent(intent)]
}

// ExtractSlots pulls the values of the intent's required slots out of text.
func ExtractSlots(intent, text string) map[string]string {
	required := map[string]bool{}
	for _, s := range RequiredSlots(intent) {
		required[s] = true
	}
	lower := strings.ToLower(text)
	out := map[string]string{}

	if required[SlotProductName] {
		for i, re := range productRes {
			if re.MatchString(lower) {
				out[SlotProductName] = productKeywords[i]
				break
			}
		}
	}
	if required[SlotOrderID] {
		if m := orderIDRe.FindString(lower); m != "" {
			out[SlotOrderID] = m
		}
	}
	if required[SlotReason] || required[SlotIssue] {
		for _, kw := range problemKeywords {
			if !strings.Contains(lower, kw) {
				continue
			}
			if required[SlotReason] {
				out[SlotReason] = kw
			}
			if required[SlotIssue] {
				out[SlotIssue] = kw
			}
		}
	}
	return out
}

// formatSlots renders slots in the intent's slot order.
func formatSlots(intent string, slots map[string]string) string {
	parts := []string{}
	for _, name := range RequiredSlots(intent) {
		if v, ok := slots[name]; ok {
			parts = append(parts, fmt.Sprintf("'%s': '%s'", name, v))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
