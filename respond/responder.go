// Package respond produces the reply text for a caller utterance.
//
// Two sources exist: an ordered keyword rule set (always available) and an
// optional conversational backend reached over HTTP. The backend is a
// collaborator that may fail; rule replies are the floor that keeps every
// turn answerable.
package respond

import (
	"fmt"
	"strings"
	"time"
)

// timeToken in a rule reply is expanded to the current wall-clock time.
const timeToken = "${time}"

// Rule maps caller keywords to a reply. The first rule whose keyword occurs
// in the utterance wins.
type Rule struct {
	Keywords []string `json:"keywords"`
	Reply    string   `json:"reply"`
}

// DefaultRules returns the built-in conversational rule set.
func DefaultRules() []Rule {
	return []Rule{
		{Keywords: []string{"hello", "hi"}, Reply: "Hello! How can I help you today?"},
		{Keywords: []string{"weather"}, Reply: "I can help with weather information. Which city would you like to know about?"},
		{Keywords: []string{"time"}, Reply: "The current time is " + timeToken + "."},
		{Keywords: []string{"help"}, Reply: "I can answer questions, provide information, or help with tasks. Just ask!"},
		{Keywords: []string{"bye", "goodbye"}, Reply: "Goodbye! Have a great day!"},
	}
}

// Responder answers utterances from an ordered rule set.
type Responder struct {
	rules []Rule
	now   func() time.Time
}

// NewResponder creates a Responder. A nil or empty rule set uses the
// built-in defaults.
func NewResponder(rules []Rule) *Responder {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Responder{
		rules: rules,
		now:   time.Now,
	}
}

// Reply returns the reply text for an utterance. Matching is
// case-insensitive substring containment, first rule wins. Unmatched input
// gets an echo reply that nudges the caller toward supported topics.
func (r *Responder) Reply(input string) string {
	lowered := strings.ToLower(strings.TrimSpace(input))

	for _, rule := range r.rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(lowered, keyword) {
				return r.expand(rule.Reply)
			}
		}
	}

	return fmt.Sprintf(
		"I heard you say: %s. I'm still learning. Try asking about the weather, time, or say help for more options.",
		lowered)
}

// Farewell reports whether the utterance ends the conversation.
func Farewell(input string) bool {
	return strings.Contains(strings.ToLower(input), "bye")
}

// expand substitutes dynamic tokens in a reply.
func (r *Responder) expand(reply string) string {
	if strings.Contains(reply, timeToken) {
		reply = strings.ReplaceAll(reply, timeToken, r.now().Format("3:04 PM"))
	}
	return reply
}
