// Package model provides capability-based model selection. Instead of
// hardcoding model names, callers specify what they need the model for
// ("chat", "feedback") and the registry resolves that to configured
// endpoints with fallback chains.
package model

// Capability represents a semantic capability for model selection.
type Capability string

const (
	// CapabilityChat is for multi-turn conversational replies.
	CapabilityChat Capability = "chat"

	// CapabilityFeedback is for long-form architectural feedback over
	// analysis results.
	CapabilityFeedback Capability = "feedback"

	// CapabilityFast is for quick, low-stakes completions.
	CapabilityFast Capability = "fast"
)

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityChat, CapabilityFeedback, CapabilityFast:
		return true
	}
	return false
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for
// unknown values.
func ParseCapability(s string) Capability {
	c := Capability(s)
	if c.IsValid() {
		return c
	}
	return ""
}
