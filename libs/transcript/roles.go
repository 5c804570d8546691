package transcript

import (
	"fmt"
	"strings"
)

// Role is the normalized speaker category, distinct from the raw label.
type Role string

const (
	RoleCoach   Role = "coach"
	RoleClient  Role = "client"
	RoleUnknown Role = "unknown"
)

// ParseRole normalizes a user-provided role string.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(s)); r {
	case RoleCoach, RoleClient, RoleUnknown:
		return r, nil
	}
	return "", &ValidationError{Reason: fmt.Sprintf("unknown speaker role %q", s)}
}

// DisplayName returns the capitalized role name used in rendered output.
func (r Role) DisplayName() string {
	switch r {
	case RoleCoach:
		return "Coach"
	case RoleClient:
		return "Client"
	}
	return ""
}

// RoleMap maps raw speaker labels to their assigned roles.
type RoleMap map[string]Role

// Resolve returns the role assigned to a raw label, defaulting to unknown.
// Resolution is idempotent: a label maps to the same role until the map itself
// is changed.
func (m RoleMap) Resolve(label string) Role {
	if m == nil {
		return RoleUnknown
	}
	if r, ok := m[label]; ok && r != "" {
		return r
	}
	return RoleUnknown
}

// SpeakerOrder returns the distinct raw labels in first-seen order.
func SpeakerOrder(segments []*Segment) []string {
	var order []string
	seen := make(map[string]bool)
	for _, seg := range segments {
		if !seen[seg.Speaker] {
			seen[seg.Speaker] = true
			order = append(order, seg.Speaker)
		}
	}
	return order
}

// displayLabels maps each raw label to the name shown in rendered output:
// the role name when assigned, otherwise "Speaker N" in first-seen order.
func displayLabels(segments []*Segment, roles RoleMap) map[string]string {
	labels := make(map[string]string)
	for i, label := range SpeakerOrder(segments) {
		if role := roles.Resolve(label); role != RoleUnknown {
			labels[label] = role.DisplayName()
		} else {
			labels[label] = fmt.Sprintf("Speaker %d", i+1)
		}
	}
	return labels
}

// DefaultRoles derives an initial assignment for a freshly stored transcript.
// Labels that literally name a role ("Coach", "client") take that role. When
// no label does, the two-speaker suggestion stands in. Labels it cannot place
// are left unassigned.
func DefaultRoles(segments []*Segment) RoleMap {
	roles := RoleMap{}
	for _, label := range SpeakerOrder(segments) {
		switch r := Role(strings.ToLower(label)); r {
		case RoleCoach, RoleClient:
			roles[label] = r
		}
	}
	if len(roles) == 0 {
		return SuggestRoles(segments)
	}
	return roles
}

// SuggestRoles proposes coach/client assignments for a two-speaker transcript.
// The speaker with the smaller share of speaking time is suggested as the
// coach (coaches ask, clients talk). The suggestion is advisory: callers must
// let an explicit assignment win. Transcripts with any other speaker count get
// no suggestion.
func SuggestRoles(segments []*Segment) RoleMap {
	order := SpeakerOrder(segments)
	if len(order) != 2 {
		return nil
	}
	talk := make(map[string]int64, 2)
	for _, seg := range segments {
		talk[seg.Speaker] += seg.DurationMS()
	}
	coach, client := order[0], order[1]
	if talk[coach] > talk[client] {
		coach, client = client, coach
	}
	return RoleMap{coach: RoleCoach, client: RoleClient}
}
