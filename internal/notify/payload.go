package notify

import "fmt"

type Kind string

const (
	KindChat    Kind = "chat"
	KindListing Kind = "listing"
	KindGeneric Kind = "generic"
)

const (
	defaultIcon  = "/icons/icon-192x192.png"
	defaultBadge = "/icons/badge-72x72.png"
)

// Payload is the platform-independent notification content. Adapters map it
// onto their own wire shapes.
type Payload struct {
	Kind  Kind   `json:"kind"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
	Badge string `json:"badge,omitempty"`
	// URL is the deep link opened when the notification is activated.
	URL string `json:"url,omitempty"`
	// RefID is the topic or favor id the deep link points at.
	RefID uint64 `json:"refId,omitempty"`
}

// Normalize fills default icon/badge and derives the deep link from the
// notification kind when the caller did not set one.
func Normalize(p Payload) Payload {
	if p.Icon == "" {
		p.Icon = defaultIcon
	}
	if p.Badge == "" {
		p.Badge = defaultBadge
	}
	if p.URL == "" {
		switch p.Kind {
		case KindChat:
			p.URL = fmt.Sprintf("/chat/%d", p.RefID)
		case KindListing:
			p.URL = fmt.Sprintf("/favors/%d", p.RefID)
		default:
			p.URL = "/"
		}
	}
	return p
}

// Target selects who a dispatch reaches: an explicit user list, every
// subscriber, or a geographic segment resolved by the relay platform.
type Target struct {
	kind    targetKind
	users   []string
	segment string
}

type targetKind int

const (
	targetUsers targetKind = iota
	targetBroadcast
	targetSegment
)

func Users(ids ...string) Target {
	return Target{kind: targetUsers, users: ids}
}

func Broadcast() Target {
	return Target{kind: targetBroadcast}
}

// Segment targets a named geographic segment. The geo-fencing itself is the
// relay platform's job, not ours.
func Segment(name string) Target {
	return Target{kind: targetSegment, segment: name}
}
