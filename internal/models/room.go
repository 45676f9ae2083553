// Package models defines the core data types for the room list engine.
package models

import (
	"fmt"
	"time"
)

// Membership is the local user's membership state in a room.
type Membership string

const (
	MembershipJoined  Membership = "join"
	MembershipInvited Membership = "invite"
	MembershipLeft    Membership = "leave"
	MembershipBanned  Membership = "ban"
)

// Valid reports whether the membership is one of the known states.
func (m Membership) Valid() bool {
	switch m {
	case MembershipJoined, MembershipInvited, MembershipLeft, MembershipBanned:
		return true
	default:
		return false
	}
}

// TagMeta is the per-tag metadata attached to a room by the chat client.
type TagMeta struct {
	// Order is the manual ordering value for the tag, if the client set one.
	Order *float64 `json:"order,omitempty" yaml:"order,omitempty"`
}

// Notifications carries the counters used to derive a room's importance.
type Notifications struct {
	// Highlights counts unread mentions/keywords.
	Highlights int `json:"highlights" yaml:"highlights"`

	// Notifying counts unread events that trigger a notification.
	Notifying int `json:"notifying" yaml:"notifying"`

	// Unread counts unread events that do not notify.
	Unread int `json:"unread" yaml:"unread"`
}

// Room is a conversation record supplied by the chat client.
// The room list engine reads rooms but never mutates them.
type Room struct {
	// ID is the stable room identifier.
	ID string `json:"id" yaml:"id"`

	// Name is the current display name.
	Name string `json:"name" yaml:"name"`

	// Membership is the local user's membership.
	Membership Membership `json:"membership" yaml:"membership"`

	// Tags maps raw tag names to their metadata.
	Tags map[Tag]TagMeta `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Direct marks the room as a direct message in the account data.
	Direct bool `json:"direct,omitempty" yaml:"direct,omitempty"`

	// JoinedMembers is the number of joined members.
	JoinedMembers int `json:"joined_members" yaml:"joined_members"`

	// LastActivity is the timestamp of the latest meaningful event.
	LastActivity time.Time `json:"last_activity" yaml:"last_activity"`

	// Notifications holds the importance counters.
	Notifications Notifications `json:"notifications" yaml:"notifications"`
}

// HasTag reports whether the room carries the raw tag.
func (r *Room) HasTag(tag Tag) bool {
	if r == nil || len(r.Tags) == 0 {
		return false
	}
	_, ok := r.Tags[tag]
	return ok
}

// ManualOrder returns the manual order value for a tag.
func (r *Room) ManualOrder(tag Tag) (float64, bool) {
	if r == nil || len(r.Tags) == 0 {
		return 0, false
	}
	meta, ok := r.Tags[tag]
	if !ok || meta.Order == nil {
		return 0, false
	}
	return *meta.Order, true
}

// IsDirectChat reports whether the room is a two-party direct chat.
func (r *Room) IsDirectChat() bool {
	return r != nil && r.Direct && r.JoinedMembers == 2
}

// Validate checks the fields the engine depends on.
func (r *Room) Validate() error {
	var errs ValidationErrors
	if r == nil {
		errs.Add("", ErrMissingRoomID)
		return errs.Err()
	}
	if r.ID == "" {
		errs.Add("id", ErrMissingRoomID)
	}
	if !r.Membership.Valid() {
		errs.Add("membership", fmt.Errorf("%w %q", ErrUnknownMembership, r.Membership))
	}
	for tag := range r.Tags {
		if tag == "" {
			errs.Add("tags", ErrEmptyTag)
			break
		}
	}
	return errs.Err()
}

// Float64 returns a pointer to v. Handy for building TagMeta literals.
func Float64(v float64) *float64 {
	return &v
}
