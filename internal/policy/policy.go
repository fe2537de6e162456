// Package policy decides, for each line of backend output, whether it is
// chat or general server output and whether a session should see it.
//
// The patterns are data: Default returns the built-in set and the
// [policy] section of the config file can replace any of the lists.
package policy

import (
	"fmt"
	"regexp"

	"github.com/firefly-engineering/adminmux/internal/auth"
	"github.com/firefly-engineering/adminmux/internal/backend"
)

// Class is the classification of one line.
type Class int

const (
	ClassGeneral Class = iota
	ClassChat
	ClassPrivate
)

func (c Class) String() string {
	switch c {
	case ClassChat:
		return "chat"
	case ClassPrivate:
		return "private"
	default:
		return "general"
	}
}

// IsChat reports whether the class belongs in a chat pane.
func (c Class) IsChat() bool {
	return c == ClassChat || c == ClassPrivate
}

// Patterns is the uncompiled, configurable form of a Policy.
type Patterns struct {
	// AlwaysElide hides lines from every backend, focused or not.
	AlwaysElide []string `toml:"always_elide" yaml:"always_elide"`

	// UnfocusedChatElide hides chat lines from non-focused backends.
	UnfocusedChatElide []string `toml:"unfocused_chat_elide" yaml:"unfocused_chat_elide"`

	// NeverElide keeps general lines from non-focused backends visible.
	NeverElide []string `toml:"never_elide" yaml:"never_elide"`
}

// DefaultPatterns returns the built-in pattern set.
func DefaultPatterns() Patterns {
	return Patterns{
		AlwaysElide: []string{
			`(?i)^\[map\] (ending|starting|rotating)\b`,
			`(?i)^\[enter\] `,
			`(?i)^\[pm -> \S+\] `,
			`(?i)^tell: (message )?sent to \S+`,
			`(?i)^\(pm\) delivered\b`,
		},
		UnfocusedChatElide: []string{
			`entered the game`,
			`(?i)\bsession complete(d)? in \d+`,
			`(?i)\bsession timer\b`,
		},
		NeverElide: []string{
			`(?i)^\[(ban|unban|mute|unmute|kick|security)\]`,
		},
	}
}

// Users resolves speakers to accounts.
type Users interface {
	Lookup(name string) (*auth.User, bool)
}

// Policy is a compiled pattern set.
type Policy struct {
	alwaysElide        []*regexp.Regexp
	unfocusedChatElide []*regexp.Regexp
	neverElide         []*regexp.Regexp
}

// Compile turns p into a Policy. Empty lists fall back to the defaults.
func Compile(p Patterns) (*Policy, error) {
	defaults := DefaultPatterns()
	if p.AlwaysElide == nil {
		p.AlwaysElide = defaults.AlwaysElide
	}
	if p.UnfocusedChatElide == nil {
		p.UnfocusedChatElide = defaults.UnfocusedChatElide
	}
	if p.NeverElide == nil {
		p.NeverElide = defaults.NeverElide
	}

	var (
		pol Policy
		err error
	)
	if pol.alwaysElide, err = compileAll("always_elide", p.AlwaysElide); err != nil {
		return nil, err
	}
	if pol.unfocusedChatElide, err = compileAll("unfocused_chat_elide", p.UnfocusedChatElide); err != nil {
		return nil, err
	}
	if pol.neverElide, err = compileAll("never_elide", p.NeverElide); err != nil {
		return nil, err
	}
	return &pol, nil
}

// Default returns the compiled built-in policy.
func Default() *Policy {
	pol, err := Compile(DefaultPatterns())
	if err != nil {
		panic(err)
	}
	return pol
}

func compileAll(list string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", list, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Classify decides whether line is chat. A line is chat when it is a
// private message or is attributed to a known account that is not
// automated; a logout notice is general even then, so that logouts never
// flood the chat pane.
func (p *Policy) Classify(line *backend.Line, users Users) Class {
	if line.Private {
		return ClassPrivate
	}
	if line.Speaker == "" {
		return ClassGeneral
	}
	u, ok := users.Lookup(line.Speaker)
	if !ok || u.Automated() {
		return ClassGeneral
	}
	if line.Tag == "logout" {
		return ClassGeneral
	}
	return ClassChat
}

// Elide reports whether a session should hide line. focused is true when
// the line came from the session's focused backend. A line matching a
// never-elide pattern is always shown, whatever the other sets say.
func (p *Policy) Elide(line *backend.Line, class Class, focused bool) bool {
	if matchAny(p.neverElide, line.Text) {
		return false
	}
	if matchAny(p.alwaysElide, line.Text) {
		return true
	}
	if focused {
		return false
	}
	if class.IsChat() {
		return matchAny(p.unfocusedChatElide, line.Text)
	}
	return true
}

func matchAny(res []*regexp.Regexp, text string) bool {
	for _, re := range res {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
