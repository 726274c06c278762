package freekiq

import (
	"errors"
	"reflect"
)

// ErrorMatcher decides whether an error belongs to a whitelist entry.
type ErrorMatcher interface {
	Match(err error) bool
}

// Whitelist restricts free retries to matching errors.
//
// A nil Whitelist is undeclared and defers to the next policy in line
// (ultimately allowing every error). Use [Only] to declare one; an empty
// declared whitelist matches nothing.
type Whitelist []ErrorMatcher

// Only declares a whitelist made of the given matchers.
func Only(matchers ...ErrorMatcher) Whitelist {
	if matchers == nil {
		return Whitelist{}
	}
	return Whitelist(matchers)
}

// Declared reports whether the whitelist was declared.
func (w Whitelist) Declared() bool { return w != nil }

// Eligible reports whether err qualifies for a free retry under w.
// An undeclared whitelist accepts every error.
func Eligible(err error, w Whitelist) bool {
	if w == nil {
		return true
	}
	for _, m := range w {
		if m.Match(err) {
			return true
		}
	}
	return false
}

type typeMatcher[T error] struct{}

// MatchType returns a matcher for errors of type T.
//
// It matches when errors.As can view the error as a T: the error itself or
// any error it wraps is a T, or implements T when T is an interface type.
func MatchType[T error]() ErrorMatcher { return typeMatcher[T]{} }

func (typeMatcher[T]) Match(err error) bool {
	var target T
	return errors.As(err, &target)
}

func (typeMatcher[T]) String() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

type nameMatcher string

// MatchName returns a matcher comparing the fully-qualified name of the
// error's dynamic type, as reported by [TypeName], with name.
//
// Unlike [MatchType] it never looks at wrapped errors or interfaces.
func MatchName(name string) ErrorMatcher { return nameMatcher(name) }

func (n nameMatcher) Match(err error) bool { return TypeName(err) == string(n) }

func (n nameMatcher) String() string { return string(n) }

// TypeName returns the fully-qualified name of err's dynamic type, with
// pointer indirections removed: "github.com/acme/app.ArgumentError",
// "errors.errorString". It returns "" for a nil error.
func TypeName(err error) string {
	if err == nil {
		return ""
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
