package logging

import (
	"log/slog"
	"slices"
)

// scopedAttr is an attribute added by WithAttrs together with the groups
// that were open at the time.
type scopedAttr struct {
	groups []string
	attr   slog.Attr
}

// scope holds what WithAttrs and WithGroup accumulate on a handler.
// Values are immutable; the with* methods return copies.
type scope struct {
	attrs  []scopedAttr
	groups []string
}

func (s scope) withAttrs(attrs []slog.Attr) scope {
	out := scope{
		attrs:  make([]scopedAttr, 0, len(s.attrs)+len(attrs)),
		groups: s.groups,
	}
	out.attrs = append(out.attrs, s.attrs...)
	for _, a := range attrs {
		out.attrs = append(out.attrs, scopedAttr{groups: s.groups, attr: a})
	}
	return out
}

func (s scope) withGroup(name string) scope {
	return scope{
		attrs:  s.attrs,
		groups: append(slices.Clone(s.groups), name),
	}
}

// each calls fn for the handler's attributes, then the record's.
func (s scope) each(r slog.Record, fn func(groups []string, a slog.Attr)) {
	for _, sa := range s.attrs {
		fn(sa.groups, sa.attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		fn(s.groups, a)
		return true
	})
}

// isModule reports whether a is the top-level module attribute set by
// GetLogger.
func isModule(groups []string, a slog.Attr) bool {
	return len(groups) == 0 && a.Key == "module"
}
