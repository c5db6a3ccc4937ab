package httpmsg

import (
	"net/http"
	"net/textproto"
	"sort"
	"strings"
)

// ValueSeparator joins multiple values of one header name into a single
// logical value.
const ValueSeparator = ", "

// Field is a single header occurrence.
type Field struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Header is an ordered multimap of header occurrences. Names are compared
// case-insensitively and stored in canonical MIME form. Occurrence order is
// preserved, duplicates included. The zero value is an empty header.
type Header struct {
	fields []Field
}

// CanonicalName returns the canonical form of a header name.
func CanonicalName(name string) string {
	return textproto.CanonicalMIMEHeaderKey(name)
}

// HeaderFromHTTP converts an http.Header. Names are emitted in sorted order
// since http.Header carries no order between names; the order of values for
// a name is preserved.
func HeaderFromHTTP(h http.Header) Header {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	var out Header
	for _, name := range names {
		for _, v := range h[name] {
			out.Add(name, v)
		}
	}
	return out
}

// Add appends an occurrence. It never replaces earlier values.
func (h *Header) Add(name, value string) {
	h.fields = append(h.fields, Field{Name: CanonicalName(name), Value: value})
}

// Set replaces every occurrence of name with a single value. The new
// occurrence takes the position of the first removed one, or is appended.
func (h *Header) Set(name, value string) {
	name = CanonicalName(name)
	out := h.fields[:0:0]
	placed := false
	for _, f := range h.fields {
		if f.Name != name {
			out = append(out, f)
			continue
		}
		if !placed {
			out = append(out, Field{Name: name, Value: value})
			placed = true
		}
	}
	if !placed {
		out = append(out, Field{Name: name, Value: value})
	}
	h.fields = out
}

// Del removes every occurrence of name.
func (h *Header) Del(name string) {
	name = CanonicalName(name)
	out := h.fields[:0:0]
	for _, f := range h.fields {
		if f.Name != name {
			out = append(out, f)
		}
	}
	h.fields = out
}

// Values returns the values of name in occurrence order.
func (h Header) Values(name string) []string {
	name = CanonicalName(name)
	var values []string
	for _, f := range h.fields {
		if f.Name == name {
			values = append(values, f.Value)
		}
	}
	return values
}

// Get returns the values of name joined with ValueSeparator, or "" when the
// header is absent.
func (h Header) Get(name string) string {
	return strings.Join(h.Values(name), ValueSeparator)
}

// Lookup is like Get but also reports whether the header is present.
func (h Header) Lookup(name string) (string, bool) {
	values := h.Values(name)
	if len(values) == 0 {
		return "", false
	}
	return strings.Join(values, ValueSeparator), true
}

// Has reports whether at least one occurrence of name exists.
func (h Header) Has(name string) bool {
	name = CanonicalName(name)
	for _, f := range h.fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Names returns the distinct names in order of first occurrence.
func (h Header) Names() []string {
	seen := make(map[string]struct{}, len(h.fields))
	var names []string
	for _, f := range h.fields {
		if _, ok := seen[f.Name]; ok {
			continue
		}
		seen[f.Name] = struct{}{}
		names = append(names, f.Name)
	}
	return names
}

// Fields returns a copy of all occurrences in order.
func (h Header) Fields() []Field {
	out := make([]Field, len(h.fields))
	copy(out, h.fields)
	return out
}

// Len returns the number of occurrences.
func (h Header) Len() int {
	return len(h.fields)
}

// Clone returns an independent copy.
func (h Header) Clone() Header {
	return Header{fields: h.Fields()}
}

// HTTP converts to an http.Header keeping every occurrence as its own value.
func (h Header) HTTP() http.Header {
	out := make(http.Header, len(h.fields))
	for _, f := range h.fields {
		out[f.Name] = append(out[f.Name], f.Value)
	}
	return out
}

// Joined converts to an http.Header holding one logical value per name,
// with same-named occurrences joined by ValueSeparator in declaration order.
func (h Header) Joined() http.Header {
	out := make(http.Header, len(h.fields))
	for _, name := range h.Names() {
		out[name] = []string{h.Get(name)}
	}
	return out
}

// String renders the header one occurrence per line.
func (h Header) String() string {
	var sb strings.Builder
	for _, f := range h.fields {
		sb.WriteString(f.Name)
		sb.WriteString(": ")
		sb.WriteString(f.Value)
		sb.WriteString("\n")
	}
	return sb.String()
}
