// Package matching provides the request predicates used to decide whether a
// declared mock applies to an outgoing request.
//
// Matchers form a closed set of variants, all evaluated through the Matcher
// interface:
//
//   - Method: case-insensitive method equality
//   - URL, URLPattern, PathGlob: URL equality, regex or ** glob on the path
//   - Query: query parameter equality
//   - Header, HeaderPresent: joined multi-value header equality and presence
//   - Body, BodyContains, BodyPattern: raw body predicates
//   - JSON: structural JSON equality, member order ignored
//   - JSONPath, JSONSchema, XPath: structured body conditions
//   - Expr: boolean expressions over the request
//   - Func: caller-supplied predicates
//
// A Set combines matchers with AND semantics. Matches evaluates them in
// declaration order and stops at the first failure; Explain evaluates every
// matcher and returns one Result each, which is what failure diagnostics are
// built from.
//
// Header values sent more than once are joined with ", " in the order they
// were received and compared as one string, so a matcher declared as
// Header("x-hello", "a, b") matches a request carrying x-hello: a and
// x-hello: b, while Header("x-hello", "a") does not.
package matching
