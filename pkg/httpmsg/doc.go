// Package httpmsg defines the transport-neutral message model shared by the
// matching engine and the interceptors: an ordered, multi-value Header and
// the canonical, immutable Request that interceptors build for every
// outgoing call.
package httpmsg
