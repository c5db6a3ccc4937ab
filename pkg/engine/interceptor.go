package engine

import (
	"github.com/getmockd/mocknet/pkg/httpmsg"
	"github.com/getmockd/mocknet/pkg/mock"
)

// Action is the decision an interceptor must carry out for a request.
type Action int

// Actions.
const (
	NoMatch Action = iota
	Matched
	PassThrough
)

func (a Action) String() string {
	switch a {
	case Matched:
		return "matched"
	case PassThrough:
		return "passthrough"
	default:
		return "nomatch"
	}
}

// Outcome is the result of resolving one request.
type Outcome struct {
	Action Action

	// Response and Mock are set when Action is Matched.
	Response *mock.Response
	Mock     *mock.Mock

	// Err is set when Action is NoMatch.
	Err *NoMatchError
}

// Resolver decides how an intercepted request is handled. *Engine is the
// implementation interceptors receive.
type Resolver interface {
	Resolve(req *httpmsg.Request) Outcome
}

// Interceptor hooks one transport. Install starts routing requests through
// the resolver; Uninstall restores the hook point to exactly the value it
// had before Install.
type Interceptor interface {
	Name() string
	Install(r Resolver) error
	Uninstall() error
}
