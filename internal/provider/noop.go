package provider

import "context"

// Noop always succeeds without touching the network. Default outside
// production so development and staging never page real phones.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

var _ Provider = (*Noop)(nil)

func (n *Noop) Name() string { return "noop" }

func (n *Noop) Send(_ context.Context, _, _ string) (Result, error) {
	return Result{ProviderName: n.Name(), ProviderResponse: "accepted (noop)"}, nil
}
