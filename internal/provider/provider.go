package provider

import "context"

// Result carries provider diagnostics recorded on the message after every
// attempt, success or failure.
type Result struct {
	ProviderName     string
	ProviderResponse string
}

// Provider is the delivery capability. A non-nil error means the attempt
// failed; retry, backoff, and rate limiting are the dispatch engine's job,
// never the provider's, so swapping providers cannot change reliability
// behavior.
type Provider interface {
	Name() string
	Send(ctx context.Context, destination, payload string) (Result, error)
}

// Resolver picks the active provider. The engine calls it once per
// dispatch pass, so a mid-pass configuration change never affects an
// in-flight batch.
type Resolver func() Provider

// Select returns the environment-driven provider policy: production talks
// to the real carrier, everything else gets the no-op provider.
func Select(env, carrierURL string) Resolver {
	if env == "production" {
		carrier := NewCarrier(carrierURL)
		return func() Provider { return carrier }
	}
	noop := NewNoop()
	return func() Provider { return noop }
}
