package provider_test

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/kbukum/quizgen/provider"
)

type echoProvider struct {
	name      string
	available bool
}

func (p *echoProvider) Name() string                       { return p.name }
func (p *echoProvider) IsAvailable(context.Context) bool   { return p.available }
func (p *echoProvider) Execute(_ context.Context, in string) (string, error) {
	return "echo:" + in, nil
}

var errFlaky = errors.New("flaky")

// flakyProvider fails the first n calls.
type flakyProvider struct {
	failures int32
	calls    atomic.Int32
	err      error
}

func (p *flakyProvider) Name() string                     { return "flaky" }
func (p *flakyProvider) IsAvailable(context.Context) bool { return true }
func (p *flakyProvider) Execute(_ context.Context, in string) (string, error) {
	if p.calls.Add(1) <= p.failures {
		if p.err != nil {
			return "", p.err
		}
		return "", errFlaky
	}
	return "ok:" + in, nil
}

var _ provider.RequestResponse[string, string] = (*echoProvider)(nil)
