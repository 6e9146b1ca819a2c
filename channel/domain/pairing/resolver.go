package pairing

import (
	"context"
	"errors"
	"fmt"
)

// Resolver is one way of asking the gateway for the current artifact.
// found is false when the call worked but carried nothing usable.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, name string) (cred Credential, found bool, err error)
}

// ResolverFunc adapts a function into a named Resolver.
type ResolverFunc struct {
	Label string
	Fn    func(ctx context.Context, name string) (Credential, bool, error)
}

func (r ResolverFunc) Name() string { return r.Label }

func (r ResolverFunc) Resolve(ctx context.Context, name string) (Credential, bool, error) {
	return r.Fn(ctx, name)
}

// Chain tries resolvers in order and stops at the first one that finds an
// artifact. It is itself a Resolver.
type Chain []Resolver

func FirstSuccess(resolvers ...Resolver) Chain {
	return Chain(resolvers)
}

func (c Chain) Name() string { return "first-success" }

// Resolve returns the first found credential tagged with its resolver. When
// nothing is found the joined resolver errors (possibly nil) are returned.
func (c Chain) Resolve(ctx context.Context, name string) (Credential, bool, error) {
	var errs []error
	for _, r := range c {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		cred, found, err := r.Resolve(ctx, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Name(), err))
			continue
		}
		if found && cred.Payload != "" {
			if cred.Source == "" {
				cred.Source = "resolver:" + r.Name()
			}
			return cred, true, nil
		}
	}
	return Credential{}, false, errors.Join(errs...)
}
