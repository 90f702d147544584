package kv

import "context"

type prefixStore struct {
	inner  Store
	prefix string
}

// WithPrefix scopes every key of inner under prefix. Close is a no-op so
// several prefixed views can share one backend.
func WithPrefix(inner Store, prefix string) Store {
	return &prefixStore{inner: inner, prefix: prefix}
}

func (p *prefixStore) Get(ctx context.Context, key string) (string, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *prefixStore) Set(ctx context.Context, key, value string) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *prefixStore) Remove(ctx context.Context, key string) error {
	return p.inner.Remove(ctx, p.prefix+key)
}

func (p *prefixStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	return p.inner.Update(ctx, p.prefix+key, fn)
}

func (p *prefixStore) Ping(ctx context.Context) error {
	return p.inner.Ping(ctx)
}

func (p *prefixStore) Close() error { return nil }
