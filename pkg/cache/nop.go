package cache

import (
	"context"
	"time"
)

// Nop is a cache that stores nothing. Every Get is a miss.
type Nop struct{}

func (Nop) Get(context.Context, string, any) error { return ErrMiss }

func (Nop) Set(context.Context, string, any, time.Duration) error { return nil }

func (Nop) Delete(context.Context, ...string) error { return nil }

func (Nop) Close() error { return nil }
