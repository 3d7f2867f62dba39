package service

import (
	"context"

	"github.com/Koyo-os/survey-service/pkg/transport/casher"
)

type (
	// NopCasher is used when no cache is configured; every read misses.
	NopCasher struct{}

	// NopPublisher is used when no message bus is configured.
	NopPublisher struct{}
)

func (NopCasher) AddToCash(context.Context, string, any) error { return nil }

func (NopCasher) GetCashFor(context.Context, string) ([]byte, error) { return nil, casher.ErrCacheMiss }

func (NopCasher) RemoveFromCash(context.Context, string) error { return nil }

func (NopPublisher) Publish(any, string) error { return nil }
