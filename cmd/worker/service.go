package main

import (
	"context"

	"github.com/UnendingLoop/TextWatermark/internal/worker"
	"github.com/wb-go/wbf/retry"
)

type JobWorkerService = worker.JobWorkerService

// NoopPublisher - ЗАГЛУШКА, функциональность настоящего паблишера в очередь не нужна в рамках работы воркера
type NoopPublisher struct{}

func (NoopPublisher) SendWithRetry(ctx context.Context, strategy retry.Strategy, k []byte, v []byte) error {
	return nil
}
