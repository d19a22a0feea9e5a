package main

import (
	"context"

	"github.com/UnendingLoop/TextWatermark/internal/transport"
)

// JobAPIService - все, что нужно HTTP-слою, плюс подбор зависших задач
type JobAPIService interface {
	transport.JobService
	ReviveOrphans(ctx context.Context, limit int) int
}
