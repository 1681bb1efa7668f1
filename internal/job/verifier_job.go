package job

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type PendingResolver interface {
	ResolvePending(ctx context.Context) (int, error)
}

// VerifierJob settles locked intraday predictions once their target close
// plus the settle delay has elapsed.
type VerifierJob struct {
	tracer       trace.Tracer
	resolver     PendingResolver
	pollInterval time.Duration
}

func NewVerifierJob(tracer trace.Tracer, resolver PendingResolver, pollInterval time.Duration) *VerifierJob {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Minute
	}
	return &VerifierJob{tracer: tracer, resolver: resolver, pollInterval: pollInterval}
}

func (j *VerifierJob) Start(ctx context.Context) {
	if j.resolver == nil {
		log.Println("Verifier job disabled: no resolver")
		<-ctx.Done()
		return
	}

	j.runOnce(ctx)
	ticker := time.NewTicker(j.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *VerifierJob) runOnce(ctx context.Context) {
	ctx, span := j.tracer.Start(ctx, "verifier-job.run-once")
	defer span.End()

	verified, err := j.resolver.ResolvePending(ctx)
	if err != nil {
		log.Printf("verifier cycle error: %v", err)
		return
	}
	if verified > 0 {
		log.Printf("Verifier settled %d predictions", verified)
	}
}
