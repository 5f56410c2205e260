// Package health aggregates readiness of the index store, the embedding
// provider and the optional embedding cache.
package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the aggregated verdict served by GET /health.
type Status string

const (
	Healthy Status = "ok"
	// Degraded means search still answers from indexes but embedding or caching is failing.
	Degraded Status = "degraded"
	// Unhealthy means the index directory is unusable.
	Unhealthy Status = "error"
)

// CheckResult is the outcome of one component probe.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentIndex     = "index"
	ComponentEmbedding = "embedding"
	ComponentCache     = "cache"
)

// ProbeTimeout bounds each component probe.
const ProbeTimeout = 5 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service probes components concurrently.
type Service struct {
	probes map[string]func(context.Context) error
}

// New creates a Service. embedding and cache may be nil.
func New(index Pinger, embedding EmbeddingChecker, cache Pinger) *Service {
	probes := map[string]func(context.Context) error{ComponentIndex: index.Ping}
	if embedding != nil {
		probes[ComponentEmbedding] = embedding.HealthCheck
	}
	if cache != nil {
		probes[ComponentCache] = cache.Ping
	}
	return &Service{probes: probes}
}

// Check runs every probe. A failing index makes the service Unhealthy; any
// other failure only degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.probes))
	var mu sync.Mutex

	var g errgroup.Group
	for name, probe := range s.probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
			defer cancel()
			res := CheckOK
			if probe(pctx) != nil {
				res = CheckError
			}
			mu.Lock()
			checks[name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return Report{Status: verdict(checks), Checks: checks}
}

func verdict(checks map[string]CheckResult) Status {
	if checks[ComponentIndex] == CheckError {
		return Unhealthy
	}
	for _, res := range checks {
		if res == CheckError {
			return Degraded
		}
	}
	return Healthy
}
