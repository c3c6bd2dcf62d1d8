package engine

import (
	"context"
	"time"

	"github.com/scenarioflow/control-plane/domain/scenario"
	"github.com/scenarioflow/control-plane/internal/cache"
	"github.com/scenarioflow/control-plane/internal/repository"
)

// scenarioCacheTTL bounds how stale a cached scenario definition may be
// before a flow walk refetches it; long enough to cover a single flow
// execution's wall-clock time, short enough that an edit made between runs
// is picked up promptly.
const scenarioCacheTTL = 2 * time.Minute

// cachedScenarios wraps a repository.Scenarios with a read-through cache in
// front of GetByID: a flow graph that references the same scenario node
// from several places in the walk (or across back-to-back runs) pays for
// the repository fetch once rather than once per visit.
type cachedScenarios struct {
	repository.Scenarios
	rt *cache.ReadThrough[scenario.Scenario]
}

// withCache wraps scenarios in a read-through cache, unless the value passed
// in is already a *cachedScenarios (avoids wrapping a cache in a second
// cache). Each call with an unwrapped repository creates a separate cache.
func withCache(scenarios repository.Scenarios) repository.Scenarios {
	if _, already := scenarios.(*cachedScenarios); already {
		return scenarios
	}
	return &cachedScenarios{
		Scenarios: scenarios,
		rt:        cache.NewReadThrough[scenario.Scenario]("scenario:", scenarioCacheTTL),
	}
}

func (c *cachedScenarios) GetByID(ctx context.Context, id string) (scenario.Scenario, error) {
	return c.rt.Get(ctx, id, c.Scenarios.GetByID)
}

// Update and Delete must invalidate the cache entry so a subsequent
// GetByID within the same process does not serve a stale definition.

func (c *cachedScenarios) Update(ctx context.Context, id string, patch scenario.Scenario) (scenario.Scenario, error) {
	out, err := c.Scenarios.Update(ctx, id, patch)
	c.rt.Invalidate(id)
	return out, err
}

func (c *cachedScenarios) Delete(ctx context.Context, id string) error {
	err := c.Scenarios.Delete(ctx, id)
	c.rt.Invalidate(id)
	return err
}
