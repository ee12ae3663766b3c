// Package pipeline runs an ordered chain of plugins over the frames of a stream.
package pipeline

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/LdDl/algo-plugin-go/logging"
	"github.com/LdDl/algo-plugin-go/plugin"
	"github.com/sirupsen/logrus"
)

// ErrorPolicy decides what happens to a frame when a plugin fails
type ErrorPolicy string

const (
	// OnErrorSkip logs the failure and passes the batch the plugin received on to the next one
	OnErrorSkip ErrorPolicy = "skip"
	// OnErrorAbort stops the stage and returns the error
	OnErrorAbort ErrorPolicy = "abort"
)

// Stats counts what happened to a single plugin of the chain
type Stats struct {
	Name      string
	Processed uint64
	Skipped   uint64
	Failed    uint64
}

type counters struct {
	processed atomic.Uint64
	skipped   atomic.Uint64
	failed    atomic.Uint64
}

// Chain feeds every plugin's output to the next one
type Chain struct {
	plugins []plugin.Plugin
	stats   []*counters
	policy  ErrorPolicy
	logger  logrus.FieldLogger
}

// NewChain creates chain over plugins in the given order. Empty policy means OnErrorSkip
func NewChain(logger logrus.FieldLogger, policy ErrorPolicy, plugins ...plugin.Plugin) (*Chain, error) {
	switch policy {
	case "":
		policy = OnErrorSkip
	case OnErrorSkip, OnErrorAbort:
	default:
		return nil, fmt.Errorf("unknown error policy %q", policy)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	stats := make([]*counters, len(plugins))
	for i := range stats {
		stats[i] = &counters{}
	}
	return &Chain{
		plugins: plugins,
		stats:   stats,
		policy:  policy,
		logger:  logger,
	}, nil
}

// Plugins returns plugins of the chain in order
func (chain *Chain) Plugins() []plugin.Plugin {
	return append([]plugin.Plugin(nil), chain.plugins...)
}

// Run passes objects through every plugin for the given stage.
// A plugin not taking part in the stage is skipped and the batch flows on unchanged.
func (chain *Chain) Run(stage plugin.Stage, objects []plugin.AlgoObject) ([]plugin.AlgoObject, error) {
	batch := objects
	if batch == nil {
		batch = []plugin.AlgoObject{}
	}
	for i, p := range chain.plugins {
		log := chain.logger.WithFields(logrus.Fields{
			"plugin": p.Name(),
			"stage":  stage.String(),
		})
		out, err := plugin.Process(p, stage, batch)
		switch {
		case err == nil:
			chain.stats[i].processed.Add(1)
			if out == nil {
				out = []plugin.AlgoObject{}
			}
			log.WithFields(logrus.Fields{"in": len(batch), "out": len(out)}).Trace("Processed")
			batch = out
		case errors.Is(err, plugin.ErrStageNotImplemented):
			chain.stats[i].skipped.Add(1)
			log.Debug("Stage is not implemented, skipping")
		default:
			chain.stats[i].failed.Add(1)
			if chain.policy == OnErrorAbort {
				log.WithError(err).Error("Plugin failed, aborting stage")
				return nil, fmt.Errorf("%s: plugin %q: %w", stage, p.Name(), err)
			}
			log.WithError(err).Warn("Plugin failed, keeping its input")
		}
	}
	return batch, nil
}

// Frame runs both stages: raw detections first, then tracked results
func (chain *Chain) Frame(objects []plugin.AlgoObject) ([]plugin.AlgoObject, error) {
	inferred, err := chain.Run(plugin.StageInfer, objects)
	if err != nil {
		return nil, err
	}
	return chain.Run(plugin.StageTracked, inferred)
}

// Stats returns counters of every plugin in chain order
func (chain *Chain) Stats() []Stats {
	out := make([]Stats, len(chain.plugins))
	for i, p := range chain.plugins {
		out[i] = Stats{
			Name:      p.Name(),
			Processed: chain.stats[i].processed.Load(),
			Skipped:   chain.stats[i].skipped.Load(),
			Failed:    chain.stats[i].failed.Load(),
		}
	}
	return out
}
