// Package plugins holds ready to use post-processing plugins and a catalogue to create them by name.
package plugins

import (
	"fmt"
	"sort"

	"github.com/LdDl/algo-plugin-go/plugin"
	"github.com/samber/lo"
)

// Constructor creates a fresh plugin instance with default property values
type Constructor func() (plugin.Plugin, error)

var catalogue = map[string]Constructor{
	PassthroughName: func() (plugin.Plugin, error) { return NewPassthrough(), nil },
	ScoreFilterName: func() (plugin.Plugin, error) { return NewScoreFilter() },
	AreaFilterName:  func() (plugin.Plugin, error) { return NewAreaFilter() },
	LabelFilterName: func() (plugin.Plugin, error) { return NewLabelFilter() },
	FeatureNormName: func() (plugin.Plugin, error) { return NewFeatureNorm() },
	TrackerName:     func() (plugin.Plugin, error) { return NewTracker() },
}

// New creates plugin registered under name
func New(name string) (plugin.Plugin, error) {
	constructor, ok := catalogue[name]
	if !ok {
		return nil, fmt.Errorf("unknown plugin %q, available: %v", name, Names())
	}
	p, err := constructor()
	if err != nil {
		return nil, fmt.Errorf("plugin %q: %w", name, err)
	}
	return p, nil
}

// Names returns sorted names of every known plugin
func Names() []string {
	names := lo.Keys(catalogue)
	sort.Strings(names)
	return names
}
