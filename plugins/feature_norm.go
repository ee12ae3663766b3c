package plugins

import (
	"fmt"

	"github.com/LdDl/algo-plugin-go/plugin"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
)

const FeatureNormName = "feature_norm"

// FeatureNorm scales embedding vectors to unit L2 norm. Vectors with norm below epsilon stay as they are.
type FeatureNorm struct {
	plugin.Base
	enabled bool
	epsilon float64
}

func NewFeatureNorm() (*FeatureNorm, error) {
	p := &FeatureNorm{
		Base:    plugin.NewBase(FeatureNormName, plugin.WithDescription("L2 normalizes feature vectors")),
		enabled: true,
		epsilon: 1e-12,
	}
	props := p.Properties()
	if err := plugin.Bind(props, "enabled", &p.enabled, "pass objects through untouched when false"); err != nil {
		return nil, err
	}
	err := plugin.Bind(props, "epsilon", &p.epsilon, "norms below this value are left alone",
		plugin.WithValidator(func(v float64) error {
			if v < 0 {
				return fmt.Errorf("epsilon must not be negative, got %v", v)
			}
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func normalizeFeature(feature []float32, epsilon float64) {
	if len(feature) == 0 {
		return
	}
	vec := lo.Map(feature, func(x float32, _ int) float64 { return float64(x) })
	norm := floats.Norm(vec, 2)
	if norm < epsilon || norm == 0 {
		return
	}
	floats.Scale(1/norm, vec)
	for i := range vec {
		feature[i] = float32(vec[i])
	}
}

func (p *FeatureNorm) process(objects []plugin.AlgoObject) []plugin.AlgoObject {
	var enabled bool
	var epsilon float64
	p.Snapshot(func() {
		enabled = p.enabled
		epsilon = p.epsilon
	})
	out := plugin.CloneObjects(objects)
	if !enabled {
		return out
	}
	for i := range out {
		normalizeFeature(out[i].Feature, epsilon)
	}
	return out
}

func (p *FeatureNorm) InferResultProcess(objects []plugin.AlgoObject) ([]plugin.AlgoObject, error) {
	return p.process(objects), nil
}

func (p *FeatureNorm) TrackedResultProcess(objects []plugin.AlgoObject) ([]plugin.AlgoObject, error) {
	return p.process(objects), nil
}
