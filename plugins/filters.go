package plugins

import (
	"fmt"
	"math"
	"strings"

	"github.com/LdDl/algo-plugin-go/plugin"
	"github.com/samber/lo"
)

const (
	ScoreFilterName = "score_filter"
	AreaFilterName  = "area_filter"
	LabelFilterName = "label_filter"
)

// keep copies objects accepted by pred. The result is never nil
func keep(objects []plugin.AlgoObject, pred func(obj *plugin.AlgoObject) bool) []plugin.AlgoObject {
	out := make([]plugin.AlgoObject, 0, len(objects))
	for i := range objects {
		if pred(&objects[i]) {
			out = append(out, objects[i].Clone())
		}
	}
	return out
}

// ScoreFilter drops objects with confidence below threshold
type ScoreFilter struct {
	plugin.Base
	threshold float64
}

func NewScoreFilter() (*ScoreFilter, error) {
	p := &ScoreFilter{
		Base:      plugin.NewBase(ScoreFilterName, plugin.WithDescription("keeps objects with score not below threshold")),
		threshold: 0.5,
	}
	err := plugin.Bind(p.Properties(), "threshold", &p.threshold, "minimum score, inclusive",
		plugin.WithValidator(func(v float64) error {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("threshold must be finite, got %v", v)
			}
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *ScoreFilter) filter(objects []plugin.AlgoObject) []plugin.AlgoObject {
	p.RLock()
	// Compare in detector precision so that score 0.9 passes threshold 0.9
	threshold := float32(p.threshold)
	p.RUnlock()
	return keep(objects, func(obj *plugin.AlgoObject) bool {
		return obj.Score >= threshold
	})
}

func (p *ScoreFilter) InferResultProcess(objects []plugin.AlgoObject) ([]plugin.AlgoObject, error) {
	return p.filter(objects), nil
}

func (p *ScoreFilter) TrackedResultProcess(objects []plugin.AlgoObject) ([]plugin.AlgoObject, error) {
	return p.filter(objects), nil
}

// AreaFilter drops raw detections with box area below min_area. Objects with malformed rect have zero area.
type AreaFilter struct {
	plugin.Base
	minArea int
}

func NewAreaFilter() (*AreaFilter, error) {
	p := &AreaFilter{
		Base: plugin.NewBase(AreaFilterName, plugin.WithDescription("keeps detections with box area not below min_area")),
	}
	if err := plugin.Bind(p.Properties(), "min_area", &p.minArea, "minimum w*h in pixels"); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AreaFilter) InferResultProcess(objects []plugin.AlgoObject) ([]plugin.AlgoObject, error) {
	var minArea int
	p.Snapshot(func() { minArea = p.minArea })
	return keep(objects, func(obj *plugin.AlgoObject) bool {
		return obj.Area() >= minArea
	}), nil
}

// LabelFilter keeps objects of listed labels and renames labels found in relabel
type LabelFilter struct {
	plugin.Base
	labels        []string
	relabel       map[string]string
	caseSensitive bool
}

func NewLabelFilter() (*LabelFilter, error) {
	p := &LabelFilter{
		Base:    plugin.NewBase(LabelFilterName, plugin.WithDescription("keeps listed labels and renames them")),
		labels:  []string{},
		relabel: map[string]string{},
	}
	props := p.Properties()
	if err := plugin.Bind(props, "labels", &p.labels, "labels to keep, empty keeps every label"); err != nil {
		return nil, err
	}
	if err := plugin.Bind(props, "relabel", &p.relabel, "label renames applied after filtering"); err != nil {
		return nil, err
	}
	if err := plugin.Bind(props, "case_sensitive", &p.caseSensitive, "compare labels exactly"); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *LabelFilter) process(objects []plugin.AlgoObject) []plugin.AlgoObject {
	p.RLock()
	defer p.RUnlock()
	normalize := func(label string) string {
		if p.caseSensitive {
			return label
		}
		return strings.ToLower(label)
	}
	allowed := lo.SliceToMap(p.labels, func(label string) (string, struct{}) {
		return normalize(label), struct{}{}
	})
	renames := lo.MapKeys(p.relabel, func(_ string, from string) string {
		return normalize(from)
	})
	out := keep(objects, func(obj *plugin.AlgoObject) bool {
		if len(allowed) == 0 {
			return true
		}
		_, ok := allowed[normalize(obj.Label)]
		return ok
	})
	for i := range out {
		if to, ok := renames[normalize(out[i].Label)]; ok {
			out[i].Label = to
		}
	}
	return out
}

func (p *LabelFilter) InferResultProcess(objects []plugin.AlgoObject) ([]plugin.AlgoObject, error) {
	return p.process(objects), nil
}

func (p *LabelFilter) TrackedResultProcess(objects []plugin.AlgoObject) ([]plugin.AlgoObject, error) {
	return p.process(objects), nil
}
