package plugins

import "github.com/LdDl/algo-plugin-go/plugin"

const PassthroughName = "passthrough"

// Passthrough returns an independent copy of its input on both stages
type Passthrough struct {
	plugin.Base
}

func NewPassthrough() *Passthrough {
	return &Passthrough{
		Base: plugin.NewBase(PassthroughName, plugin.WithDescription("returns objects unchanged")),
	}
}

func (p *Passthrough) InferResultProcess(objects []plugin.AlgoObject) ([]plugin.AlgoObject, error) {
	return plugin.CloneObjects(objects), nil
}

func (p *Passthrough) TrackedResultProcess(objects []plugin.AlgoObject) ([]plugin.AlgoObject, error) {
	return plugin.CloneObjects(objects), nil
}
