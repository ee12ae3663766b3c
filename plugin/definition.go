package plugin

import "sort"

// Definition is what host shows and edits: plugin identity plus its property schema
type Definition struct {
	Name        string
	Version     string
	Description string
	// Properties in registration order
	Properties []PropertyInfo
}

type propertyJSON struct {
	Value       Value  `json:"value"`
	Description string `json:"description,omitempty"`
}

type definitionJSON struct {
	Name        string                  `json:"name"`
	Version     string                  `json:"version"`
	Description string                  `json:"description"`
	Properties  map[string]propertyJSON `json:"properties"`
}

// Property looks up property by name
func (def Definition) Property(name string) (Value, bool) {
	for _, prop := range def.Properties {
		if prop.Name == name {
			return prop.Value, true
		}
	}
	return Value{}, false
}

// Values returns property values keyed by name
func (def Definition) Values() map[string]Value {
	values := make(map[string]Value, len(def.Properties))
	for _, prop := range def.Properties {
		values[prop.Name] = prop.Value
	}
	return values
}

// MarshalJSON produces {"name", "version", "description", "properties": {name: {"value", "description"}}}
func (def Definition) MarshalJSON() ([]byte, error) {
	out := definitionJSON{
		Name:        def.Name,
		Version:     def.Version,
		Description: def.Description,
		Properties:  make(map[string]propertyJSON, len(def.Properties)),
	}
	for _, prop := range def.Properties {
		out.Properties[prop.Name] = propertyJSON{
			Value:       prop.Value,
			Description: prop.Description,
		}
	}
	return codec.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON. Properties come back sorted by name
func (def *Definition) UnmarshalJSON(data []byte) error {
	var in definitionJSON
	if err := codec.Unmarshal(data, &in); err != nil {
		return err
	}
	def.Name = in.Name
	def.Version = in.Version
	def.Description = in.Description
	def.Properties = make([]PropertyInfo, 0, len(in.Properties))
	for _, name := range sortedKeys(in.Properties) {
		def.Properties = append(def.Properties, PropertyInfo{
			Name:        name,
			Description: in.Properties[name].Description,
			Value:       in.Properties[name].Value,
		})
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
