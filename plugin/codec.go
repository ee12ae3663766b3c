package plugin

import (
	jsoniter "github.com/json-iterator/go"
)

var (
	// codec is used for every JSON (de)serialization in the package
	codec = jsoniter.ConfigCompatibleWithStandardLibrary
	// numberCodec keeps numbers as json.Number when decoding into interface{}, so integers are not turned into floats
	numberCodec = jsoniter.Config{
		EscapeHTML:             true,
		SortMapKeys:            true,
		ValidateJsonRawMessage: true,
		UseNumber:              true,
	}.Froze()
)

// MarshalObjects encodes batch of objects as JSON array
func MarshalObjects(objects []AlgoObject) ([]byte, error) {
	if objects == nil {
		objects = []AlgoObject{}
	}
	return codec.Marshal(objects)
}

// UnmarshalObjects decodes JSON array into batch of objects
func UnmarshalObjects(data []byte) ([]AlgoObject, error) {
	objects := []AlgoObject{}
	if err := codec.Unmarshal(data, &objects); err != nil {
		return nil, err
	}
	return objects, nil
}
