package profile

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Decode overlays loosely typed input onto base. Keys follow the Selection
// mapstructure tags and numbers may arrive as strings, as they do from query
// strings, CLI flags and websocket messages. base is left untouched.
func Decode(base Selection, input map[string]interface{}) (Selection, error) {
	sel := base
	if base.Age != nil {
		age := *base.Age
		sel.Age = &age
	}
	if base.YearsOfExperience != nil {
		years := *base.YearsOfExperience
		sel.YearsOfExperience = &years
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		Result:           &sel,
	})
	if err != nil {
		return base, err
	}
	if err := decoder.Decode(input); err != nil {
		return base, fmt.Errorf("decoding selection: %w", err)
	}
	return sel, nil
}
