package config

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// AttributeMap is a loose set of attributes for a module or strategy. Its structure is only known
// to the constructor that consumes it.
type AttributeMap map[string]interface{}

// Has reports whether the key is present.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// String returns the string value of a key, or "" if it is absent or not a string.
func (am AttributeMap) String(name string) string {
	if s, ok := am[name].(string); ok {
		return s
	}
	return ""
}

// Decode fills `into` (a pointer to a struct with json tags) from the map. Numbers written as
// strings and similar loose typing from hand edited JSON are accepted.
func (am AttributeMap) Decode(into interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           into,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(map[string]interface{}(am)); err != nil {
		return errors.Wrap(err, "failed to decode attributes")
	}
	return nil
}

// Component names a registered module or strategy and carries its attributes.
type Component struct {
	Type       string       `json:"type"`
	Attributes AttributeMap `json:"attributes,omitempty"`
}

// Validate ensures a type is named.
func (c *Component) Validate(path string) error {
	if c.Type == "" {
		return errors.Errorf("%s: \"type\" is required", path)
	}
	return nil
}
