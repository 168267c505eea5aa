package simnet

import (
	"fmt"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/validate"
	"gopkg.in/yaml.v3"
)

// TopologyFile is the YAML-serializable description of a network: the
// devices to create and the links between their ports. It is a data
// description only — building the actual Host/Switch/Router values from it
// is the caller's job, since device construction needs package-specific
// constructors this package does not depend on.
type TopologyFile struct {
	Devices []TopologyDevice `yaml:"devices"`
	Links   []TopologyLink   `yaml:"links"`
}

// TopologyDevice describes one device entry in a topology file.
type TopologyDevice struct {
	ID     string            `yaml:"id"`
	Kind   string            `yaml:"kind"`
	Ports  []string          `yaml:"ports"`
	Config map[string]string `yaml:"config,omitempty"`
}

// TopologyLink describes one link entry in a topology file.
type TopologyLink struct {
	DeviceA string `yaml:"device_a"`
	PortA   string `yaml:"port_a"`
	DeviceB string `yaml:"device_b"`
	PortB   string `yaml:"port_b"`
}

// type check
var _ validate.Interface = (*TopologyFile)(nil)

// Validate implements the [validate.Interface] interface for *TopologyFile.
func (t *TopologyFile) Validate() (err error) {
	var errs []error

	if len(t.Devices) == 0 {
		errs = append(errs, errors.Error("devices: must not be empty"))
	}

	seen := map[string]bool{}
	for _, d := range t.Devices {
		if d.ID == "" || d.Kind == "" {
			errs = append(errs, fmt.Errorf("device entry with empty id or kind"))

			continue
		}

		if seen[d.ID] {
			errs = append(errs, fmt.Errorf("duplicate device id %q", d.ID))
		}

		seen[d.ID] = true
	}

	for _, l := range t.Links {
		if !seen[l.DeviceA] {
			errs = append(errs, fmt.Errorf("link references unknown device %q", l.DeviceA))
		}

		if !seen[l.DeviceB] {
			errs = append(errs, fmt.Errorf("link references unknown device %q", l.DeviceB))
		}
	}

	return errors.Join(errs...)
}

// ParseTopology decodes a YAML topology description.
func ParseTopology(data []byte) (t *TopologyFile, err error) {
	t = &TopologyFile{}

	err = yaml.Unmarshal(data, t)
	if err != nil {
		return nil, fmt.Errorf("decoding topology: %w", err)
	}

	err = t.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating topology: %w", err)
	}

	return t, nil
}

// MarshalTopology encodes a topology description back to YAML, for saving
// the current state of a running simulator.
func MarshalTopology(t *TopologyFile) (data []byte, err error) {
	data, err = yaml.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encoding topology: %w", err)
	}

	return data, nil
}
