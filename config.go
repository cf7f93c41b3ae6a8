package ssbjstruct

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// LoadScalers reads a YAML scaler table. Keys missing from the file keep
// their StandardScalers value.
//
//	z: [0.05, 45000, 1.6, 5.5, 55, 1000]
//	x_str: [0.25, 1]
//	L: 49909.58578
//	sigma: [1.12255, 1.08170213, 1.0612766, 1.04902128, 1.04085106]
func LoadScalers(path string) (ScalerTable, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ScalerTable{}, &OpError{Op: "config.load_scalers", Kind: KindNotFound, Path: path, Err: err}
	}

	s, err := ParseScalers(b)
	if err != nil {
		var oe *OpError
		if errors.As(err, &oe) {
			oe.Path = path
		}
		return ScalerTable{}, err
	}
	return s, nil
}

// ParseScalers decodes a YAML scaler table on top of StandardScalers.
func ParseScalers(b []byte) (ScalerTable, error) {
	const op = "config.parse_scalers"

	raw, err := decodeFields(b)
	if err != nil {
		return ScalerTable{}, &OpError{Op: op, Kind: KindInvalidConfig, Err: err}
	}

	s := StandardScalers()
	fields := map[string][]*float64{
		"z":     ptrs(s.Z[:]),
		"x_str": ptrs(s.X[:]),
		"L":     {&s.L},
		"WE":    {&s.WE},
		"WT":    {&s.WT},
		"Theta": {&s.Theta},
		"WF":    {&s.WF},
		"sigma": ptrs(s.Sigma[:]),
	}
	if err := assignFields(raw, fields); err != nil {
		return ScalerTable{}, &OpError{Op: op, Kind: KindInvalidConfig, Err: err}
	}
	if err := s.Validate(); err != nil {
		return ScalerTable{}, &OpError{Op: op, Kind: KindInvalidConfig, Err: err}
	}
	return s, nil
}

// LoadDesign reads a YAML design point (scaled form). Every key is
// required.
//
//	z: [1.2, 1.333, 0.875, 0.45, 1.27, 1.5]
//	x_str: [1.6, 0.75]
//	L: 0.888
//	WE: 1.49
func LoadDesign(path string) (Design, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Design{}, &OpError{Op: "config.load_design", Kind: KindNotFound, Path: path, Err: err}
	}

	d, err := ParseDesign(b)
	if err != nil {
		var oe *OpError
		if errors.As(err, &oe) {
			oe.Path = path
		}
		return Design{}, err
	}
	return d, nil
}

// ParseDesign decodes a YAML design point.
func ParseDesign(b []byte) (Design, error) {
	const op = "config.parse_design"

	raw, err := decodeFields(b)
	if err != nil {
		return Design{}, &OpError{Op: op, Kind: KindInvalidConfig, Err: err}
	}

	var d Design
	fields := map[string][]*float64{
		"z":     ptrs(d.Z[:]),
		"x_str": ptrs(d.X[:]),
		"L":     {&d.L},
		"WE":    {&d.WE},
	}
	for key := range fields {
		if _, ok := raw[key]; !ok {
			return Design{}, &OpError{Op: op, Kind: KindInvalidConfig,
				Err: fmt.Errorf("%w: missing key %q", ErrInvalidConfig, key)}
		}
	}
	if err := assignFields(raw, fields); err != nil {
		return Design{}, &OpError{Op: op, Kind: KindInvalidConfig, Err: err}
	}
	return d, nil
}

func decodeFields(b []byte) (map[string]interface{}, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}
	return raw, nil
}

// assignFields writes each raw value into its destination slots. A
// scalar key takes a number (or numeric string); a vector key takes a
// list of exactly its length.
func assignFields(raw map[string]interface{}, fields map[string][]*float64) error {
	for key, v := range raw {
		dst, ok := fields[key]
		if !ok {
			return fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, key)
		}

		if len(dst) == 1 {
			if _, isList := v.([]interface{}); !isList {
				f, err := cast.ToFloat64E(v)
				if err != nil {
					return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
				}
				*dst[0] = f
				continue
			}
		}

		list, err := cast.ToSliceE(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
		}
		if len(list) != len(dst) {
			return fmt.Errorf("%w: %s: want %d values, got %d", ErrInvalidConfig, key, len(dst), len(list))
		}
		for i, item := range list {
			f, err := cast.ToFloat64E(item)
			if err != nil {
				return fmt.Errorf("%w: %s[%d]: %v", ErrInvalidConfig, key, i, err)
			}
			*dst[i] = f
		}
	}
	return nil
}

func ptrs(v []float64) []*float64 {
	p := make([]*float64, len(v))
	for i := range v {
		p[i] = &v[i]
	}
	return p
}
