package config

import (
	"math"
	"reflect"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// replaceNonFinite walks both configs in lockstep and copies the default into
// every float64 field of c that is NaN or ±Inf.
func replaceNonFinite(c, defaults *Config) {
	walkFloats(reflect.ValueOf(c).Elem(), reflect.ValueOf(defaults).Elem())
}

func walkFloats(v, d reflect.Value) {
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		switch field.Kind() {
		case reflect.Struct:
			walkFloats(field, d.Field(i))
		case reflect.Float64:
			f := field.Float()
			if math.IsNaN(f) || math.IsInf(f, 0) {
				field.SetFloat(d.Field(i).Float())
			}
		}
	}
}

// NormalizeHex returns value as a lowercase "#rrggbb" string, or the normalized
// fallback when value is not of that form. A malformed fallback becomes "#ffffff".
func NormalizeHex(value, fallback string) string {
	safeFallback := "#ffffff"
	if c, ok := parseHex(fallback); ok {
		safeFallback = c.Hex()
	}
	c, ok := parseHex(strings.TrimSpace(value))
	if !ok {
		return safeFallback
	}
	return c.Hex()
}

// HexToRGB converts "#rrggbb" (leading '#' optional) to [0,1] components.
// Anything else maps to white.
func HexToRGB(hex string) [3]float64 {
	s := strings.TrimSpace(hex)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, ok := parseHex(s)
	if !ok {
		return [3]float64{1, 1, 1}
	}
	return [3]float64{c.R, c.G, c.B}
}

func parseHex(s string) (colorful.Color, bool) {
	if len(s) != 7 || s[0] != '#' {
		return colorful.Color{}, false
	}
	for _, r := range s[1:] {
		isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
		if !isHex {
			return colorful.Color{}, false
		}
	}
	c, err := colorful.Hex(strings.ToLower(s))
	if err != nil {
		return colorful.Color{}, false
	}
	return c, true
}
