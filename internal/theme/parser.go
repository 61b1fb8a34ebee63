package theme

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// Parse reads a theme definition from an io.Reader.
// The format is a simple key-value pair per line: Key: #RRGGBB, #RRGGBBAA or
// a CSS color name. The Palette key takes a comma separated list of up to
// eight colors.
func Parse(r io.Reader) (*Theme, error) {
	t := Default() // Start with defaults
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		if err := t.Set(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])); err != nil {
			return nil, err
		}
	}

	return t, scanner.Err()
}

// FromMap builds a theme from key/value pairs on top of the defaults, as
// found in a [theme.<name>] table of the configuration file.
func FromMap(name string, values map[string]string) (*Theme, error) {
	t := Default()
	t.Name = name
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := t.Set(k, values[k]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Set assigns one key. Keys match field names case-insensitively; unknown
// keys are ignored for forward compatibility.
func (t *Theme) Set(key, value string) error {
	switch strings.ToLower(key) {
	case "name":
		t.Name = value
		return nil
	case "palette":
		entries := strings.Split(value, ",")
		if len(entries) > PaletteSize {
			return fmt.Errorf("palette has %d colors, at most %d allowed", len(entries), PaletteSize)
		}
		for i, e := range entries {
			col, err := ParseColor(e)
			if err != nil {
				return fmt.Errorf("invalid palette color %d: %w", i, err)
			}
			t.Palette[i] = col
		}
		return nil
	}

	val := reflect.ValueOf(t).Elem()
	field := val.FieldByNameFunc(func(n string) bool { return strings.EqualFold(n, key) })
	if !field.IsValid() || field.Type() != reflect.TypeOf(color.NRGBA{}) {
		return nil
	}
	col, err := ParseColor(value)
	if err != nil {
		return fmt.Errorf("invalid color for key %s: %w", key, err)
	}
	field.Set(reflect.ValueOf(col))
	return nil
}

// Map returns every color of t keyed by field name, the inverse of FromMap.
func (t *Theme) Map() map[string]string {
	out := map[string]string{"Name": t.Name}
	val := reflect.ValueOf(t).Elem()
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		if c, ok := val.Field(i).Interface().(color.NRGBA); ok {
			out[typ.Field(i).Name] = Hex(c)
		}
	}
	pal := make([]string, 0, PaletteSize)
	for _, c := range t.Palette {
		pal = append(pal, Hex(c))
	}
	out["Palette"] = strings.Join(pal, ", ")
	return out
}

// ParseColor accepts #RRGGBB, #RRGGBBAA and CSS color names.
func ParseColor(s string) (color.NRGBA, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return color.NRGBA{}, fmt.Errorf("color cannot be empty")
	}
	if c, ok := colornames.Map[name]; ok {
		return color.NRGBA{c.R, c.G, c.B, c.A}, nil
	}
	if !strings.HasPrefix(name, "#") {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	hex := strings.TrimPrefix(name, "#")
	switch len(hex) {
	case 6:
		// #RRGGBB
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
		}
		return color.NRGBA{
			R: uint8(val >> 16),
			G: uint8((val >> 8) & 0xFF),
			B: uint8(val & 0xFF),
			A: 255,
		}, nil
	case 8:
		// #RRGGBBAA
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
		}
		return color.NRGBA{
			R: uint8(val >> 24),
			G: uint8((val >> 16) & 0xFF),
			B: uint8((val >> 8) & 0xFF),
			A: uint8(val & 0xFF),
		}, nil
	}
	return color.NRGBA{}, fmt.Errorf("invalid hex length in %q", s)
}

// Hex formats c as #RRGGBB, or #RRGGBBAA when it is not opaque.
func Hex(c color.NRGBA) string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
