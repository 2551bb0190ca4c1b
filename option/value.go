// Package option implements the compilation driver's option schema and
// command-line parser: a declarative table of recognized flags bound
// against a tokenized argument string, grounded on the flag.Value-shaped
// PersistentVar family (utils/Persistent.go), generalized from build-tool
// flags to front-end compiler flags.
package option

import "fmt"

// Value is the minimal destination contract every option binds to: a
// scalar, list, or set target that can parse its own textual
// representation. It mirrors the standard library's flag.Value so the
// same destinations could be registered with package flag if ever needed.
type Value interface {
	fmt.Stringer
	Set(string) error
}

// StringValue is a scalar string destination (e.g. --compat, --timescale).
type StringValue struct {
	V string
}

func (v *StringValue) String() string   { return v.V }
func (v *StringValue) Set(s string) error { v.V = s; return nil }

// BoolFlag is implemented by a Value that should be settable by mere
// presence, without consuming a following token — mirroring the standard
// library flag package's unexported boolFlag interface so custom wrappers
// around BoolValue (e.g. ones that also record "was this seen") keep the
// same presence-sets-true behavior.
type BoolFlag interface {
	IsBoolFlag() bool
}

// BoolValue is a scalar boolean destination, set by presence or by an
// explicit "true"/"false" value.
type BoolValue struct {
	V bool
}

func (v *BoolValue) IsBoolFlag() bool { return true }

func (v *BoolValue) String() string {
	if v.V {
		return "true"
	}
	return "false"
}
func (v *BoolValue) Set(s string) error {
	switch s {
	case "", "true", "1", "on":
		v.V = true
	case "false", "0", "off":
		v.V = false
	default:
		return fmt.Errorf("invalid boolean value %q", s)
	}
	return nil
}

// IntValue is a scalar integer destination (e.g. --threads, --error-limit).
type IntValue struct {
	V int
}

func (v *IntValue) String() string { return fmt.Sprint(v.V) }
func (v *IntValue) Set(s string) error {
	_, err := fmt.Sscanf(s, "%d", &v.V)
	return err
}

// StringListValue accumulates every occurrence in encounter order,
// duplicates included — used for ordered lists like --top or -G.
type StringListValue struct {
	V []string
}

func (v *StringListValue) String() string { return fmt.Sprint(v.V) }
func (v *StringListValue) Set(s string) error {
	v.V = append(v.V, s)
	return nil
}

// StringSetValue accumulates unique values only, in first-seen order —
// used for -I/--libdir style options where repetition is harmless noise.
type StringSetValue struct {
	V []string
}

func (v *StringSetValue) String() string { return fmt.Sprint(v.V) }
func (v *StringSetValue) Set(s string) error {
	for _, have := range v.V {
		if have == s {
			return nil
		}
	}
	v.V = append(v.V, s)
	return nil
}
