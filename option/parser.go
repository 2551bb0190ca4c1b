package option

import (
	"fmt"
	"strings"
)

// Parser binds a tokenized argument string against a Schema, accumulating
// errors rather than failing fast — every error is collected and printed
// once rather than aborting on the first one.
type Parser struct {
	schema *Schema
	opts   ParseOptions
	errs   []error
	seen   map[*Entry]bool
}

func NewParser(schema *Schema, opts ParseOptions) *Parser {
	return &Parser{schema: schema, opts: opts, seen: map[*Entry]bool{}}
}

func (p *Parser) Errors() []error { return p.errs }

func (p *Parser) addErr(format string, args ...interface{}) {
	p.errs = append(p.errs, fmt.Errorf(format, args...))
}

// Parse tokenizes input and binds every token against the schema following
// a four-step precedence: vendor-ignore, vendor-rename, schema lookup,
// positional callback.
func (p *Parser) Parse(input string) error {
	tokens := Tokenize(input, p.opts)

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		if rule, ok := p.schema.matchIgnore(tok); ok {
			skip := rule.Arity
			for skip > 0 && i+1 < len(tokens) {
				i++
				skip--
			}
			continue
		}

		if canonical, ok := p.schema.matchRename(tok); ok {
			tok = canonical
		}

		name, attached, hasAttached := splitAttachedValue(tok)
		entry, ok := p.schema.Lookup(name)
		if !ok {
			// vendor form "+name+value1+value2..."
			if strings.HasPrefix(tok, "+") {
				if vname, vval, has := splitVendorValue(tok); has {
					if e, ok := p.schema.Lookup(vname); ok {
						for _, v := range strings.Split(vval, "+") {
							if v != "" {
								p.bind(e, v)
							}
						}
						continue
					}
				}
			}
			if p.schema.Positional != nil {
				if err := p.schema.Positional(tok); err != nil {
					p.addErr("%v", err)
				}
				continue
			}
			p.addErr("unknown option %q", tok)
			continue
		}

		if entry.Kind == KindCallback {
			var value string
			if hasAttached {
				value = attached
			} else if i+1 < len(tokens) {
				i++
				value = tokens[i]
			}
			if entry.Callback != nil {
				if err := entry.Callback(value); err != nil {
					p.addErr("%v", err)
				}
			}
			continue
		}

		var value string
		if hasAttached {
			value = attached
		} else if entry.Value != nil {
			if bf, isBool := entry.Value.(BoolFlag); isBool && bf.IsBoolFlag() {
				value = "true"
			} else if i+1 < len(tokens) {
				i++
				value = tokens[i]
			} else {
				p.addErr("option %q requires a value", name)
				continue
			}
		}

		p.bind(entry, value)
	}

	return nil
}

func (p *Parser) bind(entry *Entry, value string) {
	if entry.Kind == KindScalar && p.seen[entry] {
		if p.opts.IgnoreDuplicates {
			return
		}
		p.addErr("duplicate option %q", entry.Long)
		return
	}
	p.seen[entry] = true

	if entry.Value == nil {
		return
	}
	if entry.IsFileName {
		value = expandEnv(value)
	}
	if err := entry.Value.Set(value); err != nil {
		p.addErr("invalid value for %q: %v", entry.Long, err)
	}
}

// splitAttachedValue recognizes "--name=value" / "-n=value" forms.
func splitAttachedValue(tok string) (name, value string, ok bool) {
	if i := strings.IndexByte(tok, '='); i >= 0 {
		return tok[:i], tok[i+1:], true
	}
	return tok, "", false
}

// splitVendorValue recognizes "+name+value" vendor forms.
func splitVendorValue(tok string) (name, value string, ok bool) {
	if !strings.HasPrefix(tok, "+") {
		return "", "", false
	}
	rest := tok[1:]
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		return "+" + rest[:i], rest[i+1:], true
	}
	return tok, "", false
}
