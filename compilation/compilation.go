// Package compilation stands in for the real elaboration engine: it
// binds parsed syntax trees into module symbols, tracks a root scope per
// compilation unit (or a single shared one under --single-unit), and
// reports the resulting top-level instance list. Full elaboration
// (parameter resolution, generate-block expansion, driver checking) is
// out of scope — only enough of the arena/scope shape to exercise
// createCompilation/reportCompilation end-to-end.
package compilation

import (
	"fmt"
	"sort"

	"github.com/svfront/driver/diag"
	"github.com/svfront/driver/parser"
)

// Unit is one parsed source tree plus the library it belongs to (empty
// for ordinary design sources).
type Unit struct {
	Path    string
	Library string
	Tree    *parser.Tree
}

// Compilation is the bound design: every module symbol discovered across
// all units, arranged under per-unit (or, under single-unit, one shared)
// scopes, plus the resolved top-level instance list.
type Compilation struct {
	scopes  []*Scope
	symbols []*Symbol

	byName map[string]int // module name -> symbol index, main design only
	libs   map[string]bool

	tops []string
}

func (c *Compilation) newScope(name string, parent Lazy) int {
	c.scopes = append(c.scopes, newScope(name, parent))
	return len(c.scopes) - 1
}

func (c *Compilation) addSymbol(s *Symbol) int {
	c.symbols = append(c.symbols, s)
	return len(c.symbols) - 1
}

// CreateCompilation binds every module across units into the symbol
// arena. Library units get their own scope (their modules are never
// auto-instantiated); under singleUnit, every non-library unit shares one
// root scope so macro/name visibility spans all of them, matching
// --single-unit's documented effect on the compilation unit boundary.
// Duplicate module names within the same scope are reported through
// engine as DuplicateDefinition (mandatory-error severity).
func CreateCompilation(units []Unit, singleUnit bool, engine *diag.Engine) *Compilation {
	c := &Compilation{byName: map[string]int{}, libs: map[string]bool{}}
	root := Resolved(c.newScope("$root", Unresolved("")))

	var sharedScope int = -1
	if singleUnit {
		sharedScope = c.newScope("$unit", root)
	}

	for _, u := range units {
		var scopeIdx int
		if u.Library != "" {
			c.libs[u.Library] = true
			scopeIdx = c.newScope(u.Library, root)
		} else if singleUnit {
			scopeIdx = sharedScope
		} else {
			scopeIdx = c.newScope(u.Path, root)
		}
		scope := c.scopes[scopeIdx]

		if u.Tree == nil {
			continue
		}
		for _, m := range u.Tree.Modules {
			if existing, dup := scope.Symbols[m.Name]; dup {
				if !engine.Issue(diag.Diagnostic{
					Kind:    "DuplicateDefinition",
					Message: fmt.Sprintf("redefinition of module %q (first declared in %q)", m.Name, c.symbols[existing].Unit),
					Path:    u.Path,
				}) {
					return c
				}
				continue
			}
			idx := c.addSymbol(&Symbol{Name: m.Name, Unit: u.Path, Library: u.Library, Scope: Resolved(scopeIdx)})
			scope.Symbols[m.Name] = idx
			if u.Library == "" {
				c.byName[m.Name] = idx
			}
		}
	}
	return c
}

// ResolveTops computes the top-level instance list: the user-requested
// --top names (reported as UnknownTopModule when missing, unless
// ignoreUnknownModules is set) or, when none were requested, every module
// declared outside a library, sorted for deterministic reporting.
func (c *Compilation) ResolveTops(requested []string, ignoreUnknownModules bool, engine *diag.Engine) {
	if len(requested) == 0 {
		tops := make([]string, 0, len(c.byName))
		for name := range c.byName {
			tops = append(tops, name)
		}
		sort.Strings(tops)
		c.tops = tops
		return
	}
	var tops []string
	for _, name := range requested {
		if _, ok := c.byName[name]; !ok {
			if !ignoreUnknownModules {
				if !engine.Issue(diag.Diagnostic{Kind: "UnknownTopModule", Message: fmt.Sprintf("unknown top module %q", name)}) {
					c.tops = tops
					return
				}
			}
			continue
		}
		tops = append(tops, name)
	}
	c.tops = tops
}

func (c *Compilation) TopInstances() []string { return append([]string{}, c.tops...) }

func (c *Compilation) ModuleCount() int { return len(c.symbols) }

// ReportCompilation prints the top-level instance list (unless quiet) and
// the final Build succeeded/failed summary from engine's counts; engine
// has already rendered each diagnostic when it was issued.
func ReportCompilation(c *Compilation, engine *diag.Engine, quiet bool, printf func(string, ...interface{})) {
	if !quiet {
		for _, name := range c.tops {
			printf("top instance: %s\n", name)
		}
	}
	printf("%s\n", engine.Summary())
}
