package compilation

// Symbol is one bound module definition: its name, the unit it came from,
// and a back-pointer to its enclosing scope. The back-pointer is a Lazy
// rather than a raw index into Scopes so a symbol can be constructed
// before its enclosing scope has a final slot (mirrors the parameter
// symbol's lazy-type-pointing-back-at-its-scope pattern).
type Symbol struct {
	Name    string
	Unit    string // source path the symbol was declared in
	Library string // empty for the main design, else the owning library name
	Scope   Lazy
}

// Scope is one binding scope (here: the compilation unit/library scope a
// module's name resolves within). Parent is Unresolved for the single
// root scope and Resolved for every scope nested under it.
type Scope struct {
	Name    string
	Parent  Lazy
	Symbols map[string]int // name -> index into Compilation.symbols
}

func newScope(name string, parent Lazy) *Scope {
	return &Scope{Name: name, Parent: parent, Symbols: map[string]int{}}
}
