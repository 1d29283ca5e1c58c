// Package modules tracks the symbols a parsed module exports and the
// modules an import statement names. The table is scope-levelled; import
// handling is synchronous symbol insertion.
package modules

import "fmt"

// SymbolClass distinguishes what a name is bound to.
type SymbolClass uint8

const (
	SymbolVar SymbolClass = iota
	SymbolConst
	SymbolFunction
	SymbolModule
)

func (c SymbolClass) String() string {
	switch c {
	case SymbolVar:
		return "var"
	case SymbolConst:
		return "const"
	case SymbolFunction:
		return "function"
	case SymbolModule:
		return "module"
	default:
		return "unknown"
	}
}

// Symbol is one table entry.
type Symbol struct {
	Name       string
	Class      SymbolClass
	ScopeLevel uint16
	Node       uint32 // AST node that introduced the symbol, 0 for modules
}

// Table is a scope-levelled symbol table. Scopes nest; leaving a scope
// drops every symbol declared in it.
type Table struct {
	symbols []Symbol
	scope   uint16
}

// NewTable returns an empty table at scope level 0.
func NewTable() *Table {
	return &Table{}
}

// EnterScope opens a nested scope.
func (t *Table) EnterScope() {
	t.scope++
}

// LeaveScope closes the current scope and drops its symbols.
func (t *Table) LeaveScope() {
	if t.scope == 0 {
		return
	}
	kept := t.symbols[:0]
	for _, s := range t.symbols {
		if s.ScopeLevel < t.scope {
			kept = append(kept, s)
		}
	}
	t.symbols = kept
	t.scope--
}

// Scope returns the current scope level.
func (t *Table) Scope() uint16 {
	return t.scope
}

// Insert binds a name in the current scope. Re-binding a name already
// bound at the same level is an error.
func (t *Table) Insert(name string, class SymbolClass, node uint32) error {
	for _, s := range t.symbols {
		if s.Name == name && s.ScopeLevel == t.scope {
			return fmt.Errorf("symbol %q already declared in this scope as %s", name, s.Class)
		}
	}
	t.symbols = append(t.symbols, Symbol{
		Name:       name,
		Class:      class,
		ScopeLevel: t.scope,
		Node:       node,
	})
	return nil
}

// Lookup finds the innermost binding for a name.
func (t *Table) Lookup(name string) (Symbol, bool) {
	for i := len(t.symbols) - 1; i >= 0; i-- {
		if t.symbols[i].Name == name {
			return t.symbols[i], true
		}
	}
	return Symbol{}, false
}

// RegisterModule records an imported module as a module-class symbol at
// the outermost scope. Importing the same module twice is a no-op.
func (t *Table) RegisterModule(name string) {
	for _, s := range t.symbols {
		if s.Name == name && s.Class == SymbolModule {
			return
		}
	}
	t.symbols = append(t.symbols, Symbol{Name: name, Class: SymbolModule})
}

// Modules returns the names of all registered modules in insertion
// order.
func (t *Table) Modules() []string {
	var names []string
	for _, s := range t.symbols {
		if s.Class == SymbolModule {
			names = append(names, s.Name)
		}
	}
	return names
}
