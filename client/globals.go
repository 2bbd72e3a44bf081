package client

import (
	"cmp"
	"slices"
)

// Global is an object the compositor advertised through wl_registry.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

type globalEntry struct {
	Global
	seq uint64
}

// Globals is the table of advertised globals, keyed by name. Only
// registry events modify it.
type Globals struct {
	byName map[uint32]globalEntry
	seq    uint64
}

func newGlobals() *Globals {
	return &Globals{byName: make(map[uint32]globalEntry)}
}

func (g *Globals) add(global Global) {
	g.seq++
	g.byName[global.Name] = globalEntry{Global: global, seq: g.seq}
}

func (g *Globals) remove(name uint32) (Global, bool) {
	e, ok := g.byName[name]
	if ok {
		delete(g.byName, name)
	}
	return e.Global, ok
}

// Lookup returns the global announced under name.
func (g *Globals) Lookup(name uint32) (Global, bool) {
	e, ok := g.byName[name]
	return e.Global, ok
}

// Find returns the most recently announced global implementing iface.
func (g *Globals) Find(iface string) (Global, bool) {
	var best globalEntry
	found := false
	for _, e := range g.byName {
		if e.Interface == iface && (!found || e.seq > best.seq) {
			best, found = e, true
		}
	}
	return best.Global, found
}

// All returns every global ordered by name.
func (g *Globals) All() []Global {
	out := make([]Global, 0, len(g.byName))
	for _, e := range g.byName {
		out = append(out, e.Global)
	}
	slices.SortFunc(out, func(a, b Global) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

func (g *Globals) Len() int { return len(g.byName) }
