// Package vibe defines the registry of map vibes.
//
// A vibe is a named visual treatment of the same base map: a color profile
// applied to the vector style, an optional label font and halo, and a pixel
// transform applied to the raster background tiles. The set of vibes is
// finite and loaded once at startup, by default from the embedded vibes.toml.
//
// # Usage
//
//	reg := vibe.Builtin()
//	p, err := reg.Get("vintage")
//	if err != nil {
//	    // errors.ErrCodeUnknownVibe
//	}
//	fmt.Println(p.Water) // "#c8d8d0"
package vibe

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/vibetiles/pkg/errors"
)

// ID identifies a vibe, e.g. "vintage" or "blueprint".
type ID string

// DefaultID is the untouched base vibe. Its style is the canonical upstream
// style and its tiles are served without a pixel transform.
const DefaultID ID = "default"

func (id ID) String() string { return string(id) }

// Halo describes the outline drawn around label text.
type Halo struct {
	Color string  `toml:"color"`
	Width float64 `toml:"width"`
}

// Profile is the color profile of one vibe. Profiles are immutable after
// the registry is loaded.
type Profile struct {
	ID   ID     `toml:"id"`
	Name string `toml:"name"`

	// Base marks the vibe that is served without any rewriting.
	Base bool `toml:"base"`

	Background string `toml:"background"`
	Land       string `toml:"land"`
	Water      string `toml:"water"`
	Road       string `toml:"road"`
	Label      string `toml:"label"`

	Halo *Halo  `toml:"halo"`
	Font string `toml:"font"`

	// Sprite enables serving a vibe-specific sprite sheet from /api/sprites.
	Sprite bool `toml:"sprite"`
}

// HasHalo reports whether labels of this vibe get a halo.
func (p *Profile) HasHalo() bool { return p.Halo != nil }

// HasFont reports whether this vibe overrides the label font.
func (p *Profile) HasFont() bool { return p.Font != "" }

// Registry is an ordered, read-only set of vibe profiles.
type Registry struct {
	order    []ID
	profiles map[ID]*Profile
}

type registryFile struct {
	Vibes []*Profile `toml:"vibe"`
}

//go:embed vibes.toml
var builtinTOML []byte

var (
	builtin     *Registry
	builtinOnce sync.Once
)

// Builtin returns the registry decoded from the embedded vibes.toml.
// It panics if the embedded document is invalid, which is a build defect.
func Builtin() *Registry {
	builtinOnce.Do(func() {
		reg, err := Load(bytes.NewReader(builtinTOML))
		if err != nil {
			panic(fmt.Sprintf("vibe: embedded registry: %v", err))
		}
		builtin = reg
	})
	return builtin
}

// Load decodes and validates a registry document.
//
// The document must contain the "default" vibe, every other vibe must carry
// all five colors, and unknown keys are rejected.
func Load(r io.Reader) (*Registry, error) {
	var file registryFile
	md, err := toml.NewDecoder(r).Decode(&file)
	if err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown registry keys: %s", strings.Join(keys, ", "))
	}

	reg := &Registry{profiles: make(map[ID]*Profile, len(file.Vibes))}
	for _, p := range file.Vibes {
		if err := validate(p); err != nil {
			return nil, err
		}
		if _, dup := reg.profiles[p.ID]; dup {
			return nil, fmt.Errorf("duplicate vibe %q", p.ID)
		}
		reg.profiles[p.ID] = p
		reg.order = append(reg.order, p.ID)
	}

	base, ok := reg.profiles[DefaultID]
	if !ok {
		return nil, fmt.Errorf("registry has no %q vibe", DefaultID)
	}
	if !base.Base {
		return nil, fmt.Errorf("vibe %q must be marked base", DefaultID)
	}
	return reg, nil
}

func validate(p *Profile) error {
	if p.ID == "" {
		return fmt.Errorf("vibe without id")
	}
	if err := errors.ValidatePathSegment(string(p.ID)); err != nil {
		return fmt.Errorf("vibe %q: %w", p.ID, err)
	}
	if p.Base {
		return nil
	}

	colors := []struct{ name, value string }{
		{"background", p.Background},
		{"land", p.Land},
		{"water", p.Water},
		{"road", p.Road},
		{"label", p.Label},
	}
	for _, c := range colors {
		if _, err := colorful.Hex(c.value); err != nil {
			return fmt.Errorf("vibe %q: invalid %s color %q", p.ID, c.name, c.value)
		}
	}
	if p.Halo != nil {
		if _, err := colorful.Hex(p.Halo.Color); err != nil {
			return fmt.Errorf("vibe %q: invalid halo color %q", p.ID, p.Halo.Color)
		}
		if p.Halo.Width <= 0 {
			return fmt.Errorf("vibe %q: halo width must be positive", p.ID)
		}
	}
	return nil
}

// Lookup returns the profile for id.
func (r *Registry) Lookup(id ID) (*Profile, bool) {
	p, ok := r.profiles[id]
	return p, ok
}

// Get returns the profile for id, or an ErrCodeUnknownVibe error.
func (r *Registry) Get(id ID) (*Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownVibe, "unknown vibe %q", id)
	}
	return p, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id ID) bool {
	_, ok := r.profiles[id]
	return ok
}

// IDs returns the registered ids in document order.
func (r *Registry) IDs() []ID {
	return append([]ID(nil), r.order...)
}

// Profiles returns the registered profiles in document order.
func (r *Registry) Profiles() []*Profile {
	out := make([]*Profile, len(r.order))
	for i, id := range r.order {
		out[i] = r.profiles[id]
	}
	return out
}

// ParseIDs splits a comma-separated list of vibe ids, ignoring blanks.
// Every id must be registered.
func (r *Registry) ParseIDs(s string) ([]ID, error) {
	var ids []ID
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id := ID(part)
		if !r.Has(id) {
			return nil, errors.New(errors.ErrCodeUnknownVibe, "unknown vibe %q", id)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
