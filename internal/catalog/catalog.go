// Package catalog loads the goods, locations, and events catalogues from a
// config directory. Documents are validated against embedded JSON schemas
// and cross-checked before the engines see them: data errors surface once at
// load time, never per tick.
// See design doc Section 3.
package catalog

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/talgya/crossroads-trader/internal/events"
	"github.com/talgya/crossroads-trader/internal/market"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Catalog is the loaded, validated static game data.
type Catalog struct {
	Goods     []*market.Good
	Locations []*market.Location
	Events    []*events.Definition

	GoodsByID     map[string]*market.Good
	LocationsByID map[string]*market.Location
	EventsByID    map[string]*events.Definition

	// Digest fingerprints the raw catalogue bytes, for save compatibility
	// checks.
	Digest string
}

type goodsDoc struct {
	Goods []*market.Good `json:"goods"`
}

type locationsDoc struct {
	Locations []*market.Location `json:"locations"`
}

// Load reads goods.json, locations.json, and events/*.json from dir.
func Load(dir string) (*Catalog, error) {
	c := &Catalog{
		GoodsByID:     make(map[string]*market.Good),
		LocationsByID: make(map[string]*market.Location),
		EventsByID:    make(map[string]*events.Definition),
	}
	hash := sha256.New()

	raw, err := readValidated(filepath.Join(dir, "goods.json"), "goods.schema.json")
	if err != nil {
		return nil, err
	}
	hash.Write(raw)
	var gd goodsDoc
	if err := json.Unmarshal(raw, &gd); err != nil {
		return nil, fmt.Errorf("goods.json: %w", err)
	}
	for _, g := range gd.Goods {
		if err := g.Validate(); err != nil {
			return nil, fmt.Errorf("goods.json: %w", err)
		}
		if _, dup := c.GoodsByID[g.ID]; dup {
			return nil, fmt.Errorf("goods.json: duplicate good id %s", g.ID)
		}
		c.GoodsByID[g.ID] = g
	}
	c.Goods = gd.Goods

	raw, err = readValidated(filepath.Join(dir, "locations.json"), "locations.schema.json")
	if err != nil {
		return nil, err
	}
	hash.Write(raw)
	var ld locationsDoc
	if err := json.Unmarshal(raw, &ld); err != nil {
		return nil, fmt.Errorf("locations.json: %w", err)
	}
	for _, l := range ld.Locations {
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("locations.json: %w", err)
		}
		if _, dup := c.LocationsByID[l.ID]; dup {
			return nil, fmt.Errorf("locations.json: duplicate location id %s", l.ID)
		}
		c.LocationsByID[l.ID] = l
	}
	c.Locations = ld.Locations

	if err := c.loadEvents(filepath.Join(dir, "events"), hash); err != nil {
		return nil, err
	}

	if err := c.crossCheck(); err != nil {
		return nil, err
	}

	c.Digest = hex.EncodeToString(hash.Sum(nil))
	return c, nil
}

func (c *Catalog) loadEvents(dir string, hash interface{ Write([]byte) (int, error) }) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("events dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			names = append(names, e.Name())
		}
	}
	// Deterministic load order keeps the digest and selection order stable.
	sort.Strings(names)

	for _, name := range names {
		raw, err := readValidated(filepath.Join(dir, name), "events.schema.json")
		if err != nil {
			return err
		}
		hash.Write(raw)
		var defs []*events.Definition
		if err := json.Unmarshal(raw, &defs); err != nil {
			return fmt.Errorf("events/%s: %w", name, err)
		}
		for _, d := range defs {
			if err := d.Validate(); err != nil {
				return fmt.Errorf("events/%s: %w", name, err)
			}
			if _, dup := c.EventsByID[d.ID]; dup {
				return fmt.Errorf("events/%s: duplicate event id %s", name, d.ID)
			}
			c.EventsByID[d.ID] = d
			c.Events = append(c.Events, d)
		}
	}
	return nil
}

// crossCheck verifies referential integrity between the three catalogues.
func (c *Catalog) crossCheck() error {
	for _, g := range c.Goods {
		for _, locID := range g.Locations {
			if _, ok := c.LocationsByID[locID]; !ok {
				return fmt.Errorf("good %s: unknown location %s", g.ID, locID)
			}
		}
	}
	for _, l := range c.Locations {
		for _, goodID := range l.Specialties {
			if _, ok := c.GoodsByID[goodID]; !ok {
				return fmt.Errorf("location %s: unknown specialty good %s", l.ID, goodID)
			}
		}
	}
	for _, d := range c.Events {
		for _, locID := range d.Conditions.Locations {
			if _, ok := c.LocationsByID[locID]; !ok {
				return fmt.Errorf("event %s: unknown location %s", d.ID, locID)
			}
		}
		for _, req := range d.Conditions.Items {
			if _, ok := c.GoodsByID[req.GoodID]; !ok {
				return fmt.Errorf("event %s: unknown good %s", d.ID, req.GoodID)
			}
		}
		for _, ev := range append(append([]string{}, d.Conditions.RequiredEvents...), d.Conditions.ExcludedEvents...) {
			if _, ok := c.EventsByID[ev]; !ok {
				return fmt.Errorf("event %s: unknown prior event %s", d.ID, ev)
			}
		}
		for oi, opt := range d.Options {
			for _, eff := range opt.Effects {
				if err := c.checkEffect(d.ID, eff); err != nil {
					return fmt.Errorf("event %s option %d: %w", d.ID, oi, err)
				}
			}
		}
	}
	return nil
}

func (c *Catalog) checkEffect(eventID string, eff events.Effect) error {
	switch v := eff.(type) {
	case events.InventoryEffect:
		if _, ok := c.GoodsByID[v.GoodID]; !ok {
			return fmt.Errorf("unknown good %s", v.GoodID)
		}
	case events.MarketEffect:
		if v.LocationID != "" {
			if _, ok := c.LocationsByID[v.LocationID]; !ok {
				return fmt.Errorf("unknown location %s", v.LocationID)
			}
		}
	case events.LocationEffect:
		if _, ok := c.LocationsByID[v.LocationID]; !ok {
			return fmt.Errorf("unknown location %s", v.LocationID)
		}
	case events.ChainEffect:
		if _, ok := c.EventsByID[v.EventID]; !ok {
			return fmt.Errorf("unknown chained event %s", v.EventID)
		}
		if v.EventID == eventID {
			return fmt.Errorf("event chains to itself")
		}
	}
	return nil
}

// readValidated reads a JSON document and validates it against the named
// embedded schema.
func readValidated(path, schemaName string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	schemaRaw, err := schemaFS.ReadFile("schemas/" + schemaName)
	if err != nil {
		return nil, fmt.Errorf("embedded schema %s: %w", schemaName, err)
	}
	schema, err := jsonschema.CompileString(schemaName, string(schemaRaw))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", schemaName, err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return raw, nil
}
