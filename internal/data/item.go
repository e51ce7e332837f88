package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ItemInfo holds the item template data the reward path needs: display
// fields plus weight/stackable for the capacity pre-check.
type ItemInfo struct {
	ItemID    int32
	Name      string
	InvGfx    int32
	GrdGfx    int32
	Weight    int32 // per 1000 units, as the client counts
	Stackable bool
	Bless     int
	Tradeable bool
}

// ItemTable holds all item templates indexed by ItemID.
type ItemTable struct {
	items map[int32]*ItemInfo
}

// Get returns an item by ID, or nil if not found.
func (t *ItemTable) Get(itemID int32) *ItemInfo {
	return t.items[itemID]
}

// Count returns total loaded items.
func (t *ItemTable) Count() int {
	return len(t.items)
}

type itemEntry struct {
	ItemID    int32  `yaml:"item_id"`
	Name      string `yaml:"name"`
	InvGfx    int32  `yaml:"inv_gfx"`
	GrdGfx    int32  `yaml:"grd_gfx"`
	Weight    int32  `yaml:"weight"`
	Stackable bool   `yaml:"stackable"`
	Bless     int    `yaml:"bless"`
	Tradeable bool   `yaml:"tradeable"`
}

type itemListFile struct {
	Items []itemEntry `yaml:"items"`
}

// LoadItemTable loads item templates from a YAML file.
func LoadItemTable(path string) (*ItemTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read item_list: %w", err)
	}
	var f itemListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse item_list: %w", err)
	}
	t := &ItemTable{items: make(map[int32]*ItemInfo, len(f.Items))}
	for i := range f.Items {
		e := &f.Items[i]
		t.items[e.ItemID] = &ItemInfo{
			ItemID:    e.ItemID,
			Name:      e.Name,
			InvGfx:    e.InvGfx,
			GrdGfx:    e.GrdGfx,
			Weight:    e.Weight,
			Stackable: e.Stackable,
			Bless:     e.Bless,
			Tradeable: e.Tradeable,
		}
	}
	return t, nil
}
