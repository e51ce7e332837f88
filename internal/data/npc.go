package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NpcTemplate holds static data for an NPC type loaded from YAML.
type NpcTemplate struct {
	NpcID  int32  `yaml:"npc_id"`
	Name   string `yaml:"name"`
	NameID string `yaml:"nameid"`
	Impl   string `yaml:"impl"` // L1Merchant, L1Guard, etc.
	GfxID  int32  `yaml:"gfx_id"`
	Level  int16  `yaml:"level"`
	HP     int32  `yaml:"hp"`
	MP     int32  `yaml:"mp"`
	AC     int16  `yaml:"ac"`
	Lawful int32  `yaml:"lawful"`
	Size   string `yaml:"size"`
}

type npcListFile struct {
	Npcs []NpcTemplate `yaml:"npcs"`
}

// NpcTable holds all NPC templates indexed by NpcID.
type NpcTable struct {
	templates map[int32]*NpcTemplate
}

// LoadNpcTable loads NPC templates from a YAML file.
func LoadNpcTable(path string) (*NpcTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read npc_list: %w", err)
	}
	var f npcListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse npc_list: %w", err)
	}
	t := &NpcTable{templates: make(map[int32]*NpcTemplate, len(f.Npcs))}
	for i := range f.Npcs {
		npc := &f.Npcs[i]
		t.templates[npc.NpcID] = npc
	}
	return t, nil
}

// Get returns an NPC template by ID, or nil if not found.
func (t *NpcTable) Get(npcID int32) *NpcTemplate {
	return t.templates[npcID]
}

// Count returns the number of loaded templates.
func (t *NpcTable) Count() int {
	return len(t.templates)
}
