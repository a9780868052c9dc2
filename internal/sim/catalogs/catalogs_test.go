package catalogs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if len(c.Entities) != 5 || len(c.Items) != 11 {
		t.Fatalf("entities=%d items=%d", len(c.Entities), len(c.Items))
	}
	smiler, ok := c.EntityByID["smiler"]
	if !ok || smiler.Tier != "rare" || smiler.MinCorruption != 0.2 || smiler.HP != 45 {
		t.Fatalf("smiler=%+v", smiler)
	}
	if got := c.EntityByID["mannequin"].Levels; len(got) != 2 || got[1] != 1 {
		t.Fatalf("mannequin levels=%v", got)
	}
	if len(c.Digest) != 64 {
		t.Fatalf("digest=%q", c.Digest)
	}
	for i := 1; i < len(c.Items); i++ {
		if c.Items[i-1].ID >= c.Items[i].ID {
			t.Fatalf("items not sorted by id")
		}
	}
}

func TestConfigCopyMatchesEmbedded(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "..", "configs", "spawns.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d, _ := Default()
	if c.Digest != d.Digest {
		t.Fatalf("configs/spawns.yaml drifted from the embedded default")
	}
}

func TestSchemaRejectsBadCatalogs(t *testing.T) {
	cases := map[string]string{
		"unknown tier":   "entities: [{id: x, tier: mythic, base_weight: 1, hp: 1}]\nitems: []\n",
		"zero weight":    "entities: []\nitems: [{id: x, tier: common, base_weight: 0}]\n",
		"missing hp":     "entities: [{id: x, tier: common, base_weight: 1}]\nitems: []\n",
		"extra field":    "entities: []\nitems: [{id: x, tier: common, base_weight: 1, colour: red}]\n",
		"missing items":  "entities: []\n",
		"bad id pattern": "entities: []\nitems: [{id: Almond Water, tier: common, base_weight: 1}]\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc), name); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestDuplicateIDsRejected(t *testing.T) {
	doc := "entities: []\nitems:\n  - {id: a, tier: common, base_weight: 1}\n  - {id: a, tier: rare, base_weight: 1}\n"
	_, err := Parse([]byte(doc), "dup")
	if err == nil || !strings.Contains(err.Error(), "duplicate item id") {
		t.Fatalf("err=%v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !os.IsNotExist(err) {
		t.Fatalf("err=%v", err)
	}
}
