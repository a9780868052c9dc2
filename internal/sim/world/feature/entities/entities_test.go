package entities

import (
	"testing"

	modelpkg "backrooms.dev/internal/sim/world/kernel/model"
)

type recorder struct {
	changes []Change
}

func (r *recorder) EntityChanged(_ *WorldEntity, c Change) { r.changes = append(r.changes, c) }
func (r *recorder) ItemChanged(_ *WorldItem, c Change)     { r.changes = append(r.changes, c) }

func TestEntityDamageNotifiesAndClamps(t *testing.T) {
	e := NewEntity("E1", "smiler", 2, modelpkg.TilePos{X: 3, Y: 4}, 10)
	r := &recorder{}
	e.Observe(r)
	e.Observe(r)
	if e.ObserverCount() != 1 {
		t.Fatalf("duplicate observer registered: %d", e.ObserverCount())
	}

	if e.Damage(4) {
		t.Fatalf("non-lethal hit reported as lethal")
	}
	if !e.Damage(100) {
		t.Fatalf("lethal hit not reported")
	}
	if e.HP() != 0 || e.Alive() {
		t.Fatalf("hp=%d alive=%v", e.HP(), e.Alive())
	}
	if e.Damage(1) {
		t.Fatalf("dead entity took damage")
	}
	want := []Change{ChangeDamaged, ChangeDied}
	if len(r.changes) != len(want) || r.changes[0] != want[0] || r.changes[1] != want[1] {
		t.Fatalf("changes=%v want %v", r.changes, want)
	}
}

func TestEntityDetachSeversObservers(t *testing.T) {
	e := NewEntity("E1", "bacteria_spawn", 0, modelpkg.TilePos{}, 5)
	r := &recorder{}
	e.Observe(r)
	e.Detach()
	e.Damage(1)
	e.Heal(1)
	if len(r.changes) != 0 {
		t.Fatalf("detached observer notified: %v", r.changes)
	}
}

func TestHealCapsAtMax(t *testing.T) {
	e := NewEntity("E1", "mannequin", 1, modelpkg.TilePos{}, 6)
	e.Damage(5)
	e.Heal(50)
	if e.HP() != e.MaxHP() {
		t.Fatalf("hp=%d want %d", e.HP(), e.MaxHP())
	}
}

func TestItemPickUpOnce(t *testing.T) {
	it := NewItem("I1", "almond_water", 0, modelpkg.TilePos{X: 1, Y: 1})
	r := &recorder{}
	it.Observe(r)
	if !it.PickUp() {
		t.Fatalf("first pickup failed")
	}
	if it.PickUp() {
		t.Fatalf("second pickup succeeded")
	}
	if len(r.changes) != 1 || r.changes[0] != ChangePickedUp {
		t.Fatalf("changes=%v", r.changes)
	}
	it.Unobserve(r)
	if it.ObserverCount() != 0 {
		t.Fatalf("observer not removed")
	}
}

func TestMoveToUpdatesPositionAndNotifies(t *testing.T) {
	e := NewEntity("E1", "smiler", 2, modelpkg.TilePos{X: 3, Y: 4}, 10)
	r := &recorder{}
	e.Observe(r)
	e.MoveTo(modelpkg.TilePos{X: 3, Y: 4})
	if len(r.changes) != 0 {
		t.Fatalf("move to the same tile notified: %v", r.changes)
	}
	e.MoveTo(modelpkg.TilePos{X: 4, Y: 4})
	if e.Pos() != (modelpkg.TilePos{X: 4, Y: 4}) {
		t.Fatalf("pos=%v", e.Pos())
	}
	if len(r.changes) != 1 || r.changes[0] != ChangeMoved {
		t.Fatalf("changes=%v", r.changes)
	}
	if it := NewItem("I1", "coin", 0, modelpkg.TilePos{X: -2, Y: 9}); it.Pos() != (modelpkg.TilePos{X: -2, Y: 9}) {
		t.Fatalf("item pos=%v", it.Pos())
	}
}
