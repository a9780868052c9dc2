// Package entities holds the mutable, authoritative creatures and pickups that
// live inside a loaded chunk. State changes go through methods so observers
// (renderer nodes, AI controllers) are always notified, and Detach severs every
// subscription before the owning chunk is discarded.
package entities

import (
	modelpkg "backrooms.dev/internal/sim/world/kernel/model"
)

type Change int

const (
	ChangeDamaged Change = iota + 1
	ChangeHealed
	ChangeDied
	ChangeMoved
	ChangePickedUp
)

func (c Change) String() string {
	switch c {
	case ChangeDamaged:
		return "DAMAGED"
	case ChangeHealed:
		return "HEALED"
	case ChangeDied:
		return "DIED"
	case ChangeMoved:
		return "MOVED"
	case ChangePickedUp:
		return "PICKED_UP"
	default:
		return "UNKNOWN"
	}
}

type EntityObserver interface {
	EntityChanged(e *WorldEntity, c Change)
}

type ItemObserver interface {
	ItemChanged(it *WorldItem, c Change)
}

// WorldEntity is a spawned creature. Tier mirrors the spawn definition.
type WorldEntity struct {
	ID    string
	DefID string
	Tier  int

	pos       modelpkg.TilePos
	hp        int
	maxHP     int
	observers []EntityObserver
}

func NewEntity(id, defID string, tier int, pos modelpkg.TilePos, hp int) *WorldEntity {
	if hp <= 0 {
		hp = 1
	}
	return &WorldEntity{ID: id, DefID: defID, Tier: tier, pos: pos, hp: hp, maxHP: hp}
}

func (e *WorldEntity) Pos() modelpkg.TilePos { return e.pos }
func (e *WorldEntity) HP() int               { return e.hp }
func (e *WorldEntity) MaxHP() int            { return e.maxHP }
func (e *WorldEntity) Alive() bool {
	return e.hp > 0
}

// Damage lowers HP (never below zero) and reports whether the hit was lethal.
func (e *WorldEntity) Damage(n int) bool {
	if n <= 0 || !e.Alive() {
		return false
	}
	e.hp -= n
	if e.hp <= 0 {
		e.hp = 0
		e.notify(ChangeDied)
		return true
	}
	e.notify(ChangeDamaged)
	return false
}

func (e *WorldEntity) Heal(n int) {
	if n <= 0 || !e.Alive() || e.hp == e.maxHP {
		return
	}
	e.hp += n
	if e.hp > e.maxHP {
		e.hp = e.maxHP
	}
	e.notify(ChangeHealed)
}

func (e *WorldEntity) MoveTo(p modelpkg.TilePos) {
	if p == e.pos {
		return
	}
	e.pos = p
	e.notify(ChangeMoved)
}

func (e *WorldEntity) Observe(o EntityObserver) {
	if o == nil {
		return
	}
	for _, cur := range e.observers {
		if cur == o {
			return
		}
	}
	e.observers = append(e.observers, o)
}

func (e *WorldEntity) Unobserve(o EntityObserver) {
	for i, cur := range e.observers {
		if cur == o {
			e.observers = append(e.observers[:i], e.observers[i+1:]...)
			return
		}
	}
}

func (e *WorldEntity) ObserverCount() int { return len(e.observers) }

// Detach drops every observer. Called before the owning chunk is evicted.
func (e *WorldEntity) Detach() { e.observers = nil }

func (e *WorldEntity) notify(c Change) {
	// Observers may unsubscribe while being notified.
	obs := append([]EntityObserver(nil), e.observers...)
	for _, o := range obs {
		o.EntityChanged(e, c)
	}
}

// WorldItem is a pickup lying on a floor tile.
type WorldItem struct {
	ID    string
	DefID string
	Tier  int

	pos       modelpkg.TilePos
	pickedUp  bool
	observers []ItemObserver
}

func NewItem(id, defID string, tier int, pos modelpkg.TilePos) *WorldItem {
	return &WorldItem{ID: id, DefID: defID, Tier: tier, pos: pos}
}

func (it *WorldItem) Pos() modelpkg.TilePos { return it.pos }
func (it *WorldItem) PickedUp() bool        { return it.pickedUp }

// PickUp marks the item as taken. Only the first call succeeds.
func (it *WorldItem) PickUp() bool {
	if it.pickedUp {
		return false
	}
	it.pickedUp = true
	obs := append([]ItemObserver(nil), it.observers...)
	for _, o := range obs {
		o.ItemChanged(it, ChangePickedUp)
	}
	return true
}

func (it *WorldItem) Observe(o ItemObserver) {
	if o == nil {
		return
	}
	for _, cur := range it.observers {
		if cur == o {
			return
		}
	}
	it.observers = append(it.observers, o)
}

func (it *WorldItem) Unobserve(o ItemObserver) {
	for i, cur := range it.observers {
		if cur == o {
			it.observers = append(it.observers[:i], it.observers[i+1:]...)
			return
		}
	}
}

func (it *WorldItem) ObserverCount() int { return len(it.observers) }

func (it *WorldItem) Detach() { it.observers = nil }
