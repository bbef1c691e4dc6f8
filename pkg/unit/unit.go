// Package unit defines the per-squad data record the engine operates on.
package unit

// Unit is a composite record describing a single squad: its identity,
// numeric stats (movement, weapon profiles, wounds) and the boolean
// phase/turn flags that gate which actions are available. Unit is pure
// data; all damage mutation goes through pkg/mechanics.
type Unit struct {
	Name string

	Count    int // models alive
	Movement int
	WS       int // weapon skill
	BS       int // ballistic skill
	T        int // toughness
	W        int // wounds per model
	TotalW   int // aggregate wounds across the squad
	A        int // attacks
	LD       int // leadership
	SV       int // armour save threshold
	Inv      int // invulnerable save threshold

	RangedRange int
	RangedS     int
	RangedAP    int
	RangedDmg   int
	RangedShots int

	MeleeS   int
	MeleeAP  int
	MeleeDmg int

	ModelsLostThisPhase int

	RangedIsRapid bool
	RangedIsHeavy bool

	MovedThisTurn            bool
	FiredThisTurn            bool
	AttemptedChargeThisTurn  bool
	SuccessfulChargeThisTurn bool
	FoughtThisTurn           bool
	MovedOutOfCombatThisTurn bool
}

// HasStandardRangedWeapon reports whether u can possibly inflict
// damage with its ranged weapon profile.
func (u Unit) HasStandardRangedWeapon() bool {
	return u.RangedRange > 0 && u.RangedS > 0 && u.RangedDmg > 0 && u.RangedShots > 0
}

// HasStandardMeleeWeapon reports whether u can possibly inflict damage
// in melee.
func (u Unit) HasStandardMeleeWeapon() bool {
	return u.MeleeS > 0 && u.MeleeDmg > 0 && u.A > 0
}

// Equal performs a structural comparison of every field. All turn/phase
// flags are compared independently (see DESIGN.md open questions).
func (u Unit) Equal(o Unit) bool {
	return u == o
}
