// Package mechanics implements the probabilistic combat math shared by
// the concrete actions in pkg/game: penetration probability, binomial
// damage distributions for shooting and melee, the morale distribution,
// the two-dice charge distance distribution, and the generic
// duplicate-merging helpers used to build and compose those
// distributions without producing repeated successor states.
package mechanics

import (
	"fmt"
	"math"

	"github.com/samuelbarrett1234/40KLearn/pkg/unit"
)

// PenetrationProbability returns the probability that a single attack
// with the given hit skill and weapon profile wounds and penetrates the
// save of a target with the given toughness/save/invulnerable-save.
func PenetrationProbability(hitSkill, wpnS, wpnAP, targetT, targetSV, targetInv int) (float64, error) {
	if hitSkill <= 0 || hitSkill > 7 {
		return 0, fmt.Errorf("mechanics: hit skill must be in (0,7], got %d", hitSkill)
	}
	if wpnS <= 0 {
		return 0, fmt.Errorf("mechanics: weapon strength must be positive, got %d", wpnS)
	}
	if targetT <= 0 {
		return 0, fmt.Errorf("mechanics: target toughness must be positive, got %d", targetT)
	}
	if targetSV <= 0 || targetSV > 7 {
		return 0, fmt.Errorf("mechanics: target save must be in (0,7], got %d", targetSV)
	}
	if targetInv <= 0 || targetInv > 7 {
		return 0, fmt.Errorf("mechanics: target invulnerable save must be in (0,7], got %d", targetInv)
	}

	pHit := (7.0 - float64(hitSkill)) / 6.0

	ratio := float64(wpnS) / float64(targetT)
	var pWound float64
	switch {
	case ratio >= 2.0:
		pWound = 5.0 / 6.0
	case ratio > 1.0:
		pWound = 4.0 / 6.0
	case ratio <= 0.5:
		pWound = 1.0 / 6.0
	case ratio < 1.0:
		pWound = 2.0 / 6.0
	default:
		pWound = 3.0 / 6.0
	}

	pArmour := math.Max((7.0-float64(targetSV)+float64(wpnAP))/6.0, 0.0)
	pInv := (7.0 - float64(targetInv)) / 6.0
	pSave := math.Max(pArmour, pInv)

	return pHit * pWound * (1.0 - pSave), nil
}

// binomialCoefficient computes C(n,k) directly; n is small in practice
// (a few dozen shots at most), so there's no need for log-gamma tricks.
func binomialCoefficient(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	result := 1.0
	for i := 0; i < k; i++ {
		result *= float64(n-i) / float64(i+1)
	}
	return result
}

// BinomialProbability returns C(n,k)*p^k*(1-p)^(n-k).
func BinomialProbability(n, k int, p float64) float64 {
	if k < 0 || k > n {
		return 0
	}
	return binomialCoefficient(n, k) * math.Pow(p, float64(k)) * math.Pow(1-p, float64(n-k))
}

// MergeConsecutive appends (state, prob) to states/probs, but folds it
// into the immediately preceding entry (summing probabilities) when it
// compares equal under eq. This mirrors the original engine's
// results.back() check when building a single action's raw outcome
// distribution (shooting/melee damage, morale): successive attack
// counts only ever collapse into their neighbour, never into an
// earlier, unrelated entry.
func MergeConsecutive[T any](states []T, probs []float64, state T, prob float64, eq func(a, b T) bool) ([]T, []float64) {
	if len(states) > 0 && eq(states[len(states)-1], state) {
		probs[len(probs)-1] += prob
		return states, probs
	}
	return append(states, state), append(probs, prob)
}

// MergeDistinct appends (state, prob) to states/probs, scanning the
// entire existing list for a match under eq before appending. This is
// the transition-composition merge rule (§4.4): when composing actions
// over a distribution, a successor may coincide with any previously
// produced state, not just the most recent one.
func MergeDistinct[T any](states []T, probs []float64, state T, prob float64, eq func(a, b T) bool) ([]T, []float64) {
	for i, s := range states {
		if eq(s, state) {
			probs[i] += prob
			return states, probs
		}
	}
	return append(states, state), append(probs, prob)
}

// applyDamage computes the post-damage unit record for k successful
// attacks each dealing dmg (already clipped to the target's per-model
// wounds), adding the number of models lost to its ModelsLostThisPhase.
func applyDamage(target unit.Unit, dmg, k int) unit.Unit {
	newTarget := target
	newTarget.TotalW -= dmg * k
	if newTarget.TotalW < 0 {
		newTarget.TotalW = 0
	}
	newTarget.Count = newTarget.TotalW / newTarget.W
	if newTarget.TotalW%newTarget.W != 0 {
		newTarget.Count++
	}
	newTarget.ModelsLostThisPhase += target.Count - newTarget.Count
	return newTarget
}

// ResolveRawShootingDamage computes the distribution of target-unit
// outcomes (ascending in number of successful attacks) from shooter
// firing on target across distanceApart. Precondition:
// shooter.HasStandardRangedWeapon() && distanceApart <= shooter.RangedRange.
func ResolveRawShootingDamage(shooter, target unit.Unit, distanceApart float64) ([]unit.Unit, []float64, error) {
	if !shooter.HasStandardRangedWeapon() {
		return nil, nil, fmt.Errorf("mechanics: shooter needs a ranged weapon")
	}
	if distanceApart > float64(shooter.RangedRange) {
		return nil, nil, fmt.Errorf("mechanics: weapon needs to be in range")
	}

	hitSkill := shooter.BS
	if shooter.RangedIsHeavy && shooter.MovedThisTurn {
		hitSkill = 6
	}

	dmg := min(shooter.RangedDmg, target.W)

	numShots := shooter.RangedShots * shooter.Count
	if shooter.RangedIsRapid && distanceApart <= 0.5*float64(shooter.RangedRange) {
		numShots *= 2
	}

	pPen, err := PenetrationProbability(hitSkill, shooter.RangedS, shooter.RangedAP, target.T, target.SV, target.Inv)
	if err != nil {
		return nil, nil, err
	}

	var results []unit.Unit
	var probs []float64
	for i := 0; i <= numShots; i++ {
		newTarget := applyDamage(target, dmg, i)
		prob := BinomialProbability(numShots, i, pPen)
		results, probs = MergeConsecutive(results, probs, newTarget, prob, unit.Unit.Equal)
	}
	return results, probs, nil
}

// ResolveRawMeleeDamage is ResolveRawShootingDamage's melee counterpart:
// fighter's attacks (A*count of them) land against target at fighter's
// weapon skill, with no heavy/rapid-fire special rules.
func ResolveRawMeleeDamage(fighter, target unit.Unit) ([]unit.Unit, []float64, error) {
	if !fighter.HasStandardMeleeWeapon() {
		return nil, nil, fmt.Errorf("mechanics: fighter needs a melee weapon")
	}

	dmg := min(fighter.MeleeDmg, target.W)
	numHits := fighter.A * fighter.Count

	pPen, err := PenetrationProbability(fighter.WS, fighter.MeleeS, fighter.MeleeAP, target.T, target.SV, target.Inv)
	if err != nil {
		return nil, nil, err
	}

	var results []unit.Unit
	var probs []float64
	for i := 0; i <= numHits; i++ {
		newTarget := applyDamage(target, dmg, i)
		prob := BinomialProbability(numHits, i, pPen)
		results, probs = MergeConsecutive(results, probs, newTarget, prob, unit.Unit.Equal)
	}
	return results, probs, nil
}

// MoraleOutcome is one possible result of a morale check: either the
// unit survives with updated count/total_w, or it is destroyed outright
// (routs off the board entirely).
type MoraleOutcome struct {
	Unit      unit.Unit
	Destroyed bool
}

func moraleEqual(a, b MoraleOutcome) bool {
	if a.Destroyed != b.Destroyed {
		return false
	}
	if a.Destroyed {
		return true
	}
	return a.Unit.Equal(b.Unit)
}

// ResolveMoraleCheck computes the morale distribution for u, which must
// have ModelsLostThisPhase > 0.
func ResolveMoraleCheck(u unit.Unit) ([]MoraleOutcome, []float64, error) {
	if u.ModelsLostThisPhase <= 0 {
		return nil, nil, fmt.Errorf("mechanics: morale check requires models lost this phase > 0")
	}

	minRollForLoss := u.LD - u.ModelsLostThisPhase + 1

	if minRollForLoss >= 7 {
		return []MoraleOutcome{{Unit: u}}, []float64{1.0}, nil
	}

	var results []MoraleOutcome
	var probs []float64

	if minRollForLoss > 1 {
		results = append(results, MoraleOutcome{Unit: u})
		probs = append(probs, (float64(minRollForLoss)-1.0)/6.0)
	}

	start := max(minRollForLoss, 1)
	for roll := start; roll <= 6; roll++ {
		numRunAway := u.ModelsLostThisPhase + roll - u.LD

		newUnit := u
		newUnit.Count -= numRunAway
		newUnit.TotalW = newUnit.Count * newUnit.W

		var outcome MoraleOutcome
		if newUnit.Count <= 0 {
			outcome = MoraleOutcome{Destroyed: true}
		} else {
			outcome = MoraleOutcome{Unit: newUnit}
		}
		results, probs = MergeConsecutive(results, probs, outcome, 1.0/6.0, moraleEqual)
	}

	return results, probs, nil
}

// twoDice holds the probability of rolling the sum of two dice, indexed
// from 0 (sum of 2) to 10 (sum of 12).
var twoDice = [11]float64{
	1.0 / 36.0,
	2.0 / 36.0,
	3.0 / 36.0,
	4.0 / 36.0,
	5.0 / 36.0,
	6.0 / 36.0,
	5.0 / 36.0,
	4.0 / 36.0,
	3.0 / 36.0,
	2.0 / 36.0,
	1.0 / 36.0,
}

// ChargeSuccessProbability returns the probability of passing (and
// failing) a charge of the given distance, using the two-dice sum
// distribution: the charge succeeds iff the roll is at least
// ceil(distance).
func ChargeSuccessProbability(distance float64) (pPass, pFail float64) {
	minDiceRoll := int(math.Ceil(distance))
	for i := 2; i < minDiceRoll; i++ {
		pFail += twoDice[i-2]
	}
	return 1.0 - pFail, pFail
}
