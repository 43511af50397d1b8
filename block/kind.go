package block

import "fmt"

// Kind names one recursion matrix. The numeric value doubles as the
// recursion's priority: the forward pass computes a cell's kinds in
// ascending order, the outside pass and the backtrack queues visit them in
// descending order, so every same-cell dependency points from a higher
// priority to a strictly lower one.
type Kind int

const (
	KindM2 Kind = iota + 1
	KindM3
	KindB
	KindZ
	KindD
	KindYA
	KindYB
	KindCD
	KindMCS
	KindMC
	KindMS
	KindM1
	KindM
	KindMD
	KindS
	KindQ
	KindQno

	numKinds = int(KindQno)
)

var kindNames = map[Kind]string{
	KindM2: "M2", KindM3: "M3", KindB: "B", KindZ: "Z", KindD: "D",
	KindYA: "YA", KindYB: "YB", KindCD: "CD", KindMCS: "MCS", KindMC: "MC",
	KindMS: "MS", KindM1: "M1", KindM: "M", KindMD: "MD", KindS: "S",
	KindQno: "Qno", KindQ: "Q",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Priority returns the kind's replay priority; within equal spans, the
// backtrack queues pop higher priorities first.
func (k Kind) Priority() int { return int(k) }

// forwardOrder is the per-cell computation order for the forward pass;
// Qno comes last because its nick-free form reads the same cell's Q.
var forwardOrder = [...]Kind{
	KindM2, KindM3, KindB, KindZ, KindD, KindYA, KindYB,
	KindCD, KindMCS, KindMC, KindMS, KindM1, KindM, KindMD,
	KindS, KindQ, KindQno,
}

// outsideOrder is forwardOrder reversed, the scatter order for the
// outside (exterior-weight) pass.
var outsideOrder = [...]Kind{
	KindQno, KindQ, KindS, KindMD, KindM, KindM1, KindMS, KindMC,
	KindMCS, KindCD, KindYB, KindYA, KindD, KindZ, KindB, KindM3, KindM2,
}

// Ref addresses one recursion element, the unit the backtrack queues and
// the outside pass route weight through.
type Ref struct {
	Kind Kind
	I, J int
}

func (r Ref) String() string { return fmt.Sprintf("%v(%d,%d)", r.Kind, r.I, r.J) }
