package domain

// State is one point of the dynamic-programming state space: experience in
// the two working alternatives, additional schooling beyond the starting
// level, and whether the agent attended school last period.
type State struct {
	ExpA      int  `json:"exp_a"`
	ExpB      int  `json:"exp_b"`
	Edu       int  `json:"edu"`
	LaggedEdu bool `json:"lagged_edu"`
}

type stateKey struct {
	period, expA, expB, edu int
	lagged                  bool
}

// StateSpace holds the admissible states per period together with the index
// mapping used to resolve continuation values during the backward recursion.
type StateSpace struct {
	NumPeriods int
	States     [][]State

	index map[stateKey]int
}

// NewStateSpace returns an empty state space for the given horizon.
func NewStateSpace(numPeriods int) *StateSpace {
	return &StateSpace{
		NumPeriods: numPeriods,
		States:     make([][]State, numPeriods),
		index:      make(map[stateKey]int),
	}
}

// Add appends a state to a period and records its index.
func (ss *StateSpace) Add(period int, st State) int {
	k := len(ss.States[period])
	ss.States[period] = append(ss.States[period], st)
	ss.index[stateKey{period, st.ExpA, st.ExpB, st.Edu, st.LaggedEdu}] = k
	return k
}

// Lookup resolves the within-period index of a state.
func (ss *StateSpace) Lookup(period, expA, expB, edu int, lagged bool) (int, bool) {
	k, ok := ss.index[stateKey{period, expA, expB, edu, lagged}]
	return k, ok
}

// Size returns the total number of states across all periods.
func (ss *StateSpace) Size() int {
	total := 0
	for _, states := range ss.States {
		total += len(states)
	}
	return total
}
