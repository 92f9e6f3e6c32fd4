package dataset

import (
	"fmt"
	"sort"
)

// OrderProblem describes a region that is not where the expected
// north-to-south order puts it.
type OrderProblem struct {
	State   string
	Region  string
	Message string
}

func (p OrderProblem) String() string {
	return fmt.Sprintf("[%s] %s: %s", p.State, p.Region, p.Message)
}

// VerifyOrder compares the dataset's region order within each state to
// expected (state id -> region names, north to south). Regions missing
// from the expected list, expected regions missing from the data, and
// regions that appear out of sequence are all reported.
func VerifyOrder(d *Data, expected map[string][]string) []OrderProblem {
	var problems []OrderProblem

	states := make([]string, 0, len(expected))
	for state := range expected {
		states = append(states, state)
	}
	sort.Strings(states)

	for _, state := range states {
		names := expected[state]
		rank := make(map[string]int, len(names))
		for i, n := range names {
			rank[n] = i
		}

		present := make(map[string]bool)
		last := -1
		lastName := ""
		for _, r := range d.RegionsInState(state) {
			present[r.Name] = true
			i, ok := rank[r.Name]
			if !ok {
				problems = append(problems, OrderProblem{State: state, Region: r.Name, Message: "not in the expected region order"})
				continue
			}
			if i < last {
				problems = append(problems, OrderProblem{
					State:   state,
					Region:  r.Name,
					Message: fmt.Sprintf("listed after %q but belongs before it", lastName),
				})
				continue
			}
			last, lastName = i, r.Name
		}

		for _, n := range names {
			if !present[n] {
				problems = append(problems, OrderProblem{State: state, Region: n, Message: "expected region has no section"})
			}
		}
	}
	return problems
}
