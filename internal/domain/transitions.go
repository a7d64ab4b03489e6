package domain

// transitionTable lists, for each state, the states it may move to directly.
type transitionTable[S comparable] map[S][]S

func (t transitionTable[S]) allowed(from, to S) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// path returns the chain of single steps leading from "from" to "to",
// excluding "from". It is empty when no chain exists.
func (t transitionTable[S]) path(from, to S) []S {
	type node struct {
		state S
		prev  *node
	}
	seen := map[S]bool{from: true}
	queue := []*node{{state: from}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range t[cur.state] {
			if seen[next] {
				continue
			}
			seen[next] = true
			n := &node{state: next, prev: cur}
			if next == to {
				var out []S
				for p := n; p.prev != nil; p = p.prev {
					out = append([]S{p.state}, out...)
				}
				return out
			}
			queue = append(queue, n)
		}
	}
	return nil
}
