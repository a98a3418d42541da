package schedule

// Normalize assigns a key to every node lacking one and returns all nodes in
// pre-order. Existing keys are never changed, so repeated calls agree.
func Normalize(f Forest) []*Node {
	flat := Flatten(f)
	for _, n := range flat {
		if n.Key == "" {
			n.Key = n.Origin.Key()
		}
	}
	return flat
}

// Flatten returns nodes and all their descendants in pre-order.
func Flatten(nodes []*Node) []*Node {
	return appendFlat(nil, nodes)
}

func appendFlat(out []*Node, nodes []*Node) []*Node {
	for _, n := range nodes {
		out = append(out, n)
		out = appendFlat(out, n.Children)
	}
	return out
}

// DuplicateKeys returns every key used by more than one node, in order of
// first appearance.
func DuplicateKeys(flat []*Node) []string {
	counts := make(map[string]int, len(flat))
	var order []string
	for _, n := range flat {
		if counts[n.Key] == 0 {
			order = append(order, n.Key)
		}
		counts[n.Key]++
	}
	var dups []string
	for _, k := range order {
		if counts[k] > 1 {
			dups = append(dups, k)
		}
	}
	return dups
}

func indexByKey(flat []*Node) map[string]*Node {
	idx := make(map[string]*Node, len(flat))
	for _, n := range flat {
		if _, ok := idx[n.Key]; !ok {
			idx[n.Key] = n
		}
	}
	return idx
}
