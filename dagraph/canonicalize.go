// SPDX-License-Identifier: MIT
package dagraph

import "reflect"

// Canonicalize is the duplicate reducer: it repeatedly partitions nodes by a
// partial structural hash, merges exact duplicates into the numerically
// smallest surviving id, and rewrites every reference to a collapsed node
// throughout the graph. It is grounded on the original implementation's
// Graph::RemoveDuplicates pass (spec.md §4.5): partial-hash bucketing keeps
// the full O(n^2) duplicate test confined to nodes that could plausibly
// match, and the whole pass repeats until a round removes nothing, bounded
// by a safety cap equal to the graph's node count at the start of the call
// (the node count strictly decreases each round that removes anything, so
// this cap can never be exhausted by a correct implementation — it exists
// only to fail loudly instead of looping forever if that invariant is ever
// violated by a future change).
func (g *Graph) Canonicalize() {
	g.mu.Lock()
	defer g.mu.Unlock()

	cap := len(g.nodes)
	for round := 0; round <= cap; round++ {
		if !g.canonicalizeRound() {
			return
		}
	}
	panic("dagraph: Canonicalize did not converge within its safety cap")
}

// canonicalizeRound performs one bucket-merge pass and reports whether any
// node was removed.
func (g *Graph) canonicalizeRound() bool {
	buckets := make(map[uint64][]ID)
	for id, n := range g.nodes {
		h := partialHash(n)
		buckets[h] = append(buckets[h], id)
	}

	removedAny := false
	for _, ids := range buckets {
		if len(ids) < 2 {
			continue
		}

		// Re-check survivorship as we go: an id may have been deleted
		// earlier in this same bucket.
		for i := 0; i < len(ids); i++ {
			a := ids[i]
			na, ok := g.nodes[a]
			if !ok {
				continue
			}
			for j := i + 1; j < len(ids); j++ {
				b := ids[j]
				nb, ok := g.nodes[b]
				if !ok {
					continue
				}

				if !areDuplicate(na, nb) {
					continue
				}

				survivor, loser := a, b
				if b < a {
					survivor, loser = b, a
				}

				g.collapse(survivor, loser)
				removedAny = true

				if loser == a {
					// a itself was removed; stop comparing it further.
					break
				}
			}
		}
	}

	return removedAny
}

// partialHash is an order-sensitive hash over {parents, kind, object kind},
// used only to bucket candidates before the full duplicate test — two
// duplicate nodes always land in the same bucket, but a bucket collision
// does not imply duplication.
func partialHash(n *Node) uint64 {
	const prime = 1099511628211
	h := uint64(14695981039346656037)

	h = mix(h, uint64(n.Kind))
	for _, p := range n.Parents {
		h = mix(h, uint64(p))
	}
	if n.Object != nil {
		for _, b := range []byte(n.Object.ObjectKind()) {
			h = mix(h, uint64(b))
		}
	}

	return h * prime
}

func mix(h, v uint64) uint64 {
	const prime = 1099511628211
	h ^= v
	h *= prime
	return h
}

// areDuplicate implements spec.md §4.5's duplicate predicate: identical
// parent sequence, identical kind, identical kind-parameters, identical
// attached-object value, identical storage relations, identical branch
// targets. Split into four named helpers (sameParents, sameKindParams,
// sameObject, sameStorageUsers) rather than one monolithic check, each independently
// testable — see DESIGN.md.
func areDuplicate(a, b *Node) bool {
	if a.Kind != b.Kind {
		return false
	}
	if !sameParents(a, b) {
		return false
	}
	if !sameKindParams(a, b) {
		return false
	}
	if !sameObject(a, b) {
		return false
	}
	if a.StoredIn != b.StoredIn {
		return false
	}
	if !sameStorageUsers(a, b) {
		return false
	}
	if a.BranchTrue != b.BranchTrue || a.BranchFalse != b.BranchFalse {
		return false
	}

	return true
}

// sameStorageUsers compares the used_as_storage_by side of the storage
// relation. StoredIn alone does not distinguish two otherwise identical
// value leaves that serve as separate loop-state buffers: both have
// StoredIn == NoID, and the only structural difference is which node stores
// into each of them.
func sameStorageUsers(a, b *Node) bool {
	if len(a.UsedAsStorageBy) != len(b.UsedAsStorageBy) {
		return false
	}
	for id := range a.UsedAsStorageBy {
		if !b.UsedAsStorageBy[id] {
			return false
		}
	}

	return true
}

func sameParents(a, b *Node) bool {
	if len(a.Parents) != len(b.Parents) {
		return false
	}
	for i := range a.Parents {
		if a.Parents[i] != b.Parents[i] {
			return false
		}
	}

	return true
}

func sameKindParams(a, b *Node) bool {
	return reflect.DeepEqual(a.Params, b.Params)
}

func sameObject(a, b *Node) bool {
	if a.Object == nil || b.Object == nil {
		return a.Object == nil && b.Object == nil
	}

	return a.Object.Equal(b.Object)
}

// collapse merges loser into survivor: survivor's children absorb loser's
// children, loser is removed from the graph, and every occurrence of
// loser's id anywhere in the graph (parent sequences, child sets, branch
// targets, storage relations, both directions) is rewritten to survivor.
func (g *Graph) collapse(survivor, loser ID) {
	s := g.nodes[survivor]
	l := g.nodes[loser]

	for c := range l.Children {
		if c != survivor {
			s.Children[c] = true
		}
	}
	delete(s.Children, loser)

	for _, n := range g.nodes {
		for i, p := range n.Parents {
			if p == loser {
				n.Parents[i] = survivor
			}
		}

		if n.Children[loser] {
			delete(n.Children, loser)
			if n.ID != survivor {
				n.Children[survivor] = true
			}
		}

		if n.BranchTrue == loser {
			n.BranchTrue = survivor
		}
		if n.BranchFalse == loser {
			n.BranchFalse = survivor
		}

		if n.StoredIn == loser {
			n.StoredIn = survivor
		}

		if n.UsedAsStorageBy[loser] {
			delete(n.UsedAsStorageBy, loser)
			if n.ID != survivor {
				n.UsedAsStorageBy[survivor] = true
			}
		}
	}

	for id := range l.UsedAsStorageBy {
		if id != survivor {
			s.UsedAsStorageBy[id] = true
		}
	}

	g.deleteNode(loser)
}
