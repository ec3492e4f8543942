package internal

// unionFind is a disjoint-set over file ids with path compression and
// union by rank. Each root carries the most conservative confidence and
// the widest similar-kind observed among the pairwise merges that built
// its set, so flattening a root yields the group's final rating directly.
type unionFind struct {
	parent     map[string]string
	rank       map[string]int
	confidence map[string]Confidence
	kind       map[string]SimilarKind
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent:     make(map[string]string),
		rank:       make(map[string]int),
		confidence: make(map[string]Confidence),
		kind:       make(map[string]SimilarKind),
	}
}

func (uf *unionFind) add(id string) {
	if _, ok := uf.parent[id]; !ok {
		uf.parent[id] = id
		uf.confidence[id] = ConfidenceHigh
	}
}

func (uf *unionFind) find(id string) string {
	if uf.parent[id] != id {
		uf.parent[id] = uf.find(uf.parent[id])
	}
	return uf.parent[id]
}

// union merges the sets of a and b, recording the pairwise evidence. The
// surviving root keeps the minimum confidence and the maximum (least
// specific) kind of both sets and of the new pair.
func (uf *unionFind) union(a, b string, confidence Confidence, kind SimilarKind) {
	uf.add(a)
	uf.add(b)

	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		uf.confidence[ra] = minConfidence(uf.confidence[ra], confidence)
		uf.kind[ra] = maxKind(uf.kind[ra], kind)
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
	uf.confidence[ra] = minConfidence(minConfidence(uf.confidence[ra], uf.confidence[rb]), confidence)
	uf.kind[ra] = maxKind(maxKind(uf.kind[ra], uf.kind[rb]), kind)
	delete(uf.confidence, rb)
	delete(uf.kind, rb)
}

// sets flattens the structure into member lists keyed by root, ordered by
// the given id order so output is deterministic.
func (uf *unionFind) sets(order []string) []unionSet {
	members := make(map[string][]string)
	var roots []string
	for _, id := range order {
		if _, ok := uf.parent[id]; !ok {
			continue
		}
		root := uf.find(id)
		if _, seen := members[root]; !seen {
			roots = append(roots, root)
		}
		members[root] = append(members[root], id)
	}

	out := make([]unionSet, 0, len(roots))
	for _, root := range roots {
		out = append(out, unionSet{
			Members:    members[root],
			Confidence: uf.confidence[root],
			Kind:       uf.kind[root],
		})
	}
	return out
}

type unionSet struct {
	Members    []string
	Confidence Confidence
	Kind       SimilarKind
}

// maxKind returns the least specific of two kinds: a set containing both
// burst and panorama evidence is classified by its widest spread.
func maxKind(a, b SimilarKind) SimilarKind {
	if a > b {
		return a
	}
	return b
}
