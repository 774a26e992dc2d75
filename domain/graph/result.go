package graph

// Neighborhood is the result of a bounded breadth-first expansion: the nodes
// reached within the hop limit and the edges connecting them.
type Neighborhood struct {
	nodes []Entity
	edges []Relationship
	hops  map[string]int
}

// NewNeighborhood creates a Neighborhood.
func NewNeighborhood(nodes []Entity, edges []Relationship, hops map[string]int) Neighborhood {
	return Neighborhood{nodes: nodes, edges: edges, hops: hops}
}

// Nodes returns the reached entities, seed included at hop 0.
func (n Neighborhood) Nodes() []Entity { return n.nodes }

// Edges returns the edges between reached entities.
func (n Neighborhood) Edges() []Relationship { return n.edges }

// HopDistance returns the hop distance of an entity from the seed set.
// Returns (0, false) for entities not in the neighborhood.
func (n Neighborhood) HopDistance(entityID string) (int, bool) {
	d, ok := n.hops[entityID]
	return d, ok
}

// Empty reports whether the expansion reached nothing beyond an empty seed.
func (n Neighborhood) Empty() bool {
	return len(n.nodes) == 0
}

// Path is an alternating node/edge sequence from a source entity to a target
// entity, shortest by hop count.
type Path struct {
	nodes []Entity
	edges []Relationship
}

// NewPath creates a Path. len(nodes) is always len(edges)+1.
func NewPath(nodes []Entity, edges []Relationship) Path {
	return Path{nodes: nodes, edges: edges}
}

// Nodes returns the path nodes in order, source first.
func (p Path) Nodes() []Entity { return p.nodes }

// Edges returns the path edges in order.
func (p Path) Edges() []Relationship { return p.edges }

// Length returns the path length in hops.
func (p Path) Length() int { return len(p.edges) }
