package similarity

import "math/rand"

// node is one split of a random-projection tree. Leaves hold the raw
// indices they were never split further into; internal nodes hold the
// hyperplane (normal, threshold) used to route a query left or right.
type node struct {
	leaf   []int
	normal []float32

	left  *node
	right *node
}

// buildTree recursively partitions indices until each partition is at most
// leafSize large. The split hyperplane is the perpendicular bisector of two
// randomly chosen points from the partition, exactly the construction Annoy
// uses for its own random-projection trees.
func buildTree(indices []int, vectors [][]float32, rng *rand.Rand) *node {
	if len(indices) <= leafSize {
		return &node{leaf: indices}
	}

	a := indices[rng.Intn(len(indices))]
	b := indices[rng.Intn(len(indices))]
	for b == a && len(indices) > 1 {
		b = indices[rng.Intn(len(indices))]
	}

	normal, threshold := bisector(vectors[a], vectors[b])

	var left, right []int
	for _, i := range indices {
		if dot(vectors[i], normal) < threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	// A degenerate split (all points landed on one side) falls back to a
	// leaf rather than recursing forever.
	if len(left) == 0 || len(right) == 0 {
		return &node{leaf: indices}
	}

	return &node{
		normal: appendThreshold(normal, threshold),
		left:   buildTree(left, vectors, rng),
		right:  buildTree(right, vectors, rng),
	}
}

// appendThreshold packs the split threshold as the final element of the
// normal vector so node stays a single slice field.
func appendThreshold(normal []float32, threshold float32) []float32 {
	return append(normal, threshold)
}

func bisector(a, b []float32) (normal []float32, threshold float32) {
	normal = make([]float32, len(a))
	midpoint := make([]float32, len(a))
	for i := range a {
		normal[i] = a[i] - b[i]
		midpoint[i] = (a[i] + b[i]) / 2
	}
	threshold = dot(midpoint, normal)
	return normal, threshold
}

// candidateLeaf descends a single root-to-leaf path guided by the query
// vector and returns that leaf's indices as approximate neighbour
// candidates.
func candidateLeaf(query []float32, n *node) []int {
	for n.leaf == nil {
		normal := n.normal[:len(n.normal)-1]
		threshold := n.normal[len(n.normal)-1]
		if dot(query, normal) < threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.leaf
}
