package fspt

// Kind tags a Node as an inner (split) node or a leaf.
type Kind uint8

const (
	KindLeaf Kind = iota
	KindInner
)

func (k Kind) String() string {
	if k == KindInner {
		return "inner"
	}
	return "leaf"
}

// RefusalCause records why fitting stopped at a leaf. CauseNone means the
// leaf could have split further but the criterion accepted a low-but-valid
// gain, or the tree is trivially a single root.
type RefusalCause uint8

const (
	CauseNone RefusalCause = iota
	CauseNoSample
	CauseMinSamples
	CauseMaxDepth
	CauseMinVolume
	CauseMinLength
	CauseMaxCount
	CauseUniformity
	CauseUnknown
)

var causeNames = [...]string{
	"none", "no_sample", "min_samples", "max_depth", "min_volume",
	"min_length", "max_count", "uniformity", "unknown",
}

func (c RefusalCause) String() string {
	if int(c) < len(causeNames) {
		return causeNames[c]
	}
	return "unknown"
}

// Node is one element of a Tree's arena. Children and parent are indices
// into Tree.nodes (-1 for "none"); this avoids cycles of Go pointers and
// makes save/load a plain pre-order walk of a slice (Design Notes §9 of
// spec.md: arena re-architecture of the teacher's raw-pointer C nodes).
type Node struct {
	kind Kind

	depth    int
	nSamples int
	nEmpty   float32
	volume   float64
	cause    RefusalCause
	parent   int32

	// Inner-only fields.
	splitFeature int
	splitValue   float32
	left, right  int32

	// Leaf-only fields: rowStart/rowEnd bound this leaf's rows in the
	// tree's point matrix (a non-owning view, never copied).
	rowStart, rowEnd int
	score            float32
	lowGainStreak    int
}

// Kind returns whether the node is a leaf or an inner node.
func (n *Node) Kind() Kind { return n.kind }

// Depth returns the node's depth (root is 0).
func (n *Node) Depth() int { return n.depth }

// NSamples returns the number of training points inside the node.
func (n *Node) NSamples() int { return n.nSamples }

// NEmpty returns the effective count of uniform-null reference points.
func (n *Node) NEmpty() float32 { return n.nEmpty }

// Volume returns the node's box volume.
func (n *Node) Volume() float64 { return n.volume }

// Cause returns the refusal cause recorded for a leaf.
func (n *Node) Cause() RefusalCause { return n.cause }

// Score returns the leaf's score, valid only once the tree has been scored
// post-fit. Zero for inner nodes.
func (n *Node) Score() float32 { return n.score }

// rows returns the number of samples covered by a leaf's view.
func (n *Node) rows() int { return n.rowEnd - n.rowStart }
