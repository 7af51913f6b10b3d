package huffman

import (
	"container/heap"
)

// node is a Huffman tree node. Leaves carry a symbol, internal nodes only a
// combined frequency. seq is the creation order used to break frequency ties.
type node struct {
	freq   int
	seq    int
	symbol byte
	leaf   bool
	left   *node
	right  *node
}

// nodeHeap is a min-heap ordered by (freq, seq).
type nodeHeap []*node

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool {
	if h[i].freq != h[j].freq {
		return h[i].freq < h[j].freq
	}
	return h[i].seq < h[j].seq
}

func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *nodeHeap) Push(x interface{}) { *h = append(*h, x.(*node)) }

func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*h = old[:len(old)-1]
	return n
}

// buildTree builds the Huffman tree for data. Leaves are numbered in
// ascending symbol order and internal nodes in creation order, so equal
// inputs always produce the same tree. Returns nil for empty input.
func buildTree(data []byte) *node {
	var freq [256]int
	for _, b := range data {
		freq[b]++
	}

	h := make(nodeHeap, 0, 256)
	seq := 0
	for sym, f := range freq {
		if f == 0 {
			continue
		}
		h = append(h, &node{freq: f, seq: seq, symbol: byte(sym), leaf: true})
		seq++
	}
	if len(h) == 0 {
		return nil
	}
	heap.Init(&h)

	for h.Len() > 1 {
		left := heap.Pop(&h).(*node)
		right := heap.Pop(&h).(*node)
		heap.Push(&h, &node{
			freq:  left.freq + right.freq,
			seq:   seq,
			left:  left,
			right: right,
		})
		seq++
	}

	return h[0]
}

// generateCodes walks the tree depth-first, appending "0" for left and "1"
// for right branches. A lone leaf at the root gets the code "0".
func generateCodes(root *node) Code {
	codes := make(Code)
	if root == nil {
		return codes
	}

	var walk func(n *node, prefix []byte)
	walk = func(n *node, prefix []byte) {
		if n.leaf {
			if len(prefix) == 0 {
				codes[n.symbol] = "0"
				return
			}
			codes[n.symbol] = string(prefix)
			return
		}
		walk(n.left, append(prefix, '0'))
		walk(n.right, append(prefix, '1'))
	}
	walk(root, make([]byte, 0, 32))

	return codes
}

// decodeNode is a node of the decoding trie rebuilt from a code table.
type decodeNode struct {
	children [2]*decodeNode
	symbol   byte
	leaf     bool
}

// buildDecodeTrie rebuilds a binary trie from codes. It fails when a code is
// empty, contains characters other than '0' and '1', or is a prefix of
// another code.
func buildDecodeTrie(codes Code) (*decodeNode, error) {
	root := &decodeNode{}
	for sym := 0; sym < 256; sym++ {
		code, ok := codes[byte(sym)]
		if !ok {
			continue
		}
		if code == "" {
			return nil, compressionErrorf("empty code for symbol %d", sym)
		}

		n := root
		for i := 0; i < len(code); i++ {
			var bit int
			switch code[i] {
			case '0':
				bit = 0
			case '1':
				bit = 1
			default:
				return nil, compressionErrorf("code for symbol %d contains %q", sym, code[i])
			}
			if n.leaf {
				return nil, compressionErrorf("code table is not prefix-free at symbol %d", sym)
			}
			if n.children[bit] == nil {
				n.children[bit] = &decodeNode{}
			}
			n = n.children[bit]
		}
		if n.leaf || n.children[0] != nil || n.children[1] != nil {
			return nil, compressionErrorf("code table is not prefix-free at symbol %d", sym)
		}
		n.leaf = true
		n.symbol = byte(sym)
	}
	return root, nil
}
