package sgf

// GameTree is one SGF tree: the main line of nodes plus variations.
type GameTree struct {
	Nodes    []Node
	Children []*GameTree
}

// Node holds SGF properties. A property may carry several values, as in B[aa][bb].
type Node struct {
	Properties map[string][]string
}

type SGF struct {
	Root *GameTree
}

// GameConnect6 is the SGF GM value for Connect6.
const GameConnect6 = "12"
