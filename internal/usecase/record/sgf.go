package record

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"connect6_datagen/internal/domain/board"
	"connect6_datagen/internal/domain/sgf"
)

const coordLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// propertyOrder is the fixed order root and move properties are written in.
var propertyOrder = []string{"FF", "GM", "SZ", "PB", "PW", "DT", "RE", "GN", "C", "B", "W"}

// BuildSGF turns a move list into a game tree. Consecutive stones of one
// side share a node, so a Connect6 turn reads B[jj][jk].
func BuildSGF(n int, moves []board.Action, winner board.Player, name string, played time.Time) *sgf.SGF {
	root := sgf.Node{Properties: map[string][]string{
		"FF": {"4"},
		"GM": {sgf.GameConnect6},
		"SZ": {strconv.Itoa(n)},
		"PB": {"heuristic"},
		"PW": {"heuristic"},
		"DT": {played.Format("2006-01-02")},
		"RE": {result(winner)},
	}}
	if name != "" {
		root.Properties["GN"] = []string{name}
	}
	tree := &sgf.GameTree{Nodes: []sgf.Node{root}}

	player := board.PlayerA
	stones := 0
	var current *sgf.Node
	var currentColor string
	for _, a := range moves {
		color := colorOf(player)
		if current == nil || color != currentColor {
			tree.Nodes = append(tree.Nodes, sgf.Node{Properties: map[string][]string{}})
			current = &tree.Nodes[len(tree.Nodes)-1]
			currentColor = color
		}
		current.Properties[color] = append(current.Properties[color], coord(n, a))

		if int(a) == n*n {
			player = player.Opponent()
			continue
		}
		stones++
		if stones%2 != 0 {
			player = player.Opponent()
		}
	}
	return &sgf.SGF{Root: tree}
}

func colorOf(p board.Player) string {
	if p == board.PlayerA {
		return "B"
	}
	return "W"
}

func result(winner board.Player) string {
	switch winner {
	case board.PlayerA:
		return "B+"
	case board.PlayerB:
		return "W+"
	}
	return "0"
}

// coord renders an action as two SGF letters, column first. Pass is empty.
func coord(n int, a board.Action) string {
	if int(a) >= n*n || n > len(coordLetters) {
		return ""
	}
	row, col := int(a)/n, int(a)%n
	return string([]byte{coordLetters[col], coordLetters[row]})
}

// ParseCoord is the inverse of coord.
func ParseCoord(n int, s string) (board.Action, error) {
	if s == "" {
		return board.Action(n * n), nil
	}
	if len(s) != 2 {
		return 0, fmt.Errorf("bad sgf coordinate %q", s)
	}
	col := strings.IndexByte(coordLetters, s[0])
	row := strings.IndexByte(coordLetters, s[1])
	if col < 0 || row < 0 || col >= n || row >= n {
		return 0, fmt.Errorf("sgf coordinate %q outside %dx%d board", s, n, n)
	}
	return board.Action(row*n + col), nil
}

func SerializeSGF(s *sgf.SGF) string {
	var builder strings.Builder
	builder.WriteString("(")
	serializeGameTree(&builder, s.Root)
	builder.WriteString(")")
	return builder.String()
}

func serializeGameTree(builder *strings.Builder, tree *sgf.GameTree) {
	for _, node := range tree.Nodes {
		builder.WriteString(";")

		used := make(map[string]bool)
		for _, key := range propertyOrder {
			if values, ok := node.Properties[key]; ok {
				used[key] = true
				writeProperty(builder, key, values)
			}
		}

		rest := make([]string, 0)
		for key := range node.Properties {
			if !used[key] {
				rest = append(rest, key)
			}
		}
		sort.Strings(rest)
		for _, key := range rest {
			writeProperty(builder, key, node.Properties[key])
		}
	}

	for _, child := range tree.Children {
		builder.WriteString("(")
		serializeGameTree(builder, child)
		builder.WriteString(")")
	}
}

func writeProperty(builder *strings.Builder, key string, values []string) {
	builder.WriteString(key)
	for _, v := range values {
		builder.WriteString("[")
		builder.WriteString(escape(v))
		builder.WriteString("]")
	}
}

func escape(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, "]", `\]`)
}
