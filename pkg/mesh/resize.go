package mesh

import "fmt"

// Resize changes the grid dimensions one column or row at a time.
//
// Growing appends default nodes (location equal to point, white, default
// tangents) along the added axis. Shrinking removes exactly the last column
// or row per unit of decrease. Retained nodes keep their point, location,
// colour and tangent; the only exception is a node that becomes an edge node
// because its outer neighbour was removed, whose newly pinned axis is snapped
// back onto its coordinate.
func (g *Grid) Resize(width, height int) error {
	size := Size{Width: width, Height: height}
	if !size.Valid() {
		return fmt.Errorf("%w: got %s", ErrInvalidGridSize, size)
	}

	for g.size.Width < width {
		g.addColumn()
	}
	for g.size.Width > width {
		g.removeColumn()
	}
	for g.size.Height < height {
		g.addRow()
	}
	for g.size.Height > height {
		g.removeRow()
	}
	return nil
}

func (g *Grid) addColumn() {
	w, h := g.size.Width, g.size.Height
	nodes := make([]Node, 0, (w+1)*h)
	for y := range h {
		nodes = append(nodes, g.nodes[y*w:(y+1)*w]...)
		nodes = append(nodes, NewNode(Point{w, y}))
	}
	g.nodes = nodes
	g.size.Width++
}

func (g *Grid) removeColumn() {
	w, h := g.size.Width, g.size.Height
	nodes := make([]Node, 0, (w-1)*h)
	for y := range h {
		row := g.nodes[y*w : y*w+w-1]
		nodes = append(nodes, row...)
		last := &nodes[len(nodes)-1]
		last.Location.X = float64(last.Point.X)
	}
	g.nodes = nodes
	g.size.Width--
}

func (g *Grid) addRow() {
	w, h := g.size.Width, g.size.Height
	for x := range w {
		g.nodes = append(g.nodes, NewNode(Point{x, h}))
	}
	g.size.Height++
}

func (g *Grid) removeRow() {
	w, h := g.size.Width, g.size.Height
	g.nodes = g.nodes[:w*(h-1)]
	for x := range w {
		n := &g.nodes[w*(h-2)+x]
		n.Location.Y = float64(n.Point.Y)
	}
	g.size.Height--
}
