package route

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/spatial/r3"
)

// graphNode 导出图中的节点，DOT中带坐标属性
type graphNode struct {
	id     int64
	vertex r3.Vec
}

func (n graphNode) ID() int64 { return n.id }

func (n graphNode) Attributes() []encoding.Attribute {
	return []encoding.Attribute{
		{Key: "label", Value: fmt.Sprintf("%d (%.0f,%.0f,%.0f)", n.id, n.vertex.X, n.vertex.Y, n.vertex.Z)},
	}
}

// graphEdge 导出图中的边，权重为边长度，DOT中带驾驶动作属性
type graphEdge struct {
	from, to graphNode
	e        *Edge
}

func (e graphEdge) From() graph.Node         { return e.from }
func (e graphEdge) To() graph.Node           { return e.to }
func (e graphEdge) ReversedEdge() graph.Edge { return graphEdge{from: e.to, to: e.from, e: e.e} }
func (e graphEdge) Weight() float64          { return float64(e.e.Length) }

func (e graphEdge) Attributes() []encoding.Attribute {
	attrs := []encoding.Attribute{
		{Key: "label", Value: e.e.Type.String()},
		{Key: "weight", Value: fmt.Sprint(e.e.Length)},
	}
	if e.e.Intersection {
		attrs = append(attrs, encoding.Attribute{Key: "style", Value: "dashed"})
	}
	return attrs
}

// Graph 以gonum有向带权图的形式导出路网图
// 说明：节点ID与规划器内的节点ID一致；起止节点相同的边无法表示，被忽略
func (p *GlobalPlanner) Graph() *simple.WeightedDirectedGraph {
	g := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	nodes := make([]graphNode, len(p.nodes))
	for i, n := range p.nodes {
		nodes[i] = graphNode{id: int64(n.ID), vertex: n.Vertex}
		g.AddNode(nodes[i])
	}
	for _, e := range p.edges {
		if e.From == e.To {
			log.Debugf("skip self loop edge on node %d", e.From)
			continue
		}
		g.SetWeightedEdge(graphEdge{from: nodes[e.From], to: nodes[e.To], e: e})
	}
	return g
}

// MarshalDOT 将路网图输出为Graphviz DOT格式
func (p *GlobalPlanner) MarshalDOT(name string) ([]byte, error) {
	return dot.Marshal(p.Graph(), name, "", "  ")
}
