// 全局路径规划：由路网拓扑构建有向图，A*搜索节点路径并转换为带驾驶动作的路点序列
package route

import (
	"errors"
	"fmt"

	"github.com/tsinghua-fib-lab/navstack/entity"
	"github.com/tsinghua-fib-lab/navstack/navigation/misc"
	"github.com/tsinghua-fib-lab/navstack/utils/container"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrRouteNotFound 起点与终点之间不存在路径
var ErrRouteNotFound = errors.New("route not found")

// GlobalPlanner 全局路径规划器
// 功能：构建后只读，可被使用同一路网的多个智能体共享
type GlobalPlanner struct {
	m          entity.IMap
	resolution float64

	segments []*segment
	nodes    []Node
	edges    []*Edge
	out      [][]int // 节点ID -> 出边下标（按加入顺序）

	edgeIndex map[[2]int]int     // (from, to) -> 边下标
	idMap     map[vertex]int     // 取整坐标 -> 节点ID
	laneIndex map[laneKey][2]int // 车道三元组 -> 边的起止节点
}

// NewGlobalPlanner 创建全局路径规划器
// 参数：m-路网，resolution-采样间距（m），不大于0时取缺省值
// 算法说明：
// 1. 按采样间距生成拓扑单元的中间路点
// 2. 每个拓扑单元对应一条车道跟随边，取整坐标相同的端点合并为同一节点
// 3. 为出口没有后续边的拓扑单元补出终端边
// 4. 在允许变道的相邻车道之间加入变道边
func NewGlobalPlanner(m entity.IMap, resolution float64) *GlobalPlanner {
	if resolution <= 0 {
		resolution = DefaultSamplingResolution
	}
	p := &GlobalPlanner{
		m:          m,
		resolution: resolution,
		edgeIndex:  make(map[[2]int]int),
		idMap:      make(map[vertex]int),
		laneIndex:  make(map[laneKey][2]int),
	}
	p.segments = buildTopology(m.Topology(), resolution)
	p.buildGraph()
	p.findLooseEnds()
	p.laneChangeLink()
	log.Infof("road graph: %d nodes, %d edges, sampling resolution %.2f", len(p.nodes), len(p.edges), resolution)
	return p
}

// Resolution 采样间距
func (p *GlobalPlanner) Resolution() float64 {
	return p.resolution
}

// Nodes 全部节点
func (p *GlobalPlanner) Nodes() []Node {
	return p.nodes
}

// Edges 全部边（按加入顺序）
func (p *GlobalPlanner) Edges() []*Edge {
	return p.edges
}

// Edge 按起止节点获取边
func (p *GlobalPlanner) Edge(from, to int) (*Edge, bool) {
	i, ok := p.edgeIndex[[2]int{from, to}]
	if !ok {
		return nil, false
	}
	return p.edges[i], true
}

// heuristic A*启发函数：节点坐标的欧氏距离
func (p *GlobalPlanner) heuristic(a, b int) float64 {
	return misc.Distance(p.nodes[a].Vertex, p.nodes[b].Vertex)
}

type searchItem struct {
	node, parent int
	cost         float64
}

// astar A*搜索
// 算法说明：
// 1. 开放集为按 代价+启发值 排序的优先队列，值相同时先入队者优先
// 2. 节点第一次出队时确定其父节点，之后再出队的旧记录直接丢弃
// 3. 邻居按出边加入顺序展开，已入队且代价不更优时不再入队
func (p *GlobalPlanner) astar(source, target int) ([]int, error) {
	type enqueued struct {
		cost, h float64
	}
	queue := container.NewPriorityQueue[searchItem]()
	queue.HeapPush(searchItem{node: source, parent: -1}, 0)
	opened := make(map[int]enqueued)
	explored := make(map[int]int)
	for queue.Len() > 0 {
		cur, _ := queue.HeapPop()
		if cur.node == target {
			path := []int{cur.node}
			for n := cur.parent; n != -1; n = explored[n] {
				path = append(path, n)
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path, nil
		}
		if parent, ok := explored[cur.node]; ok {
			if parent == -1 {
				continue
			}
			if q := opened[cur.node]; q.cost < cur.cost {
				continue
			}
		}
		explored[cur.node] = cur.parent
		for _, e := range p.successors(cur.node) {
			cost := cur.cost + float64(e.Length)
			var h float64
			if q, ok := opened[e.To]; ok {
				if q.cost <= cost {
					continue
				}
				h = q.h
			} else {
				h = p.heuristic(e.To, target)
			}
			opened[e.To] = enqueued{cost: cost, h: h}
			queue.HeapPush(searchItem{node: e.To, parent: cur.node, cost: cost}, cost+h)
		}
	}
	return nil, fmt.Errorf("%w: from node %d to node %d", ErrRouteNotFound, source, target)
}

// PathSearch 搜索起点到终点的节点路径
// 参数：origin-起点位置，destination-终点位置
// 返回：节点ID序列，最后追加了终点所在边的终点节点；定位失败时返回ErrLocalization，不连通时返回ErrRouteNotFound
// 说明：同一路网上相同的输入总是得到相同的结果
func (p *GlobalPlanner) PathSearch(origin, destination r3.Vec) ([]int, error) {
	start, err := p.localize(origin)
	if err != nil {
		return nil, fmt.Errorf("origin: %w", err)
	}
	end, err := p.localize(destination)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}
	path, err := p.astar(start[0], end[0])
	if err != nil {
		return nil, err
	}
	return append(path, end[1]), nil
}
