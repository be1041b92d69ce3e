package route

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/navstack/entity"
	"github.com/tsinghua-fib-lab/navstack/navigation/misc"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// 缺省采样间距（m）
	DefaultSamplingResolution = 2.0
	// 求解孤立端点时沿车道前进的最大步数
	maxLooseEndSteps = 10000
)

// vertex 取整后的端点坐标，用于合并相接车道的端点
type vertex struct {
	X, Y, Z float64
}

func roundVertex(loc r3.Vec) vertex {
	return vertex{X: math.Round(loc.X), Y: math.Round(loc.Y), Z: math.Round(loc.Z)}
}

func (v vertex) vec() r3.Vec {
	return r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

// laneKey 车道三元组(road, section, lane)
type laneKey struct {
	road, section, lane int32
}

func keyOf(wp entity.IWaypoint) laneKey {
	return laneKey{road: wp.RoadID(), section: wp.SectionID(), lane: wp.LaneID()}
}

// segment 拓扑单元：入口、出口与按采样间距生成的中间路点
type segment struct {
	entry, exit       entity.IWaypoint
	entryKey, exitKey vertex
	path              []entity.IWaypoint
}

// Node 图节点
type Node struct {
	ID     int
	Vertex r3.Vec
}

// Edge 图中的有向边
type Edge struct {
	From, To int
	Length   int                // 路径点数+1，变道边为0
	Path     []entity.IWaypoint // 不含入口与出口的中间路点
	Entry    entity.IWaypoint
	Exit     entity.IWaypoint
	// 入口切向、出口切向、入口指向出口的单位向量，孤立端点补出的边与变道边没有该信息
	EntryVector *r3.Vec
	ExitVector  *r3.Vec
	NetVector   *r3.Vec

	Intersection bool
	Type         entity.RoadOption
	// 变道目标路点（仅变道边）
	ChangeWaypoint entity.IWaypoint
}

// buildTopology 按采样间距生成每个拓扑单元的中间路点
// 算法说明：
// 1. 入口与出口距离大于采样间距时，从入口开始反复前进一个采样间距，直到与出口的距离不超过采样间距
// 2. 否则只取入口前方一个采样间距处的路点，不存在时跳过该拓扑单元
// 说明：各拓扑单元互相独立，并行计算后保持输入顺序
func buildTopology(topology []entity.TopologySegment, resolution float64) []*segment {
	segments := parallel.GoMap(topology, func(ts entity.TopologySegment) *segment {
		seg := &segment{
			entry:    ts.Entry,
			exit:     ts.Exit,
			entryKey: roundVertex(ts.Entry.Transform().Location),
			exitKey:  roundVertex(ts.Exit.Transform().Location),
		}
		end := ts.Exit.Transform().Location
		if misc.Distance(ts.Entry.Transform().Location, end) > resolution {
			next := ts.Entry.Next(resolution)
			if len(next) == 0 {
				return seg
			}
			w := next[0]
			for misc.Distance(w.Transform().Location, end) > resolution {
				seg.path = append(seg.path, w)
				next := w.Next(resolution)
				if len(next) == 0 {
					break
				}
				w = next[0]
			}
		} else {
			next := ts.Entry.Next(resolution)
			if len(next) == 0 {
				return nil
			}
			seg.path = append(seg.path, next[0])
		}
		return seg
	})
	res := lo.Filter(segments, func(s *segment, _ int) bool { return s != nil })
	if gap := len(segments) - len(res); gap > 0 {
		log.Debugf("skip %d topology segments without forward waypoint", gap)
	}
	return res
}

// addNode 加入新节点，返回节点ID
func (p *GlobalPlanner) addNode(v r3.Vec) int {
	id := len(p.nodes)
	p.nodes = append(p.nodes, Node{ID: id, Vertex: v})
	p.out = append(p.out, nil)
	return id
}

// nodeOf 按取整坐标获取或创建节点
func (p *GlobalPlanner) nodeOf(v vertex) int {
	if id, ok := p.idMap[v]; ok {
		return id
	}
	id := p.addNode(v.vec())
	p.idMap[v] = id
	return id
}

// addEdge 加入有向边，起止节点相同的边已存在时覆盖
func (p *GlobalPlanner) addEdge(e *Edge) {
	k := [2]int{e.From, e.To}
	if i, ok := p.edgeIndex[k]; ok {
		log.Debugf("replace edge %d->%d", e.From, e.To)
		p.edges[i] = e
		return
	}
	p.edgeIndex[k] = len(p.edges)
	p.out[e.From] = append(p.out[e.From], len(p.edges))
	p.edges = append(p.edges, e)
}

// mustEdge 按起止节点获取边，不存在时panic
func (p *GlobalPlanner) mustEdge(from, to int) *Edge {
	i, ok := p.edgeIndex[[2]int{from, to}]
	if !ok {
		log.Panicf("edge %d->%d not found", from, to)
	}
	return p.edges[i]
}

// successors 节点的全部出边（按加入顺序）
func (p *GlobalPlanner) successors(id int) []*Edge {
	return lo.Map(p.out[id], func(i int, _ int) *Edge { return p.edges[i] })
}

// buildGraph 由拓扑单元构建图与两个索引
func (p *GlobalPlanner) buildGraph() {
	for _, seg := range p.segments {
		n1, n2 := p.nodeOf(seg.entryKey), p.nodeOf(seg.exitKey)
		p.laneIndex[keyOf(seg.entry)] = [2]int{n1, n2}
		entryLoc, exitLoc := seg.entry.Transform().Location, seg.exit.Transform().Location
		entryVec := seg.entry.Transform().ForwardVector()
		exitVec := seg.exit.Transform().ForwardVector()
		netVec := misc.UnitVector(entryLoc, exitLoc)
		p.addEdge(&Edge{
			From:         n1,
			To:           n2,
			Length:       len(seg.path) + 1,
			Path:         seg.path,
			Entry:        seg.entry,
			Exit:         seg.exit,
			EntryVector:  &entryVec,
			ExitVector:   &exitVec,
			NetVector:    &netVec,
			Intersection: seg.entry.IsJunction(),
			Type:         entity.RoadOptionLaneFollow,
		})
	}
}

// findLooseEnds 为出口所在车道没有对应边的拓扑单元补出终端节点与边
// 算法说明：从出口沿车道不断前进一个采样间距，直到车道三元组变化或到达路网尽头，至少前进一步时才加入新边
func (p *GlobalPlanner) findLooseEnds() {
	count := 0
	for _, seg := range p.segments {
		k := keyOf(seg.exit)
		if _, ok := p.laneIndex[k]; ok {
			continue
		}
		var path []entity.IWaypoint
		next := seg.exit.Next(p.resolution)
		for i := 0; i < maxLooseEndSteps && len(next) > 0 && keyOf(next[0]) == k; i++ {
			path = append(path, next[0])
			next = next[0].Next(p.resolution)
		}
		if len(path) == 0 {
			continue
		}
		n1 := p.idMap[seg.exitKey]
		n2 := p.addNode(path[len(path)-1].Transform().Location)
		p.laneIndex[k] = [2]int{n1, n2}
		p.addEdge(&Edge{
			From:         n1,
			To:           n2,
			Length:       len(path) + 1,
			Path:         path,
			Entry:        seg.exit,
			Exit:         path[len(path)-1],
			Intersection: seg.exit.IsJunction(),
			Type:         entity.RoadOptionLaneFollow,
		})
		count++
	}
	if count > 0 {
		log.Debugf("add %d loose end edges", count)
	}
}

// localize 获取位置所在车道对应的边的起止节点
func (p *GlobalPlanner) localize(location r3.Vec) ([2]int, error) {
	wp, err := p.m.Waypoint(location, entity.LaneTypeDriving)
	if err != nil {
		return [2]int{}, err
	}
	e, ok := p.laneIndex[keyOf(wp)]
	if !ok {
		return [2]int{}, fmt.Errorf("%w: lane (%d,%d,%d) is not in the road graph", entity.ErrLocalization, wp.RoadID(), wp.SectionID(), wp.LaneID())
	}
	return e, nil
}

// laneChangeLink 在允许变道的相邻车道之间加入零长度的变道边
// 算法说明：
// 1. 只处理入口不在路口内的拓扑单元，按路径顺序扫描中间路点
// 2. 路点允许向右（左）变道、相邻车道可行驶且在同一道路内时，定位相邻车道对应的边，从本单元入口节点连向其起点
// 3. 每个拓扑单元最多加入一条左变道边与一条右变道边
func (p *GlobalPlanner) laneChangeLink() {
	count := 0
	for _, seg := range p.segments {
		if seg.entry.IsJunction() {
			continue
		}
		leftFound, rightFound := false, false
		link := func(wp, target entity.IWaypoint, option entity.RoadOption) bool {
			if target == nil || target.LaneType() != entity.LaneTypeDriving || target.RoadID() != wp.RoadID() {
				return false
			}
			next, err := p.localize(target.Transform().Location)
			if err != nil {
				return false
			}
			p.addEdge(&Edge{
				From:           p.idMap[seg.entryKey],
				To:             next[0],
				Length:         0,
				Entry:          wp,
				Exit:           target,
				Type:           option,
				ChangeWaypoint: target,
			})
			count++
			return true
		}
		for _, wp := range seg.path {
			if !rightFound && wp.LaneChange().AllowRight() {
				rightFound = link(wp, wp.RightLane(), entity.RoadOptionChangeLaneRight)
			}
			if !leftFound && wp.LaneChange().AllowLeft() {
				leftFound = link(wp, wp.LeftLane(), entity.RoadOptionChangeLaneLeft)
			}
			if leftFound && rightFound {
				break
			}
		}
	}
	log.Debugf("add %d lane change edges", count)
}
