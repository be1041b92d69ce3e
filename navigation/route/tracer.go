package route

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/navstack/entity"
	"github.com/tsinghua-fib-lab/navstack/navigation/misc"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// 判定为直行的最大转角
	straightThreshold = 35 * math.Pi / 180
	// 变道后在下一条边上前移的路点数
	laneChangeSnapAhead = 5
)

// tracerState 一次路径转换过程中跨节点保持的转向判断状态
type tracerState struct {
	previousDecision    entity.RoadOption
	intersectionEndNode int
}

func newTracerState() *tracerState {
	return &tracerState{previousDecision: entity.RoadOptionVoid, intersectionEndNode: -1}
}

// successiveLastIntersectionEdge 从route[index]开始连续经过的路口内边中的最后一条
// 返回：最后一条路口内边的终点节点（不存在时为-1）与对应的边
func (p *GlobalPlanner) successiveLastIntersectionEdge(index int, route []int) (int, *Edge) {
	lastNode := -1
	var lastEdge *Edge
	for i := index; i < len(route)-1; i++ {
		e := p.mustEdge(route[i], route[i+1])
		if i == index {
			lastEdge = e
		}
		if e.Type == entity.RoadOptionLaneFollow && e.Intersection {
			lastEdge = e
			lastNode = route[i+1]
		} else {
			break
		}
	}
	return lastNode, lastEdge
}

// turnDecision 判断route[index]到route[index+1]的驾驶动作
// 算法说明：
// 1. 仍处于上一次判定的路口内时沿用上一次的动作，避免路口被拆成多条边时动作来回变化
// 2. 由路段驶入路口时，找到连续路口内边的最后一条，比较驶入边与驶出边的出口切向，转角小于35度为直行
// 3. 否则与同一节点其他车道跟随分支的叉积比较，小于全部分支为左转，大于全部分支为右转
// 4. 不是严格的极值时按叉积符号判断，叉积为0时取边自身的类型
// 5. 其余情况取边自身的类型
func (p *GlobalPlanner) turnDecision(index int, route []int, state *tracerState) entity.RoadOption {
	current := route[index]
	next := route[index+1]
	nextEdge := p.mustEdge(current, next)
	if index == 0 {
		state.previousDecision = nextEdge.Type
		return nextEdge.Type
	}
	previous := route[index-1]
	decision := nextEdge.Type
	if state.previousDecision != entity.RoadOptionVoid &&
		state.intersectionEndNode >= 0 &&
		state.intersectionEndNode != previous &&
		nextEdge.Type == entity.RoadOptionLaneFollow &&
		nextEdge.Intersection {
		decision = state.previousDecision
	} else {
		state.intersectionEndNode = -1
		currentEdge := p.mustEdge(previous, current)
		calculateTurn := currentEdge.Type == entity.RoadOptionLaneFollow && !currentEdge.Intersection &&
			nextEdge.Type == entity.RoadOptionLaneFollow && nextEdge.Intersection
		if calculateTurn {
			lastNode, tailEdge := p.successiveLastIntersectionEdge(index, route)
			state.intersectionEndNode = lastNode
			if tailEdge != nil {
				nextEdge = tailEdge
			}
			if currentEdge.ExitVector == nil || nextEdge.ExitVector == nil {
				return nextEdge.Type
			}
			cv, nv := *currentEdge.ExitVector, *nextEdge.ExitVector
			var crossList []float64
			for _, e := range p.successors(current) {
				if e.Type != entity.RoadOptionLaneFollow || e.To == route[index+1] || e.NetVector == nil {
					continue
				}
				crossList = append(crossList, r3.Cross(cv, *e.NetVector).Z)
			}
			if len(crossList) == 0 {
				crossList = []float64{0}
			}
			nextCross := r3.Cross(cv, nv).Z
			deviation := misc.AngleBetween(cv, nv)
			switch {
			case deviation < straightThreshold:
				decision = entity.RoadOptionStraight
			case nextCross < lo.Min(crossList):
				decision = entity.RoadOptionLeft
			case nextCross > lo.Max(crossList):
				decision = entity.RoadOptionRight
			case nextCross < 0:
				decision = entity.RoadOptionLeft
			case nextCross > 0:
				decision = entity.RoadOptionRight
			default:
				decision = nextEdge.Type
			}
		}
	}
	state.previousDecision = decision
	return decision
}

// findClosestInList 列表中与给定路点距离最近的下标，列表为空时返回-1
func findClosestInList(wp entity.IWaypoint, list []entity.IWaypoint) int {
	closest, minDistance := -1, math.Inf(1)
	loc := wp.Transform().Location
	for i, w := range list {
		if d := misc.Distance(w.Transform().Location, loc); d < minDistance {
			closest, minDistance = i, d
		}
	}
	return closest
}

// TraceRoute 计算起点到终点的路点序列与对应的驾驶动作
// 参数：origin-起点位置，destination-终点位置
// 返回：路点与驾驶动作序列；起终点无法定位或不连通时返回错误
// 算法说明：
// 1. 变道边：在当前路点输出变道动作，然后跳到目标车道边上最近点之后第5个路点（不超过末尾）再输出一次
// 2. 车道跟随边：从 入口+中间路点+出口 中距离当前路点最近处开始逐点输出
// 3. 到达最后一条边后，与终点距离小于两倍采样间距，或位于终点所在车道且已越过终点最近下标时提前结束
func (p *GlobalPlanner) TraceRoute(origin, destination r3.Vec) ([]entity.RoutePoint, error) {
	route, err := p.PathSearch(origin, destination)
	if err != nil {
		return nil, err
	}
	current, err := p.m.Waypoint(origin, entity.LaneTypeDriving)
	if err != nil {
		return nil, err
	}
	destinationWp, err := p.m.Waypoint(destination, entity.LaneTypeDriving)
	if err != nil {
		return nil, err
	}
	state := newTracerState()
	trace := make([]entity.RoutePoint, 0, len(route)*8)
	for i := 0; i < len(route)-1; i++ {
		option := p.turnDecision(i, route, state)
		e := p.mustEdge(route[i], route[i+1])
		if e.Type != entity.RoadOptionLaneFollow && e.Type != entity.RoadOptionVoid {
			trace = append(trace, entity.RoutePoint{Waypoint: current, Option: option})
			ids, ok := p.laneIndex[keyOf(e.Exit)]
			if !ok {
				return nil, fmt.Errorf("lane change target lane (%d,%d,%d) is not in the road graph", e.Exit.RoadID(), e.Exit.SectionID(), e.Exit.LaneID())
			}
			next := p.mustEdge(ids[0], ids[1])
			if len(next.Path) > 0 {
				closest := findClosestInList(current, next.Path)
				current = next.Path[min(len(next.Path)-1, closest+laneChangeSnapAhead)]
			} else {
				current = next.Exit
			}
			trace = append(trace, entity.RoutePoint{Waypoint: current, Option: option})
			continue
		}
		path := make([]entity.IWaypoint, 0, len(e.Path)+2)
		path = append(path, e.Entry)
		path = append(path, e.Path...)
		path = append(path, e.Exit)
		closest := findClosestInList(current, path)
		for _, wp := range path[closest:] {
			current = wp
			trace = append(trace, entity.RoutePoint{Waypoint: current, Option: option})
			if len(route)-i > 2 {
				continue
			}
			if misc.Distance(wp.Transform().Location, destination) < 2*p.resolution {
				break
			}
			if entity.SameLane(current, destinationWp) {
				if closest > findClosestInList(destinationWp, path) {
					break
				}
			}
		}
	}
	log.Debugf("trace route: %d nodes, %d waypoints", len(route), len(trace))
	return trace, nil
}
