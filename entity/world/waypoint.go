package world

import (
	"fmt"

	"github.com/tsinghua-fib-lab/navstack/entity"
)

// Waypoint 车道上某个s坐标处的路点快照
type Waypoint struct {
	lane      *Lane
	s         float64
	transform entity.Transform
}

var _ entity.IWaypoint = (*Waypoint)(nil)

func newWaypoint(lane *Lane, s float64) *Waypoint {
	return &Waypoint{lane: lane, s: s, transform: lane.TransformByS(s)}
}

func (w *Waypoint) String() string {
	return fmt.Sprintf("Waypoint{lane=%d s=%.2f %v}", w.lane.id, w.s, w.transform)
}

// Lane 路点所在车道
func (w *Waypoint) Lane() *Lane { return w.lane }

// S 路点在车道上的s坐标
func (w *Waypoint) S() float64 { return w.s }

func (w *Waypoint) Transform() entity.Transform   { return w.transform }
func (w *Waypoint) RoadID() int32                 { return w.lane.road }
func (w *Waypoint) SectionID() int32              { return w.lane.section }
func (w *Waypoint) LaneID() int32                 { return w.lane.lane }
func (w *Waypoint) LaneWidth() float64            { return w.lane.width }
func (w *Waypoint) LaneType() entity.LaneType     { return w.lane.typ }
func (w *Waypoint) LaneChange() entity.LaneChange { return w.lane.laneChange }
func (w *Waypoint) IsJunction() bool              { return w.lane.junction }

// Next 沿行驶方向前进distance后的路点
// 说明：跨越车道终点时沿每一条后继车道继续前进，因此路口处可能返回多个分支；到达路网尽头时返回空
func (w *Waypoint) Next(distance float64) []entity.IWaypoint {
	res := make([]entity.IWaypoint, 0, 1)
	collectNext(w.lane, w.s+distance, &res, 0)
	return res
}

// maxNextDepth 防止零长度环路导致无限递归
const maxNextDepth = 64

func collectNext(lane *Lane, s float64, res *[]entity.IWaypoint, depth int) {
	if s <= lane.length {
		*res = append(*res, newWaypoint(lane, s))
		return
	}
	if depth >= maxNextDepth {
		return
	}
	for _, succ := range lane.successors {
		collectNext(succ, s-lane.length, res, depth+1)
	}
}

// LeftLane 左侧相邻车道上按比例投影的路点
func (w *Waypoint) LeftLane() entity.IWaypoint {
	if w.lane.left == nil {
		return nil
	}
	return newWaypoint(w.lane.left, w.lane.left.ProjectFromLane(w.lane, w.s))
}

// RightLane 右侧相邻车道上按比例投影的路点
func (w *Waypoint) RightLane() entity.IWaypoint {
	if w.lane.right == nil {
		return nil
	}
	return newWaypoint(w.lane.right, w.lane.right.ProjectFromLane(w.lane, w.s))
}
