package world

import (
	"fmt"
	"math"

	"github.com/tsinghua-fib-lab/navstack/entity"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// 超出车道半宽之外的匹配容差（m），超出则视为离开道路
	localizationMargin = 1.0
)

// Map 内存中的路网，实现entity.IMap
type Map struct {
	lanes   []*Lane         // 按输入顺序
	laneMap map[int32]*Lane // 车道ID到车道的映射
}

var _ entity.IMap = (*Map)(nil)

// NewMap 根据输入数据创建路网
// 算法说明：
// 1. 创建全部车道并计算几何信息
// 2. 建立后继、左右相邻关系，检查引用的车道存在且相邻车道在同一道路内
func NewMap(data MapData) (*Map, error) {
	m := &Map{
		lanes:   make([]*Lane, 0, len(data.Lanes)),
		laneMap: make(map[int32]*Lane, len(data.Lanes)),
	}
	for _, ld := range data.Lanes {
		if _, ok := m.laneMap[ld.ID]; ok {
			return nil, fmt.Errorf("duplicated lane id %d", ld.ID)
		}
		l, err := newLane(ld)
		if err != nil {
			return nil, err
		}
		m.lanes = append(m.lanes, l)
		m.laneMap[l.id] = l
	}
	for i, ld := range data.Lanes {
		l := m.lanes[i]
		for _, sid := range ld.Successors {
			succ, err := m.LaneOrError(sid)
			if err != nil {
				return nil, fmt.Errorf("%v successor: %w", l, err)
			}
			l.successors = append(l.successors, succ)
		}
		side := func(id *int32) (*Lane, error) {
			if id == nil {
				return nil, nil
			}
			n, err := m.LaneOrError(*id)
			if err != nil {
				return nil, err
			}
			if n.road != l.road {
				return nil, fmt.Errorf("%v and its neighbor %v are in different roads", l, n)
			}
			return n, nil
		}
		var err error
		if l.left, err = side(ld.LeftLane); err != nil {
			return nil, err
		}
		if l.right, err = side(ld.RightLane); err != nil {
			return nil, err
		}
	}
	log.Infof("map: %d lanes", len(m.lanes))
	return m, nil
}

// LaneOrError 按ID获取车道
func (m *Map) LaneOrError(id int32) (*Lane, error) {
	if l, ok := m.laneMap[id]; ok {
		return l, nil
	}
	return nil, fmt.Errorf("lane %d not found", id)
}

// Lanes 全部车道
func (m *Map) Lanes() []*Lane {
	return m.lanes
}

// WaypointOnLane 车道上s处的路点
func (m *Map) WaypointOnLane(laneID int32, s float64) (*Waypoint, error) {
	l, err := m.LaneOrError(laneID)
	if err != nil {
		return nil, err
	}
	if s < 0 || s > l.length {
		return nil, fmt.Errorf("s %v out of range [0,%v] on %v", s, l.length, l)
	}
	return newWaypoint(l, s), nil
}

// Waypoint 将位置投影到最近的指定类型车道上
// 说明：距离相同时取输入顺序靠前的车道；距离超过车道半宽加容差时返回ErrLocalization
func (m *Map) Waypoint(location r3.Vec, laneType entity.LaneType) (entity.IWaypoint, error) {
	var best *Lane
	bestS, bestD := 0., math.Inf(1)
	for _, l := range m.lanes {
		if !l.typ.Match(laneType) {
			continue
		}
		s, d := l.Project(location)
		if d < bestD-1e-9 {
			best, bestS, bestD = l, s, d
		}
	}
	if best == nil || bestD > best.width/2+localizationMargin {
		return nil, fmt.Errorf("%w: (%.2f, %.2f, %.2f)", entity.ErrLocalization, location.X, location.Y, location.Z)
	}
	return newWaypoint(best, bestS), nil
}

// Topology 每条行驶车道的起点与终点
func (m *Map) Topology() []entity.TopologySegment {
	res := make([]entity.TopologySegment, 0, len(m.lanes))
	for _, l := range m.lanes {
		if l.typ != entity.LaneTypeDriving {
			continue
		}
		res = append(res, entity.TopologySegment{
			Entry: newWaypoint(l, 0),
			Exit:  newWaypoint(l, l.length),
		})
	}
	return res
}
