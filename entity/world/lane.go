package world

import (
	"fmt"
	"math"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/navstack/entity"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	defaultSpeedLimit = 30.0 // 缺省限速（km/h）
)

// Lane 车道实体
// 功能：以中心线折线表示的车道，提供s坐标与xyz坐标之间的转换以及拓扑关系
type Lane struct {
	id         int32
	road       int32
	section    int32
	lane       int32
	typ        entity.LaneType
	laneChange entity.LaneChange
	junction   bool
	width      float64
	speedLimit float64

	line           []geometry.Point             // 中心线折线
	lineLengths    []float64                    // 中心线折线点对应的累计长度
	lineDirections []geometry.PolylineDirection // 中心线折线段每一段的方向（atan2）
	length         float64                      // 以中心线的长度为车道长度

	successors []*Lane // 后继车道（按输入顺序）
	left       *Lane   // 左侧相邻车道
	right      *Lane   // 右侧相邻车道
}

// newLane 根据输入数据创建车道，拓扑关系在所有车道创建后再建立
func newLane(base LaneData) (*Lane, error) {
	if len(base.CenterLine) < 2 {
		return nil, fmt.Errorf("lane %d: center line needs at least 2 points", base.ID)
	}
	if base.Width <= 0 {
		return nil, fmt.Errorf("lane %d: width must be positive", base.ID)
	}
	typ, err := parseLaneType(base.Type)
	if err != nil {
		return nil, fmt.Errorf("lane %d: %w", base.ID, err)
	}
	lc, err := parseLaneChange(base.LaneChange)
	if err != nil {
		return nil, fmt.Errorf("lane %d: %w", base.ID, err)
	}
	l := &Lane{
		id:         base.ID,
		road:       base.Road,
		section:    base.Section,
		lane:       base.Lane,
		typ:        typ,
		laneChange: lc,
		junction:   base.Junction,
		width:      base.Width,
		speedLimit: base.SpeedLimit,
	}
	if l.speedLimit <= 0 {
		l.speedLimit = defaultSpeedLimit
	}
	l.line = lo.Map(base.CenterLine, func(p Point, _ int) geometry.Point {
		return geometry.Point{X: p.X, Y: p.Y, Z: p.Z}
	})
	l.lineLengths = geometry.GetPolylineLengths2D(l.line)
	l.length = l.lineLengths[len(l.lineLengths)-1]
	if l.length <= 0 {
		return nil, fmt.Errorf("lane %d: zero length center line", base.ID)
	}
	l.lineDirections = geometry.GetPolylineDirections(l.line)
	return l, nil
}

func (l *Lane) String() string {
	return fmt.Sprintf("Lane %d (road %d section %d lane %d)", l.id, l.road, l.section, l.lane)
}

// ID 获取车道全局ID
func (l *Lane) ID() int32 {
	return l.id
}

// Length 车道长度
func (l *Lane) Length() float64 {
	return l.length
}

// Width 车道宽度
func (l *Lane) Width() float64 {
	return l.width
}

// SpeedLimit 限速（km/h）
func (l *Lane) SpeedLimit() float64 {
	return l.speedLimit
}

// Successors 后继车道
func (l *Lane) Successors() []*Lane {
	return l.successors
}

// 对同一道路内的车道按比例"投影"
func (l *Lane) ProjectFromLane(other *Lane, otherS float64) float64 {
	if l.road != other.road {
		log.Panicf("project from %v to %v in different road", other, l)
	}
	return lo.Clamp(otherS/other.length*l.length, 0, l.length)
}

// 根据本车道s坐标计算切向角度（弧度）
func (l *Lane) DirectionByS(s float64) float64 {
	s = lo.Clamp(s, 0, l.length)
	if i := sort.SearchFloat64s(l.lineLengths, s); i == 0 {
		return l.lineDirections[0].Direction
	} else {
		return l.lineDirections[i-1].Direction
	}
}

// 将当前车道s坐标转换为xyz坐标
func (l *Lane) PositionByS(s float64) r3.Vec {
	s = lo.Clamp(s, 0, l.length)
	var pos geometry.Point
	if i := sort.SearchFloat64s(l.lineLengths, s); i == 0 {
		pos = l.line[0]
	} else {
		sHigh, sLow := l.lineLengths[i], l.lineLengths[i-1]
		k := (s - sLow) / (sHigh - sLow)
		pos = geometry.Blend(l.line[i-1], l.line[i], k)
	}
	return r3.Vec{X: pos.X, Y: pos.Y, Z: pos.Z}
}

// TransformByS 车道上s处的位姿
func (l *Lane) TransformByS(s float64) entity.Transform {
	return entity.Transform{
		Location: l.PositionByS(s),
		Rotation: entity.Rotation{Yaw: l.DirectionByS(s) * 180 / math.Pi},
	}
}

// 将xyz坐标投影到车道折线上，计算出对应的s坐标与平面距离
func (l *Lane) Project(pos r3.Vec) (s float64, distance float64) {
	s = geometry.GetClosestPolylineSToPoint2D(l.line, l.lineLengths, geometry.Point{X: pos.X, Y: pos.Y, Z: pos.Z})
	s = lo.Clamp(s, 0, l.length)
	p := l.PositionByS(s)
	return s, math.Hypot(p.X-pos.X, p.Y-pos.Y)
}
