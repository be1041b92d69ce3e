package agent

import (
	"math"

	"github.com/tsinghua-fib-lab/navstack/entity"
	"github.com/tsinghua-fib-lab/navstack/navigation/misc"
	"gonum.org/v1/gonum/spatial/r3"
)

// minPathDistance 变道路径各段的最小长度（m）
const minPathDistance = 0.1

// LaneChangeDirection 变道方向
type LaneChangeDirection string

const (
	LaneChangeLeft  LaneChangeDirection = "left"
	LaneChangeRight LaneChangeDirection = "right"
)

// LaneChangeOptions 变道路径的生成参数
type LaneChangeOptions struct {
	Direction    LaneChangeDirection
	SameLane     float64 // 变道前在本车道行驶的距离（m）
	OtherLane    float64 // 变道后在目标车道行驶的距离（m）
	LaneChange   float64 // 变道过程的纵向距离（m）
	Check        bool    // 是否检查车道标线允许变道
	LaneChanges  int     // 连续变道的次数
	StepDistance float64 // 路点间距（m）
}

// DefaultLaneChangeOptions 变道路径的缺省参数
func DefaultLaneChangeOptions(direction LaneChangeDirection) LaneChangeOptions {
	return LaneChangeOptions{
		Direction:    direction,
		SameLane:     10,
		OtherLane:    25,
		LaneChange:   25,
		Check:        true,
		LaneChanges:  1,
		StepDistance: 2,
	}
}

// GenerateLaneChangePath 生成从waypoint出发的变道路径
// 返回：路点与驾驶动作序列；方向非法、路网中断、相邻车道不存在或不可行驶、标线不允许变道（Check时）均返回nil
// 算法说明：
// 1. 本车道上每StepDistance取一个点，累计距离达到SameLane为止
// 2. 每次变道前进LaneChange/LaneChanges后取相邻车道上的对应点，动作为变道
// 3. 目标车道上每StepDistance取一个点，累计距离达到OtherLane为止
func GenerateLaneChangePath(waypoint entity.IWaypoint, opts LaneChangeOptions) []entity.RoutePoint {
	var option entity.RoadOption
	switch opts.Direction {
	case LaneChangeLeft:
		option = entity.RoadOptionChangeLaneLeft
	case LaneChangeRight:
		option = entity.RoadOptionChangeLaneRight
	default:
		return nil
	}
	if opts.LaneChanges < 1 || opts.StepDistance <= 0 {
		return nil
	}
	sameLane := math.Max(opts.SameLane, minPathDistance)
	otherLane := math.Max(opts.OtherLane, minPathDistance)
	change := math.Max(opts.LaneChange, minPathDistance) / float64(opts.LaneChanges)

	plan := []entity.RoutePoint{{Waypoint: waypoint, Option: entity.RoadOptionLaneFollow}}
	follow := func(distance float64) bool {
		for d := 0.; d < distance; {
			last := plan[len(plan)-1].Waypoint
			next := last.Next(opts.StepDistance)
			if len(next) == 0 {
				return false
			}
			d += misc.Distance(next[0].Transform().Location, last.Transform().Location)
			plan = append(plan, entity.RoutePoint{Waypoint: next[0], Option: entity.RoadOptionLaneFollow})
		}
		return true
	}

	if !follow(sameLane) {
		return nil
	}
	for i := 0; i < opts.LaneChanges; i++ {
		next := plan[len(plan)-1].Waypoint.Next(change)
		if len(next) == 0 {
			return nil
		}
		var side entity.IWaypoint
		if option == entity.RoadOptionChangeLaneLeft {
			if opts.Check && !next[0].LaneChange().AllowLeft() {
				return nil
			}
			side = next[0].LeftLane()
		} else {
			if opts.Check && !next[0].LaneChange().AllowRight() {
				return nil
			}
			side = next[0].RightLane()
		}
		if side == nil || side.LaneType() != entity.LaneTypeDriving {
			return nil
		}
		plan = append(plan, entity.RoutePoint{Waypoint: side, Option: option})
	}
	if !follow(otherLane) {
		return nil
	}
	return plan
}

// LaneChange 从车辆当前位置变道
// 参数：direction-方向，sameLaneTime/otherLaneTime/laneChangeTime-按当前车速折算为各段距离的时间（s）
// 返回：是否找到变道路径；找不到时保留原有计划
func (a *BasicAgent) LaneChange(direction LaneChangeDirection, sameLaneTime, otherLaneTime, laneChangeTime float64) bool {
	speed := r3.Norm(a.vehicle.Velocity())
	wp, err := a.m.Waypoint(a.vehicle.Transform().Location, entity.LaneTypeDriving)
	if err != nil {
		log.Warnf("vehicle %d: ignoring the lane change: %v", a.vehicle.ID(), err)
		return false
	}
	path := GenerateLaneChangePath(wp, LaneChangeOptions{
		Direction:    direction,
		SameLane:     sameLaneTime * speed,
		OtherLane:    otherLaneTime * speed,
		LaneChange:   laneChangeTime * speed,
		Check:        false,
		LaneChanges:  1,
		StepDistance: a.config.SamplingResolution,
	})
	if len(path) == 0 {
		log.Warnf("vehicle %d: ignoring the lane change to the %s as no path was found", a.vehicle.ID(), direction)
		return false
	}
	a.local.SetGlobalPlan(path, true, true)
	return true
}
