package agent

import (
	"math"

	"github.com/tsinghua-fib-lab/navstack/entity"
	"github.com/tsinghua-fib-lab/navstack/navigation/misc"
	"github.com/tsinghua-fib-lab/navstack/utils/polygon"
	"gonum.org/v1/gonum/spatial/r3"
)

// incomingLookAhead 同车道判断时额外参考的队列中路点的序号
const incomingLookAhead = 3

// VehicleObstacleDetected 检测前方路线上的障碍物（车辆或行人）
// 参数：actors-候选参与者，maxDistance-最大检测距离（不大于0时取基础距离），upAngle/lowAngle-简化检测的角度区间（度），laneOffset-检测相邻车道（向右为正，0为本车道）
// 返回：最近的障碍物；没有时返回NoDetection
// 算法说明：
// 1. 由车辆位置与队列中检测距离以内的路点，向两侧各展开半个车宽（加横向偏移）得到路线走廊
// 2. 车辆位于路口、横向偏移侵入相邻车道或配置要求时，用包围盒与走廊求交（目标位于路口时同样如此）
// 3. 否则要求目标与车辆（或队列中第3个路点）同一道路、车道号相差laneOffset，并用目标车尾相对车头的距离与角度判断
// 说明：距离为两车中心的距离
func (a *BasicAgent) VehicleObstacleDetected(actors []entity.IActor, maxDistance, upAngle, lowAngle float64, laneOffset int32) entity.DetectionResult {
	if a.config.IgnoreVehicles || len(actors) == 0 {
		return entity.NoDetection()
	}
	if maxDistance <= 0 {
		maxDistance = a.config.BaseVehicleThreshold
	}
	ego := a.vehicle.Transform()
	egoWP, err := a.m.Waypoint(ego.Location, entity.LaneTypeDriving)
	if err != nil {
		log.Debugf("vehicle %d: skip obstacle detection: %v", a.vehicle.ID(), err)
		return entity.NoDetection()
	}
	// 负车道号一侧，向右意味着车道号减小
	if egoWP.LaneID() < 0 && laneOffset != 0 {
		laneOffset = -laneOffset
	}
	extent := a.vehicle.BoundingBox().Extent
	egoFront := ego
	egoFront.Location = r3.Add(ego.Location, r3.Scale(extent.X, ego.ForwardVector()))

	useBBs := a.config.UseBBsDetection ||
		math.Abs(a.config.Offset)+extent.Y > egoWP.LaneWidth()/2 ||
		egoWP.IsJunction()
	corridor := a.routeCorridor(ego, extent.Y, maxDistance)

	best := entity.NoDetection()
	for _, target := range actors {
		if target.ID() == a.vehicle.ID() {
			continue
		}
		t := target.Transform()
		d := misc.Distance(t.Location, ego.Location)
		if d > maxDistance {
			continue
		}
		targetWP, err := a.m.Waypoint(t.Location, entity.LaneTypeAny)
		if err != nil {
			continue
		}
		var hit bool
		if (useBBs || targetWP.IsJunction()) && corridor != nil {
			hit = corridor.Intersects(polygon.Polygon(target.BoundingBox().WorldVertices(t)))
		} else {
			if !onLane(targetWP, egoWP, laneOffset) {
				next, _ := a.local.IncomingWaypointAndDirection(incomingLookAhead)
				if next == nil || !onLane(targetWP, next, laneOffset) {
					continue
				}
			}
			rear := t
			rear.Location = r3.Sub(t.Location, r3.Scale(target.BoundingBox().Extent.X, horizontal(t.ForwardVector())))
			hit = misc.IsWithinDistance(rear, egoFront, maxDistance, &[2]float64{lowAngle, upAngle})
		}
		if hit && (!best.Found || d < best.Distance) {
			best = entity.DetectionResult{Found: true, Subject: target, Distance: d}
		}
	}
	return best
}

// onLane 目标是否与参考路点同一道路且车道号相差offset
func onLane(target, reference entity.IWaypoint, offset int32) bool {
	return target.RoadID() == reference.RoadID() && target.LaneID() == reference.LaneID()+offset
}

func horizontal(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.X, Y: v.Y}
}

// routeCorridor 路线走廊
// 说明：少于两个横截面时返回nil，此时只能使用简化检测
func (a *BasicAgent) routeCorridor(ego entity.Transform, halfWidth, maxDistance float64) polygon.Corridor {
	rExt, lExt := halfWidth+a.config.Offset, -halfWidth+a.config.Offset
	var left, right []r3.Vec
	section := func(t entity.Transform) {
		r := t.RightVector()
		right = append(right, r3.Add(t.Location, r3.Scale(rExt, horizontal(r))))
		left = append(left, r3.Add(t.Location, r3.Scale(lExt, horizontal(r))))
	}
	section(ego)
	for _, rp := range a.local.Plan() {
		t := rp.Waypoint.Transform()
		if misc.Distance(ego.Location, t.Location) > maxDistance {
			break
		}
		section(t)
	}
	return polygon.NewCorridor(left, right)
}

// AffectedByTrafficLight 检测是否需要为红灯停车
// 参数：lights-候选信号灯，maxDistance-最大检测距离（不大于0时取基础距离）
// 返回：需要停车时返回该信号灯，距离为车辆到触发区域路点的距离
// 算法说明：
// 1. 上一次让车辆停下的信号灯仍为红灯时直接返回它，转为非红灯后解除
// 2. 每个信号灯的触发区域中心投影到车道上得到触发路点，结果按信号灯ID缓存
// 3. 跳过距离过远、与车辆不在同一道路、方向与车辆相反（朝向点积<0）或不是红灯的信号灯
// 4. 触发路点位于车辆前方[0,90]度且在检测距离内时停车，并记住该信号灯
func (a *BasicAgent) AffectedByTrafficLight(lights []entity.ITrafficLight, maxDistance float64) entity.DetectionResult {
	if a.config.IgnoreTrafficLights {
		return entity.NoDetection()
	}
	if maxDistance <= 0 {
		maxDistance = a.config.BaseTLightThreshold
	}
	ego := a.vehicle.Transform()
	if a.lastTrafficLight != nil {
		if a.lastTrafficLight.State() != entity.TrafficLightRed {
			a.lastTrafficLight = nil
		} else {
			d := -1.
			if wp := a.lightsMap[a.lastTrafficLight.ID()]; wp != nil {
				d = misc.Distance(wp.Transform().Location, ego.Location)
			}
			return entity.DetectionResult{Found: true, Subject: a.lastTrafficLight, Distance: d}
		}
	}
	egoWP, err := a.m.Waypoint(ego.Location, entity.LaneTypeDriving)
	if err != nil {
		log.Debugf("vehicle %d: skip traffic light detection: %v", a.vehicle.ID(), err)
		return entity.NoDetection()
	}
	for _, light := range lights {
		triggerWP := a.triggerWaypoint(light)
		if triggerWP == nil {
			continue
		}
		trigger := triggerWP.Transform()
		d := misc.Distance(trigger.Location, ego.Location)
		if d > maxDistance {
			continue
		}
		if triggerWP.RoadID() != egoWP.RoadID() {
			continue
		}
		if r3.Dot(egoWP.Transform().ForwardVector(), trigger.ForwardVector()) < 0 {
			continue
		}
		if light.State() != entity.TrafficLightRed {
			continue
		}
		if misc.IsWithinDistance(trigger, ego, maxDistance, &[2]float64{0, 90}) {
			a.lastTrafficLight = light
			return entity.DetectionResult{Found: true, Subject: light, Distance: d}
		}
	}
	return entity.NoDetection()
}

// triggerWaypoint 信号灯触发区域所在的路点（带缓存）
func (a *BasicAgent) triggerWaypoint(light entity.ITrafficLight) entity.IWaypoint {
	if wp, ok := a.lightsMap[light.ID()]; ok {
		return wp
	}
	wp, err := a.m.Waypoint(misc.TrafficLightTriggerLocation(light), entity.LaneTypeDriving)
	if err != nil {
		log.Warnf("traffic light %d: trigger volume is off road: %v", light.ID(), err)
		wp = nil
	}
	a.lightsMap[light.ID()] = wp
	return wp
}
