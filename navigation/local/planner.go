// 局部规划器：维护车辆前方一段时间内要经过的路点队列，并驱动PID控制器跟随队首路点
package local

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/navstack/entity"
	"github.com/tsinghua-fib-lab/navstack/navigation/controller"
	"github.com/tsinghua-fib-lab/navstack/navigation/misc"
	"github.com/tsinghua-fib-lab/navstack/utils/config"
	"github.com/tsinghua-fib-lab/navstack/utils/container"
	"github.com/tsinghua-fib-lab/navstack/utils/randengine"
)

const (
	// 队列只剩最后一个路点时的清除距离（m）
	lastWaypointDistance = 1.0
	// 分支分类时向前看的距离（m）
	branchLookAhead = 3.0
	// 判定为直行的最大航向差（度）
	branchStraightThreshold = 35.0
)

// Planner 局部规划器
// 功能：
// 1. 随机漫游模式下沿路网随机选择分支不断补充队尾
// 2. 全局路径模式下由SetGlobalPlan提供路点，可替换或追加到队列
// 3. 每步清除车辆已经接近的队首路点，以新的队首为目标计算控制指令
// 说明：单线程使用，队列为空时Done返回true，此时输出完全刹车的指令
type Planner struct {
	vehicle entity.IVehicle
	m       entity.IMap
	rng     *randengine.Engine
	config  config.LocalPlanner

	controller *controller.VehiclePID
	queue      *container.Deque[entity.RoutePoint]

	targetSpeed          float64 // km/h
	followSpeedLimits    bool
	stopWaypointCreation bool
	targetWaypoint       entity.IWaypoint
	targetRoadOption     entity.RoadOption
	minDistance          float64
	purged               int // 累计清除的路点数
}

// NewPlanner 创建局部规划器
// 参数：vehicle-受控车辆，m-路网，cfg-配置，rng-随机漫游使用的随机源
// 返回：局部规划器；配置不合法或车辆无法定位到车道时返回错误
// 说明：初始时以车辆所在位置的路点作为唯一的队列元素
func NewPlanner(vehicle entity.IVehicle, m entity.IMap, cfg config.LocalPlanner, rng *randengine.Engine) (*Planner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Planner{
		vehicle:           vehicle,
		m:                 m,
		rng:               rng,
		config:            cfg,
		targetSpeed:       cfg.TargetSpeed,
		followSpeedLimits: cfg.FollowSpeedLimits,
	}
	if err := p.initController(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Planner) initController() error {
	lateral, longitudinal := p.config.LateralPID, p.config.LongitudinalPID
	lateral.DT, longitudinal.DT = p.config.DT, p.config.DT
	p.controller = controller.NewVehiclePID(p.vehicle, lateral, longitudinal, p.config.Offset, controller.Limits{
		MaxThrottle: p.config.MaxThrottle,
		MaxBrake:    p.config.MaxBrake,
		MaxSteering: p.config.MaxSteering,
	})
	current, err := p.m.Waypoint(p.vehicle.Transform().Location, entity.LaneTypeDriving)
	if err != nil {
		return fmt.Errorf("local planner: %w", err)
	}
	p.queue = container.NewDeque[entity.RoutePoint](p.config.QueueCapacity)
	p.targetWaypoint, p.targetRoadOption = current, entity.RoadOptionLaneFollow
	p.queue.PushBack(entity.RoutePoint{Waypoint: current, Option: entity.RoadOptionLaneFollow})
	return nil
}

// ResetVehicle 重新以车辆当前位置初始化控制器与路点队列
// 说明：用于车辆被移动（如重新放置）之后，丢弃原有计划与PID历史
func (p *Planner) ResetVehicle() error {
	p.stopWaypointCreation = false
	p.purged = 0
	return p.initController()
}

// SetSpeed 设置目标速度（km/h）
// 说明：跟随道路限速时该设置会在下一步被限速覆盖
func (p *Planner) SetSpeed(speed float64) {
	if p.followSpeedLimits {
		log.Warn("the target speed is currently set to follow the speed limits, use FollowSpeedLimits(false) to deactivate this")
	}
	p.targetSpeed = speed
}

// TargetSpeed 当前目标速度（km/h）
func (p *Planner) TargetSpeed() float64 {
	return p.targetSpeed
}

// FollowSpeedLimits 设置是否以道路限速作为目标速度
func (p *Planner) FollowSpeedLimits(value bool) {
	p.followSpeedLimits = value
}

// SetOffset 设置相对车道中心线的横向偏移（m，向右为正）
func (p *Planner) SetOffset(offset float64) {
	p.controller.SetOffset(offset)
}

// computeNextWaypoints 沿路网向队尾补充至多k个路点
// 算法说明：
// 1. 队尾路点前方只有一个路点时直接加入，动作为车道跟随
// 2. 有多个分支时按航向差把每个分支分类为直行/左转/右转，等概率选出一个动作，取第一个具有该动作的分支
// 3. 到达路网尽头时停止
func (p *Planner) computeNextWaypoints(k int) {
	k = min(k, p.queue.Cap()-p.queue.Len())
	for i := 0; i < k && p.queue.Len() > 0; i++ {
		last := p.queue.Back().Waypoint
		nexts := last.Next(p.config.SamplingRadius)
		if len(nexts) == 0 {
			break
		}
		next, option := nexts[0], entity.RoadOptionLaneFollow
		if len(nexts) > 1 {
			options := retrieveOptions(nexts, last)
			option = randengine.Choice(p.rng, options)
			next = nexts[lo.IndexOf(options, option)]
		}
		p.queue.PushBack(entity.RoutePoint{Waypoint: next, Option: option})
	}
}

// retrieveOptions 对每个分支计算驾驶动作
func retrieveOptions(nexts []entity.IWaypoint, current entity.IWaypoint) []entity.RoadOption {
	return lo.Map(nexts, func(next entity.IWaypoint, _ int) entity.RoadOption {
		ahead := next
		if nn := next.Next(branchLookAhead); len(nn) > 0 {
			ahead = nn[0]
		}
		return computeConnection(current, ahead)
	})
}

// computeConnection 按两个路点的航向差判断驾驶动作
// 算法说明：航向差对180取模，小于35度或大于145度为直行，大于90度为左转，否则为右转
func computeConnection(current, next entity.IWaypoint) entity.RoadOption {
	n := positiveMod(next.Transform().Rotation.Yaw, 360)
	c := positiveMod(current.Transform().Rotation.Yaw, 360)
	diff := positiveMod(n-c, 180)
	switch {
	case diff < branchStraightThreshold || diff > 180-branchStraightThreshold:
		return entity.RoadOptionStraight
	case diff > 90:
		return entity.RoadOptionLeft
	default:
		return entity.RoadOptionRight
	}
}

func positiveMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}

// SetGlobalPlan 设置全局路径
// 参数：plan-路点与驾驶动作序列，stopWaypointCreation-是否停止随机补点，cleanQueue-是否先清空队列
// 说明：新计划超出队列容量时扩大容量，保证计划不会被截断
func (p *Planner) SetGlobalPlan(plan []entity.RoutePoint, stopWaypointCreation, cleanQueue bool) {
	if cleanQueue {
		p.queue.Clear()
	}
	if n := len(plan) + p.queue.Len(); n > p.queue.Cap() {
		p.queue.Grow(n)
	}
	for _, rp := range plan {
		p.queue.PushBack(rp)
	}
	p.stopWaypointCreation = stopWaypointCreation
	log.Debugf("set global plan: %d waypoints, queue length %d", len(plan), p.queue.Len())
}

// RunStep 计算一步控制指令
// 算法说明：
// 1. 跟随限速时目标速度取车辆所在道路的限速
// 2. 随机补点模式下队列短于最小长度时补充路点
// 3. 清除距离 = 基础距离 + 速度系数×车速(m/s)，从队首开始清除距离小于清除距离的路点，最后一个路点只在距离小于1m时清除
// 4. 队列为空时输出完全刹车，否则以队首路点为目标调用PID控制器
func (p *Planner) RunStep() entity.VehicleControl {
	if p.followSpeedLimits {
		p.targetSpeed = p.vehicle.SpeedLimit()
	}
	if !p.stopWaypointCreation && p.queue.Len() < p.config.MinQueueLength {
		p.computeNextWaypoints(p.config.MinQueueLength)
	}
	location := p.vehicle.Transform().Location
	speed := misc.Speed(p.vehicle) / 3.6
	p.minDistance = p.config.BaseMinDistance + p.config.DistanceRatio*speed
	removed := 0
	for i := 0; i < p.queue.Len(); i++ {
		minDistance := p.minDistance
		if p.queue.Len()-removed == 1 {
			minDistance = lastWaypointDistance
		}
		if misc.Distance(location, p.queue.At(i).Waypoint.Transform().Location) < minDistance {
			removed++
		} else {
			break
		}
	}
	for i := 0; i < removed; i++ {
		p.queue.PopFront()
	}
	p.purged += removed
	if p.queue.Len() == 0 {
		return entity.VehicleControl{Brake: 1}
	}
	front := p.queue.Front()
	p.targetWaypoint, p.targetRoadOption = front.Waypoint, front.Option
	return p.controller.RunStep(p.targetSpeed, p.targetWaypoint)
}

// IncomingWaypointAndDirection 队列中第steps个路点及其驾驶动作
// 说明：队列不够长时返回最后一个路点；队列为空时返回nil与VOID
func (p *Planner) IncomingWaypointAndDirection(steps int) (entity.IWaypoint, entity.RoadOption) {
	if p.queue.Len() > steps {
		rp := p.queue.At(steps)
		return rp.Waypoint, rp.Option
	}
	if p.queue.Len() == 0 {
		return nil, entity.RoadOptionVoid
	}
	rp := p.queue.Back()
	return rp.Waypoint, rp.Option
}

// Plan 当前队列中的全部路点（拷贝）
func (p *Planner) Plan() []entity.RoutePoint {
	return p.queue.Slice()
}

// Done 队列是否已经为空
func (p *Planner) Done() bool {
	return p.queue.Len() == 0
}

// TargetWaypoint 最近一次作为控制目标的路点
func (p *Planner) TargetWaypoint() entity.IWaypoint {
	return p.targetWaypoint
}

// TargetRoadOption 最近一次作为控制目标的路点的驾驶动作
func (p *Planner) TargetRoadOption() entity.RoadOption {
	return p.targetRoadOption
}

// Purged 累计清除的路点数
func (p *Planner) Purged() int {
	return p.purged
}
