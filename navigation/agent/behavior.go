package agent

import (
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/navstack/entity"
	"github.com/tsinghua-fib-lab/navstack/navigation/misc"
	"github.com/tsinghua-fib-lab/navstack/navigation/route"
	"github.com/tsinghua-fib-lab/navstack/utils/config"
	"github.com/tsinghua-fib-lab/navstack/utils/randengine"
)

const (
	behaviorMinSpeed  = 5.0  // 跟车时的最低目标速度（km/h）
	junctionSlowDown  = 5.0  // 路口转弯时目标速度低于限速的量（km/h）
	tailgateCooldown  = 200  // 因被尾随变道之后的冷却步数
	vehicleCandidates = 45.0 // 参与跟车判断的车辆范围（m）
	walkerCandidates  = 10.0 // 参与避让判断的行人范围（m）
	tailgateMinSpeed  = 10.0 // 触发尾随变道的最低车速（km/h）
)

// BehaviorAgent 行为智能体
// 功能：在基础智能体之上按驾驶风格处理红灯、行人、跟车、被尾随变道与路口减速
// 说明：每步的决策顺序为 红灯 -> 行人 -> 前车 -> 路口转弯 -> 正常行驶
type BehaviorAgent struct {
	*BasicAgent
	behavior        config.Behavior
	tailgateCounter int

	speed             float64 // km/h
	speedLimit        float64 // km/h
	direction         entity.RoadOption
	lookAheadSteps    int
	incomingWaypoint  entity.IWaypoint
	incomingDirection entity.RoadOption
}

// NewBehaviorAgent 创建行为智能体
// 参数：behavior-驾驶风格，其余同NewBasicAgent
func NewBehaviorAgent(vehicle entity.IVehicle, w entity.IWorld, cfg config.Agent, behavior config.Behavior, global *route.GlobalPlanner, rng *randengine.Engine) (*BehaviorAgent, error) {
	basic, err := NewBasicAgent(vehicle, w, cfg, global, rng)
	if err != nil {
		return nil, err
	}
	return &BehaviorAgent{
		BasicAgent:        basic,
		behavior:          behavior,
		tailgateCounter:   behavior.TailgateCounter,
		direction:         entity.RoadOptionLaneFollow,
		incomingDirection: entity.RoadOptionLaneFollow,
	}, nil
}

// updateInformation 更新车速、限速与前方路点信息
func (b *BehaviorAgent) updateInformation() {
	b.speed = misc.Speed(b.vehicle)
	b.speedLimit = b.vehicle.SpeedLimit()
	b.local.SetSpeed(b.speedLimit)
	b.direction = b.local.TargetRoadOption()
	if b.direction == entity.RoadOptionVoid {
		b.direction = entity.RoadOptionLaneFollow
	}
	b.lookAheadSteps = int(b.speedLimit / 10)
	b.incomingWaypoint, b.incomingDirection = b.local.IncomingWaypointAndDirection(b.lookAheadSteps)
	if b.incomingDirection == entity.RoadOptionVoid {
		b.incomingDirection = entity.RoadOptionLaneFollow
	}
}

// detectionRange 前车与行人检测距离：变道时取限速/2，否则取限速/3，且不小于最小检测距离
func (b *BehaviorAgent) detectionRange(divisor float64) float64 {
	return math.Max(b.behavior.MinProximityThreshold, b.speedLimit/divisor)
}

// laneOffsetOf 变道动作对应的检测车道偏移
func laneOffsetOf(option entity.RoadOption) int32 {
	switch option {
	case entity.RoadOptionChangeLaneLeft:
		return -1
	case entity.RoadOptionChangeLaneRight:
		return 1
	default:
		return 0
	}
}

// pedestrianAvoidManager 检测前方10m内的行人
func (b *BehaviorAgent) pedestrianAvoidManager(wp entity.IWaypoint) entity.DetectionResult {
	center := wp.Transform().Location
	walkers := lo.Filter(b.world.Actors(entity.ActorWalker), func(w entity.IActor, _ int) bool {
		return misc.Distance(w.Transform().Location, center) < walkerCandidates
	})
	if b.direction.IsLaneChange() {
		return b.VehicleObstacleDetected(walkers, b.detectionRange(2), 90, 0, laneOffsetOf(b.direction))
	}
	return b.VehicleObstacleDetected(walkers, b.detectionRange(3), 60, 0, 0)
}

// collisionAndCarAvoidManager 检测前车，没有前车时检查是否被尾随
func (b *BehaviorAgent) collisionAndCarAvoidManager(wp entity.IWaypoint) entity.DetectionResult {
	center := wp.Transform().Location
	vehicles := lo.Filter(b.world.Actors(entity.ActorVehicle), func(v entity.IActor, _ int) bool {
		return v.ID() != b.vehicle.ID() && misc.Distance(v.Transform().Location, center) < vehicleCandidates
	})
	if b.direction.IsLaneChange() {
		return b.VehicleObstacleDetected(vehicles, b.detectionRange(2), 180, 0, laneOffsetOf(b.direction))
	}
	res := b.VehicleObstacleDetected(vehicles, b.detectionRange(3), 30, 0, 0)
	if !res.Found && b.direction == entity.RoadOptionLaneFollow &&
		!wp.IsJunction() && b.speed > tailgateMinSpeed && b.tailgateCounter == 0 {
		b.tailgating(wp, vehicles)
	}
	return res
}

// tailgating 被后车尾随且后车更快时，向允许变道且空闲的相邻车道变道
// 算法说明：
// 1. 在车辆后方[160,180]度检测后车，后车不比本车快时不处理
// 2. 优先考虑右侧车道，其次左侧车道；要求标线允许、同向且可行驶
// 3. 目标车道上没有障碍物时，从相邻车道出发重新规划到当前目标路点，并进入冷却
func (b *BehaviorAgent) tailgating(wp entity.IWaypoint, vehicles []entity.IActor) {
	distance := b.detectionRange(2)
	behind := b.VehicleObstacleDetected(vehicles, distance, 180, 160, 0)
	if !behind.Found || b.speed >= misc.Speed(behind.Subject) {
		return
	}
	eligible := func(side entity.IWaypoint) bool {
		return side != nil && wp.LaneID()*side.LaneID() > 0 && side.LaneType() == entity.LaneTypeDriving
	}
	change := func(side entity.IWaypoint, offset int32, name string) {
		if b.VehicleObstacleDetected(vehicles, distance, 180, 0, offset).Found {
			return
		}
		log.Infof("vehicle %d: tailgating, moving to the %s lane", b.vehicle.ID(), name)
		b.tailgateCounter = tailgateCooldown
		start := side.Transform().Location
		if err := b.SetDestination(b.local.TargetWaypoint().Transform().Location, &start, true); err != nil {
			log.Warnf("vehicle %d: tailgating lane change failed: %v", b.vehicle.ID(), err)
		}
	}
	marking := wp.LaneChange()
	if right := wp.RightLane(); marking.AllowRight() && eligible(right) {
		change(right, 1, "right")
	} else if left := wp.LeftLane(); marking.AllowLeft() && eligible(left) {
		change(left, -1, "left")
	}
}

// carFollowingManager 跟车速度仲裁
// 参数：leader-前车，distance-扣除包围盒之后的车距（m）
// 算法说明：碰撞时间ttc = 车距/max(1, 相对速度(m/s))
// 1. 0 < ttc < 安全时间：目标速度为前车速度减去减速量
// 2. 安全时间 <= ttc < 2倍安全时间：目标速度为前车速度（不低于最低速度）
// 3. 其他：正常目标速度
// 目标速度都不超过最大速度与(限速-限速余量)
func (b *BehaviorAgent) carFollowingManager(leader entity.IActor, distance float64) entity.VehicleControl {
	leaderSpeed := misc.Speed(leader)
	deltaV := math.Max(1, (b.speed-leaderSpeed)/3.6)
	ttc := distance / deltaV
	limit := b.speedLimit - b.behavior.SpeedLimDist

	var target float64
	switch {
	case ttc > 0 && ttc < b.behavior.SafetyTime:
		target = lo.Min([]float64{misc.Positive(leaderSpeed - b.behavior.SpeedDecrease), b.behavior.MaxSpeed, limit})
	case ttc >= b.behavior.SafetyTime && ttc < 2*b.behavior.SafetyTime:
		target = lo.Min([]float64{math.Max(behaviorMinSpeed, leaderSpeed), b.behavior.MaxSpeed, limit})
	default:
		target = math.Min(b.behavior.MaxSpeed, limit)
	}
	b.local.SetSpeed(target)
	return b.local.RunStep()
}

// gap 扣除两个参与者包围盒之后的距离
func gap(distance float64, a, b entity.IActor) float64 {
	ea, eb := a.BoundingBox().Extent, b.BoundingBox().Extent
	return distance - math.Max(ea.X, ea.Y) - math.Max(eb.X, eb.Y)
}

// RunStep 计算一步控制指令
func (b *BehaviorAgent) RunStep() entity.VehicleControl {
	b.updateInformation()
	if b.tailgateCounter > 0 {
		b.tailgateCounter--
	}
	egoWP, err := b.m.Waypoint(b.vehicle.Transform().Location, entity.LaneTypeDriving)
	if err != nil {
		log.Warnf("vehicle %d: off road, stopping: %v", b.vehicle.ID(), err)
		return b.EmergencyStop()
	}

	// 红灯
	if b.AffectedByTrafficLight(b.world.TrafficLights(), 0).Found {
		return b.EmergencyStop()
	}

	// 行人
	if walker := b.pedestrianAvoidManager(egoWP); walker.Found {
		if gap(walker.Distance, walker.Subject, b.vehicle) < b.behavior.BrakingDistance {
			return b.EmergencyStop()
		}
	}

	// 前车
	if leader := b.collisionAndCarAvoidManager(egoWP); leader.Found {
		distance := gap(leader.Distance, leader.Subject, b.vehicle)
		if distance < b.behavior.BrakingDistance {
			return b.EmergencyStop()
		}
		return b.carFollowingManager(leader.Subject, distance)
	}

	// 路口转弯
	if b.incomingWaypoint != nil && b.incomingWaypoint.IsJunction() &&
		(b.incomingDirection == entity.RoadOptionLeft || b.incomingDirection == entity.RoadOptionRight) {
		b.local.SetSpeed(math.Min(b.behavior.MaxSpeed, b.speedLimit-junctionSlowDown))
		return b.local.RunStep()
	}

	// 正常行驶
	b.local.SetSpeed(math.Min(b.behavior.MaxSpeed, b.speedLimit-b.behavior.SpeedLimDist))
	return b.local.RunStep()
}

// EmergencyStop 紧急停车指令：油门为0，刹车为最大刹车，转向保持车辆上一步的转向
func (b *BehaviorAgent) EmergencyStop() entity.VehicleControl {
	return entity.VehicleControl{
		Throttle: 0,
		Brake:    b.config.MaxBrake,
		Steer:    b.vehicle.Control().Steer,
	}
}

// TailgateCounter 被尾随变道的剩余冷却步数
func (b *BehaviorAgent) TailgateCounter() int {
	return b.tailgateCounter
}
