package agent

import (
	"github.com/tsinghua-fib-lab/navstack/entity"
	"github.com/tsinghua-fib-lab/navstack/navigation/local"
	"github.com/tsinghua-fib-lab/navstack/navigation/misc"
	"github.com/tsinghua-fib-lab/navstack/navigation/route"
	"github.com/tsinghua-fib-lab/navstack/utils/config"
	"github.com/tsinghua-fib-lab/navstack/utils/randengine"
	"gonum.org/v1/gonum/spatial/r3"
)

// BasicAgent 基础智能体
// 功能：沿全局路径或随机漫游行驶，遇到前方车辆或红灯时紧急停车
// 说明：不处理停车标志；全局规划器只读，可以在多个智能体之间共享
type BasicAgent struct {
	vehicle entity.IVehicle
	world   entity.IWorld
	m       entity.IMap
	config  config.Agent

	local  *local.Planner
	global *route.GlobalPlanner

	lastTrafficLight entity.ITrafficLight       // 正在等待的红灯
	lightsMap        map[int32]entity.IWaypoint // 信号灯ID->触发区域所在路点，nil表示无法定位
}

// NewBasicAgent 创建基础智能体
// 参数：vehicle-受控车辆，w-世界，cfg-配置，global-共享的全局规划器（nil时按cfg.SamplingResolution新建），rng-随机漫游的随机源
// 返回：基础智能体；配置不合法或车辆无法定位时返回错误
func NewBasicAgent(vehicle entity.IVehicle, w entity.IWorld, cfg config.Agent, global *route.GlobalPlanner, rng *randengine.Engine) (*BasicAgent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	plannerConfig := cfg.Planner
	plannerConfig.TargetSpeed = cfg.TargetSpeed
	plannerConfig.Offset = cfg.Offset
	lp, err := local.NewPlanner(vehicle, w.Map(), plannerConfig, rng)
	if err != nil {
		return nil, err
	}
	if global == nil {
		global = route.NewGlobalPlanner(w.Map(), cfg.SamplingResolution)
	}
	return &BasicAgent{
		vehicle:   vehicle,
		world:     w,
		m:         w.Map(),
		config:    cfg,
		local:     lp,
		global:    global,
		lightsMap: make(map[int32]entity.IWaypoint),
	}, nil
}

// AddEmergencyStop 把控制指令改为紧急停车：油门为0，刹车为最大刹车，保留转向
func (a *BasicAgent) AddEmergencyStop(control entity.VehicleControl) entity.VehicleControl {
	control.Throttle = 0
	control.Brake = a.config.MaxBrake
	control.HandBrake = false
	return control
}

// SetTargetSpeed 设置目标速度（km/h）
func (a *BasicAgent) SetTargetSpeed(speed float64) {
	a.config.TargetSpeed = speed
	a.local.SetSpeed(speed)
}

// FollowSpeedLimits 设置是否以道路限速作为目标速度
func (a *BasicAgent) FollowSpeedLimits(value bool) {
	a.local.FollowSpeedLimits(value)
}

// LocalPlanner 局部规划器
func (a *BasicAgent) LocalPlanner() *local.Planner {
	return a.local
}

// GlobalPlanner 全局规划器
func (a *BasicAgent) GlobalPlanner() *route.GlobalPlanner {
	return a.global
}

// SetDestination 规划到目的地的路径并交给局部规划器
// 参数：end-目的地，start-起点（为nil时：清空队列则从当前目标路点出发，追加则从队尾出发，队列为空时从车辆位置出发），cleanQueue-是否清空原有队列
// 返回：起终点无法定位（ErrLocalization）或不连通（ErrRouteNotFound）时返回错误，此时原有计划不变
func (a *BasicAgent) SetDestination(end r3.Vec, start *r3.Vec, cleanQueue bool) error {
	var from r3.Vec
	switch {
	case start != nil:
		from = *start
	case cleanQueue && a.local.TargetWaypoint() != nil:
		from = a.local.TargetWaypoint().Transform().Location
	case !cleanQueue && !a.local.Done():
		plan := a.local.Plan()
		from = plan[len(plan)-1].Waypoint.Transform().Location
	default:
		from = a.vehicle.Transform().Location
	}
	trace, err := a.TraceRoute(from, end)
	if err != nil {
		return err
	}
	a.local.SetGlobalPlan(trace, true, cleanQueue)
	return nil
}

// SetGlobalPlan 直接设置路径
func (a *BasicAgent) SetGlobalPlan(plan []entity.RoutePoint, stopWaypointCreation, cleanQueue bool) {
	a.local.SetGlobalPlan(plan, stopWaypointCreation, cleanQueue)
}

// TraceRoute 两点之间的路径
func (a *BasicAgent) TraceRoute(start, end r3.Vec) ([]entity.RoutePoint, error) {
	return a.global.TraceRoute(start, end)
}

// RunStep 计算一步控制指令
// 算法说明：
// 1. 检测距离 = 基础距离 + 速度系数×车速(m/s)
// 2. 前方有车辆或受红灯影响时，在局部规划器输出的基础上紧急停车
func (a *BasicAgent) RunStep() entity.VehicleControl {
	speed := misc.Speed(a.vehicle) / 3.6
	hazard := false

	maxVehicleDistance := a.config.BaseVehicleThreshold + a.config.DetectionSpeedRatio*speed
	if res := a.VehicleObstacleDetected(a.world.Actors(entity.ActorVehicle), maxVehicleDistance, 90, 0, 0); res.Found {
		log.Debugf("vehicle %d: blocked by vehicle %d at %.2fm", a.vehicle.ID(), res.Subject.ID(), res.Distance)
		hazard = true
	}
	maxLightDistance := a.config.BaseTLightThreshold + a.config.DetectionSpeedRatio*speed
	if res := a.AffectedByTrafficLight(a.world.TrafficLights(), maxLightDistance); res.Found {
		log.Debugf("vehicle %d: stopped by traffic light %d", a.vehicle.ID(), res.Subject.ID())
		hazard = true
	}

	control := a.local.RunStep()
	if hazard {
		control = a.AddEmergencyStop(control)
	}
	return control
}

// Done 是否已经到达路径终点
func (a *BasicAgent) Done() bool {
	return a.local.Done()
}

// IgnoreTrafficLights 设置是否忽略信号灯
func (a *BasicAgent) IgnoreTrafficLights(active bool) {
	a.config.IgnoreTrafficLights = active
}

// IgnoreStopSigns 设置是否忽略停车标志
func (a *BasicAgent) IgnoreStopSigns(active bool) {
	a.config.IgnoreStopSigns = active
}

// IgnoreVehicles 设置是否忽略其他车辆
func (a *BasicAgent) IgnoreVehicles(active bool) {
	a.config.IgnoreVehicles = active
}

// SetOffset 设置相对车道中心线的横向偏移（m，向右为正）
func (a *BasicAgent) SetOffset(offset float64) {
	a.config.Offset = offset
	a.local.SetOffset(offset)
}
