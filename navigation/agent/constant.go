package agent

import (
	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/tsinghua-fib-lab/navstack/entity"
	"github.com/tsinghua-fib-lab/navstack/navigation/route"
	"github.com/tsinghua-fib-lab/navstack/utils/config"
	"github.com/tsinghua-fib-lab/navstack/utils/randengine"
	"gonum.org/v1/gonum/spatial/r3"
)

// constantLightSpeedRatio 恒速智能体信号灯检测距离的速度系数（s）
const constantLightSpeedRatio = 0.3

// ConstantVelocityAgent 恒速智能体
// 功能：车辆以恒定速度行驶（包括变道），前方有车时把速度降为前车速度在本车方向上的投影，红灯时降为0
// 说明：发生碰撞时由调用方调用NotifyCollision停止恒速，经过RestartTime后自动恢复
type ConstantVelocityAgent struct {
	*BasicAgent
	ego   entity.IConstantVelocityVehicle
	clock TimeSource

	targetSpeed      float64 // m/s
	useBasicBehavior bool
	restartTime      float64 // s
	stopTime         float64
	active           bool
}

// NewConstantVelocityAgent 创建恒速智能体并立即启用恒速
// 参数：cv-恒速配置，clock-仿真时间，其余同NewBasicAgent
func NewConstantVelocityAgent(ego entity.IConstantVelocityVehicle, w entity.IWorld, cfg config.Agent, cv config.ConstantVelocity, clock TimeSource, global *route.GlobalPlanner, rng *randengine.Engine) (*ConstantVelocityAgent, error) {
	basic, err := NewBasicAgent(ego, w, cfg, global, rng)
	if err != nil {
		return nil, err
	}
	a := &ConstantVelocityAgent{
		BasicAgent:       basic,
		ego:              ego,
		clock:            clock,
		targetSpeed:      cfg.TargetSpeed / 3.6,
		useBasicBehavior: cv.UseBasicBehavior,
		restartTime:      cv.RestartTime,
		active:           true,
	}
	if a.restartTime <= 0 {
		a.restartTime = mathutil.INF
	}
	a.ego.EnableConstantVelocity(a.targetSpeed)
	return a, nil
}

// SetTargetSpeed 设置目标速度（km/h）
func (a *ConstantVelocityAgent) SetTargetSpeed(speed float64) {
	a.targetSpeed = speed / 3.6
	a.BasicAgent.SetTargetSpeed(speed)
}

// NotifyCollision 通知发生碰撞，停止恒速
func (a *ConstantVelocityAgent) NotifyCollision() {
	a.StopConstantVelocity()
}

// StopConstantVelocity 停止恒速并记录停止时间
func (a *ConstantVelocityAgent) StopConstantVelocity() {
	a.active = false
	a.ego.DisableConstantVelocity()
	a.stopTime = a.clock.Now()
}

// RestartConstantVelocity 以目标速度恢复恒速
func (a *ConstantVelocityAgent) RestartConstantVelocity() {
	a.active = true
	a.ego.EnableConstantVelocity(a.targetSpeed)
}

// Active 恒速是否生效
func (a *ConstantVelocityAgent) Active() bool {
	return a.active
}

// RunStep 计算一步控制指令
// 算法说明：
// 1. 恒速停止期间：超过恢复时间则恢复；否则按配置使用基础智能体的行为，或输出空指令
// 2. 前车检测距离 = 基础距离 + 车速(m/s)，有前车时恒速设为本车速度方向上前车速度的分量
// 3. 信号灯检测距离 = 基础距离 + 0.3×车速(m/s)，受红灯影响时恒速设为0
// 4. 仍然执行局部规划器，使车辆转向跟随路线
func (a *ConstantVelocityAgent) RunStep() entity.VehicleControl {
	if !a.active {
		if a.clock.Now()-a.stopTime > a.restartTime {
			a.RestartConstantVelocity()
		} else if a.useBasicBehavior {
			return a.BasicAgent.RunStep()
		} else {
			return entity.VehicleControl{}
		}
	}

	velocity := a.ego.Velocity()
	speed := r3.Norm(velocity)
	hazard, hazardSpeed := false, 0.

	if res := a.VehicleObstacleDetected(a.world.Actors(entity.ActorVehicle), a.config.BaseVehicleThreshold+speed, 90, 0, 0); res.Found {
		if speed > 0 {
			hazardSpeed = r3.Dot(velocity, res.Subject.Velocity()) / speed
		}
		hazard = true
	}
	if res := a.AffectedByTrafficLight(a.world.TrafficLights(), a.config.BaseTLightThreshold+constantLightSpeedRatio*speed); res.Found {
		hazardSpeed = 0
		hazard = true
	}

	control := a.local.RunStep()
	if hazard {
		a.ego.EnableConstantVelocity(hazardSpeed)
	} else {
		a.ego.EnableConstantVelocity(a.targetSpeed)
	}
	return control
}
