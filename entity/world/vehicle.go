package world

import (
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/navstack/entity"
	"github.com/tsinghua-fib-lab/navstack/utils/randengine"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	maxAcceleration = 3.5  // 油门为1时的加速度（m/s^2）
	maxDeceleration = 8.0  // 刹车为1时的减速度（m/s^2）
	rollingDecel    = 0.3  // 无油门无刹车时的滑行减速度（m/s^2）
	wheelBase       = 2.9  // 轴距（m）
	maxWheelAngle   = 40.0 // 转向为1时的前轮转角（度）
)

// Vehicle 车辆
// 功能：两种运动方式：受控车辆按控制指令做运动学自行车模型积分；背景车辆沿车道以巡航速度行驶
// 说明：只用于闭环运行与测试，不追求动力学真实性
type Vehicle struct {
	actor
	m       *Map
	control entity.VehicleControl
	speed   float64 // 纵向速度（m/s）

	constant   bool    // 恒速模式
	constSpeed float64 // 恒速模式的速度（m/s）

	// 背景车辆
	autopilot bool
	lane      *Lane
	s         float64
	cruise    float64 // 巡航速度（m/s）
	rng       *randengine.Engine
}

var (
	_ entity.IEgoVehicle              = (*Vehicle)(nil)
	_ entity.IConstantVelocityVehicle = (*Vehicle)(nil)
)

func newVehicleActor(id int32, transform entity.Transform, length, width float64) actor {
	if length <= 0 {
		length = 4.5
	}
	if width <= 0 {
		width = 2
	}
	return actor{
		id:        id,
		kind:      entity.ActorVehicle,
		transform: transform,
		bbox:      entity.BoundingBox{Extent: r3.Vec{X: length / 2, Y: width / 2, Z: 0.8}},
	}
}

// Control 最近一次施加的控制指令
func (v *Vehicle) Control() entity.VehicleControl {
	return v.control
}

// ApplyControl 施加控制指令，在下一次Update时生效
func (v *Vehicle) ApplyControl(control entity.VehicleControl) {
	v.control = control
}

// SpeedLimit 所在车道的限速（km/h），不在路网上时取缺省值
func (v *Vehicle) SpeedLimit() float64 {
	if v.autopilot {
		return v.lane.speedLimit
	}
	wp, err := v.m.Waypoint(v.transform.Location, entity.LaneTypeDriving)
	if err != nil {
		return defaultSpeedLimit
	}
	return wp.(*Waypoint).lane.speedLimit
}

// SetSpeed 直接设置速度（m/s），用于场景初始化
func (v *Vehicle) SetSpeed(speed float64) {
	v.speed = speed
	v.velocity = r3.Scale(speed, v.transform.ForwardVector())
}

// EnableConstantVelocity 启用恒速模式，之后油门与刹车被忽略，转向仍然生效
func (v *Vehicle) EnableConstantVelocity(speed float64) {
	v.constant, v.constSpeed = true, speed
}

// DisableConstantVelocity 关闭恒速模式
func (v *Vehicle) DisableConstantVelocity() {
	v.constant = false
}

// update 推进一个时间步
func (v *Vehicle) update(dt float64) {
	if v.autopilot {
		v.driveAlongLane(dt)
	} else {
		v.integrate(dt)
	}
	v.velocity = r3.Scale(v.speed, v.transform.ForwardVector())
}

// integrate 运动学自行车模型
// 算法说明：
// 1. 加速度=油门×最大加速度-刹车×最大减速度，二者都为0时按滑行减速
// 2. 速度不小于0，手刹时直接停车
// 3. 横摆角速度=v/轴距×tan(前轮转角)，转向为正时yaw增大（向右）
func (v *Vehicle) integrate(dt float64) {
	c := v.control
	a := c.Throttle*maxAcceleration - c.Brake*maxDeceleration
	if c.Throttle == 0 && c.Brake == 0 {
		a = -rollingDecel
	}
	if v.constant {
		v.speed, a = v.constSpeed, 0
	}
	if c.HandBrake {
		v.speed = 0
		return
	}
	speed, ds := computeVAndDistance(v.speed, a, dt)
	wheel := lo.Clamp(c.Steer, -1, 1) * maxWheelAngle * math.Pi / 180
	yawRate := (v.speed + speed) / 2 / wheelBase * math.Tan(wheel)
	yaw := v.transform.Rotation.Yaw*math.Pi/180 + yawRate*dt/2
	v.transform.Location.X += ds * math.Cos(yaw)
	v.transform.Location.Y += ds * math.Sin(yaw)
	v.transform.Rotation.Yaw = normalizeYaw(v.transform.Rotation.Yaw + yawRate*dt*180/math.Pi)
	v.speed = speed
}

// driveAlongLane 沿车道行驶，到达车道终点后随机选择一条后继车道
func (v *Vehicle) driveAlongLane(dt float64) {
	v.speed = v.cruise
	s := v.s + v.speed*dt
	for s > v.lane.length {
		if len(v.lane.successors) == 0 {
			s = v.lane.length
			v.speed = 0
			break
		}
		s -= v.lane.length
		v.lane = randengine.Choice(v.rng, v.lane.successors)
	}
	v.s = s
	v.transform = v.lane.TransformByS(s)
}

// 计算本时刻的速度与移动距离
// v(t)=v(t-1)+acc*dt, ds=v(t-1)*dt+acc*dt*dt/2
func computeVAndDistance(v, a, dt float64) (float64, float64) {
	dv := a * dt
	if v+dv < 0 {
		// 刹车到停止
		if a == 0 {
			return 0, 0
		}
		return 0, v * v / 2 / -a
	}
	return v + dv, (v + dv/2) * dt
}

func normalizeYaw(yaw float64) float64 {
	yaw = math.Mod(yaw, 360)
	if yaw > 180 {
		yaw -= 360
	} else if yaw <= -180 {
		yaw += 360
	}
	return yaw
}
