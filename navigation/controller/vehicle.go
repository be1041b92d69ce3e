package controller

import (
	"math"

	"github.com/tsinghua-fib-lab/navstack/entity"
	"github.com/tsinghua-fib-lab/navstack/utils/config"
)

const (
	maxSteerDelta = 0.1 // 每步转向的最大变化量
)

// Limits 执行器指令上限
type Limits struct {
	MaxThrottle float64
	MaxBrake    float64
	MaxSteering float64
}

// VehiclePID 组合横向与纵向PID的车辆控制器
// 功能：每个仿真步根据目标速度与目标路点生成一条执行器指令
// 说明：转向每步变化不超过0.1，并限制在最大转向范围内，用于避免指令突变
type VehiclePID struct {
	lon          *LongitudinalPID
	lat          *LateralPID
	limits       Limits
	pastSteering float64 // 上一步输出的转向
}

// NewVehiclePID 创建车辆控制器
// 参数：vehicle-受控车辆，lateral/longitudinal-PID参数，offset-横向偏移，limits-指令上限
// 说明：上一步转向从车辆当前的控制指令初始化
func NewVehiclePID(vehicle entity.IVehicle, lateral, longitudinal config.PIDParams, offset float64, limits Limits) *VehiclePID {
	return &VehiclePID{
		lon:          NewLongitudinalPID(vehicle, longitudinal),
		lat:          NewLateralPID(vehicle, lateral, offset),
		limits:       limits,
		pastSteering: vehicle.Control().Steer,
	}
}

// RunStep 计算一步控制指令
// 参数：targetSpeed-目标速度（km/h），waypoint-目标路点
// 返回：执行器指令
// 算法说明：
// 1. 纵向PID输出非负时作为油门（不超过最大油门），负值取绝对值作为刹车（不超过最大刹车）
// 2. 横向PID输出相对上一步转向的变化限制在±0.1
// 3. 转向限制在[-最大转向, 最大转向]
func (c *VehiclePID) RunStep(targetSpeed float64, waypoint entity.IWaypoint) entity.VehicleControl {
	acceleration := c.lon.RunStep(targetSpeed)
	steering := c.lat.RunStep(waypoint)
	return c.compose(acceleration, steering)
}

func (c *VehiclePID) compose(acceleration, steering float64) entity.VehicleControl {
	var control entity.VehicleControl
	if acceleration >= 0 {
		control.Throttle = math.Min(acceleration, c.limits.MaxThrottle)
		control.Brake = 0
	} else {
		control.Throttle = 0
		control.Brake = math.Min(math.Abs(acceleration), c.limits.MaxBrake)
	}

	// 转向变化率限制
	if steering > c.pastSteering+maxSteerDelta {
		steering = c.pastSteering + maxSteerDelta
	} else if steering < c.pastSteering-maxSteerDelta {
		steering = c.pastSteering - maxSteerDelta
	}
	if steering >= 0 {
		steering = math.Min(c.limits.MaxSteering, steering)
	} else {
		steering = math.Max(-c.limits.MaxSteering, steering)
	}
	control.Steer = steering
	control.HandBrake = false
	control.ManualGearShift = false
	c.pastSteering = steering
	return control
}

// ChangeLongitudinalPID 修改纵向PID参数
func (c *VehiclePID) ChangeLongitudinalPID(params config.PIDParams) {
	c.lon.ChangeParameters(params)
}

// ChangeLateralPID 修改横向PID参数
func (c *VehiclePID) ChangeLateralPID(params config.PIDParams) {
	c.lat.ChangeParameters(params)
}

// SetOffset 修改横向偏移
func (c *VehiclePID) SetOffset(offset float64) {
	c.lat.SetOffset(offset)
}
