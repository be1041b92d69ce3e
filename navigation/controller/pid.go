package controller

import (
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/navstack/entity"
	"github.com/tsinghua-fib-lab/navstack/navigation/misc"
	"github.com/tsinghua-fib-lab/navstack/utils/config"
	"github.com/tsinghua-fib-lab/navstack/utils/container"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	errorBufferSize = 10 // PID误差历史长度
)

// pid 带有限长误差历史的PID计算
// 说明：误差历史不显式重置，旧的误差被环形缓冲区自然淘汰
type pid struct {
	params config.PIDParams
	errors *container.Deque[float64]
}

func newPID(params config.PIDParams) pid {
	return pid{params: params, errors: container.NewDeque[float64](errorBufferSize)}
}

// step 记录误差并计算输出
// 算法说明：
// 1. 误差入队（满时淘汰最旧的误差）
// 2. 历史不少于2个时：微分项为最近两次误差之差除以dt，积分项为历史误差之和乘以dt；否则二者为0
// 3. 输出截断到[-1, 1]
func (p *pid) step(e float64) float64 {
	p.errors.PushBack(e)
	var de, ie float64
	if n := p.errors.Len(); n >= 2 {
		de = (p.errors.At(n-1) - p.errors.At(n-2)) / p.params.DT
		sum := 0.
		for i := 0; i < n; i++ {
			sum += p.errors.At(i)
		}
		ie = sum * p.params.DT
	}
	return lo.Clamp(p.params.KP*e+p.params.KD*de+p.params.KI*ie, -1, 1)
}

// LongitudinalPID 纵向（速度）PID控制器
type LongitudinalPID struct {
	vehicle entity.IVehicle
	pid     pid
}

// NewLongitudinalPID 创建纵向PID控制器
func NewLongitudinalPID(vehicle entity.IVehicle, params config.PIDParams) *LongitudinalPID {
	if err := params.Validate(); err != nil {
		log.Panicf("longitudinal: %v", err)
	}
	return &LongitudinalPID{vehicle: vehicle, pid: newPID(params)}
}

// RunStep 根据目标速度（km/h）计算加速度指令，正值为油门，负值为刹车
func (c *LongitudinalPID) RunStep(targetSpeed float64) float64 {
	return c.Control(targetSpeed, misc.Speed(c.vehicle))
}

// Control 纯计算版本：给定目标速度与当前速度（km/h）
func (c *LongitudinalPID) Control(targetSpeed, currentSpeed float64) float64 {
	return c.pid.step(targetSpeed - currentSpeed)
}

// ChangeParameters 修改PID参数，误差历史保留
func (c *LongitudinalPID) ChangeParameters(params config.PIDParams) {
	c.pid.params = params
}

// LateralPID 横向（转向）PID控制器
type LateralPID struct {
	vehicle entity.IVehicle
	offset  float64 // 横向偏移（m，向右为正）
	pid     pid
}

// NewLateralPID 创建横向PID控制器
func NewLateralPID(vehicle entity.IVehicle, params config.PIDParams, offset float64) *LateralPID {
	if err := params.Validate(); err != nil {
		log.Panicf("lateral: %v", err)
	}
	return &LateralPID{vehicle: vehicle, offset: offset, pid: newPID(params)}
}

// RunStep 根据目标路点计算转向指令，正值向右
func (c *LateralPID) RunStep(waypoint entity.IWaypoint) float64 {
	return c.Control(waypoint.Transform(), c.vehicle.Transform())
}

// Control 纯计算版本：给定目标路点位姿与车辆位姿
// 算法说明：
// 1. 目标点按offset沿路点右向量平移
// 2. 误差为车辆朝向与车辆指向目标点的向量在水平面上的夹角
// 3. 叉积z分量为负（目标在左侧）时误差取负
// 说明：任一向量长度为0时视为已经对准，误差为0
func (c *LateralPID) Control(target, vehicle entity.Transform) float64 {
	wLoc := target.Location
	if c.offset != 0 {
		wLoc = r3.Add(wLoc, r3.Scale(c.offset, horizontal(target.RightVector())))
	}
	vVec := horizontal(vehicle.ForwardVector())
	wVec := horizontal(r3.Sub(wLoc, vehicle.Location))
	e := misc.AngleBetween(vVec, wVec)
	if r3.Cross(vVec, wVec).Z < 0 {
		e = -e
	}
	return c.pid.step(e)
}

// SetOffset 修改横向偏移
func (c *LateralPID) SetOffset(offset float64) {
	c.offset = offset
}

// ChangeParameters 修改PID参数，误差历史保留
func (c *LateralPID) ChangeParameters(params config.PIDParams) {
	c.pid.params = params
}

func horizontal(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.X, Y: v.Y}
}
