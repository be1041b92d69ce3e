// 导航模块共用的几何与运动学工具函数
package misc

import (
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/navstack/entity"
	"gonum.org/v1/gonum/spatial/r3"
)

// Speed 参与者速度（km/h）
func Speed(actor entity.IActor) float64 {
	return 3.6 * r3.Norm(actor.Velocity())
}

// Distance 三维欧氏距离
func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// Distance2D 平面欧氏距离
func Distance2D(a, b r3.Vec) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// DistanceVehicle 路点到车辆的平面距离
func DistanceVehicle(waypoint entity.IWaypoint, vehicle entity.Transform) float64 {
	return Distance2D(waypoint.Transform().Location, vehicle.Location)
}

// UnitVector 由from指向to的单位向量，两点重合时返回零向量
func UnitVector(from, to r3.Vec) r3.Vec {
	d := r3.Sub(to, from)
	n := r3.Norm(d)
	if n < 1e-12 {
		return r3.Vec{}
	}
	return r3.Scale(1/n, d)
}

// AngleBetween 两个向量的夹角（弧度，[0,π]）
// 说明：任一向量为零向量时视为同向，返回0
func AngleBetween(a, b r3.Vec) float64 {
	na, nb := r3.Norm(a), r3.Norm(b)
	if na*nb == 0 {
		return 0
	}
	return math.Acos(lo.Clamp(r3.Dot(a, b)/(na*nb), -1, 1))
}

// IsWithinDistance 判断目标是否在参考位姿的指定距离与角度区间内
// 参数：target-目标位姿，reference-参考位姿，maxDistance-最大距离，angleInterval-角度区间（度），为nil时不检查角度
// 返回：是否满足条件
// 算法说明：
// 1. 两点（平面）几乎重合时直接返回true
// 2. 距离超过maxDistance时返回false
// 3. 计算参考朝向与目标方向的夹角，要求落在闭区间[min, max]内
func IsWithinDistance(target, reference entity.Transform, maxDistance float64, angleInterval *[2]float64) bool {
	dx := target.Location.X - reference.Location.X
	dy := target.Location.Y - reference.Location.Y
	norm := math.Hypot(dx, dy)
	if norm < 0.001 {
		return true
	}
	if norm > maxDistance {
		return false
	}
	if angleInterval == nil {
		return true
	}
	fwd := reference.ForwardVector()
	angle := rad2deg(math.Acos(lo.Clamp((fwd.X*dx+fwd.Y*dy)/norm, -1, 1)))
	return angleInterval[0] <= angle && angle <= angleInterval[1]
}

// ComputeMagnitudeAngle 目标相对当前位置的距离与相对朝向的夹角（度）
func ComputeMagnitudeAngle(target, current r3.Vec, yawDeg float64) (float64, float64) {
	dx, dy := target.X-current.X, target.Y-current.Y
	norm := math.Hypot(dx, dy)
	if norm == 0 {
		return 0, 0
	}
	fx, fy := math.Cos(deg2rad(yawDeg)), math.Sin(deg2rad(yawDeg))
	angle := rad2deg(math.Acos(lo.Clamp((fx*dx+fy*dy)/norm, -1, 1)))
	return norm, angle
}

// TrafficLightTriggerLocation 信号灯触发区域中心的全局坐标
func TrafficLightTriggerLocation(light entity.ITrafficLight) r3.Vec {
	return light.Transform().TransformPoint(light.TriggerVolume().Location)
}

// Positive 负数截断为0
func Positive(x float64) float64 {
	return math.Max(x, 0)
}

// NormalizeAngleDeg 将角度规整到(-180, 180]
func NormalizeAngleDeg(a float64) float64 {
	a = math.Mod(a, 360)
	if a > 180 {
		a -= 360
	} else if a <= -180 {
		a += 360
	}
	return a
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }
