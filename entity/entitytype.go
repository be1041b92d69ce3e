package entity

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrLocalization 位置无法匹配到路网（离开道路或拓扑不连通）
var ErrLocalization = errors.New("location cannot be matched to the road network")

// 路网上的点，由仿真器（或entity/world）提供的不可变快照
type IWaypoint interface {
	Transform() Transform   // 获取位姿
	RoadID() int32          // 获取道路ID
	SectionID() int32       // 获取路段ID
	LaneID() int32          // 获取车道ID
	LaneWidth() float64     // 获取车道宽度
	LaneType() LaneType     // 获取车道类型
	LaneChange() LaneChange // 获取车道标线允许的变道方向
	IsJunction() bool       // 是否位于路口内

	Next(distance float64) []IWaypoint // 沿行驶方向前进distance后的点（路口处可能有多个分支）
	LeftLane() IWaypoint               // 左侧相邻车道上的对应点，不存在时为nil
	RightLane() IWaypoint              // 右侧相邻车道上的对应点，不存在时为nil
}

// TopologySegment 拓扑单元：一段车道的起终点
type TopologySegment struct {
	Entry IWaypoint
	Exit  IWaypoint
}

// 仿真中的参与者（车辆、行人、信号灯等）
type IActor interface {
	ID() int32                // 获取参与者ID
	Kind() ActorKind          // 获取参与者类别
	Transform() Transform     // 获取位姿
	BoundingBox() BoundingBox // 获取包围盒
	Velocity() r3.Vec         // 获取速度向量（m/s）
}

// 车辆
type IVehicle interface {
	IActor
	Control() VehicleControl // 获取最近一次施加的控制指令
	SpeedLimit() float64     // 获取当前所在道路限速（km/h）
}

// 信号灯
type ITrafficLight interface {
	IActor
	State() TrafficLightState   // 获取当前灯态
	TriggerVolume() BoundingBox // 获取触发区域（局部坐标）
}

// 执行器：每个仿真步接收一次控制指令
type IActuator interface {
	ApplyControl(control VehicleControl)
}

// 支持恒速模式的车辆：恒速模式下忽略油门与刹车，沿车头方向按给定速度行驶
type IConstantVelocityVehicle interface {
	IVehicle
	EnableConstantVelocity(speed float64) // 启用恒速模式（m/s）
	DisableConstantVelocity()             // 关闭恒速模式
}

// 受控车辆：既能读取状态也能接收控制指令
type IEgoVehicle interface {
	IVehicle
	IActuator
}

// SameLane 判断两个路点是否位于同一车道
func SameLane(a, b IWaypoint) bool {
	return a.RoadID() == b.RoadID() && a.SectionID() == b.SectionID() && a.LaneID() == b.LaneID()
}
