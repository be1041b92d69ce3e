package entity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// RoadOption 路径上每个点的机动类型
// 说明：取值与仿真器中的枚举保持一致，顺序与相等性会影响行为分支
type RoadOption int32

const (
	RoadOptionVoid            RoadOption = -1 // 无效
	RoadOptionLeft            RoadOption = 1  // 路口左转
	RoadOptionRight           RoadOption = 2  // 路口右转
	RoadOptionStraight        RoadOption = 3  // 路口直行
	RoadOptionLaneFollow      RoadOption = 4  // 沿车道行驶
	RoadOptionChangeLaneLeft  RoadOption = 5  // 向左变道
	RoadOptionChangeLaneRight RoadOption = 6  // 向右变道
)

func (o RoadOption) String() string {
	switch o {
	case RoadOptionVoid:
		return "VOID"
	case RoadOptionLeft:
		return "LEFT"
	case RoadOptionRight:
		return "RIGHT"
	case RoadOptionStraight:
		return "STRAIGHT"
	case RoadOptionLaneFollow:
		return "LANEFOLLOW"
	case RoadOptionChangeLaneLeft:
		return "CHANGELANELEFT"
	case RoadOptionChangeLaneRight:
		return "CHANGELANERIGHT"
	default:
		return fmt.Sprintf("RoadOption(%d)", int32(o))
	}
}

// IsLaneChange 是否为变道机动
func (o RoadOption) IsLaneChange() bool {
	return o == RoadOptionChangeLaneLeft || o == RoadOptionChangeLaneRight
}

// LaneChange 车道标线允许的变道方向（位掩码）
type LaneChange uint8

const (
	LaneChangeNone  LaneChange = 0
	LaneChangeRight LaneChange = 1
	LaneChangeLeft  LaneChange = 2
	LaneChangeBoth  LaneChange = LaneChangeRight | LaneChangeLeft
)

// AllowRight 是否允许向右变道
func (c LaneChange) AllowRight() bool { return c&LaneChangeRight != 0 }

// AllowLeft 是否允许向左变道
func (c LaneChange) AllowLeft() bool { return c&LaneChangeLeft != 0 }

func (c LaneChange) String() string {
	switch c {
	case LaneChangeNone:
		return "None"
	case LaneChangeRight:
		return "Right"
	case LaneChangeLeft:
		return "Left"
	case LaneChangeBoth:
		return "Both"
	default:
		return fmt.Sprintf("LaneChange(%d)", uint8(c))
	}
}

// LaneType 车道类型（位掩码，查询时可以组合）
type LaneType uint32

const (
	LaneTypeNone     LaneType = 0
	LaneTypeDriving  LaneType = 1 << 1
	LaneTypeShoulder LaneType = 1 << 3
	LaneTypeSidewalk LaneType = 1 << 5
	LaneTypeAny      LaneType = 0xFFFFFFFE
)

// Match 判断车道类型是否落在查询掩码中
func (t LaneType) Match(mask LaneType) bool {
	return t&mask != 0
}

// TrafficLightState 信号灯状态
type TrafficLightState int32

const (
	TrafficLightRed TrafficLightState = iota
	TrafficLightYellow
	TrafficLightGreen
	TrafficLightOff
	TrafficLightUnknown
)

func (s TrafficLightState) String() string {
	switch s {
	case TrafficLightRed:
		return "Red"
	case TrafficLightYellow:
		return "Yellow"
	case TrafficLightGreen:
		return "Green"
	case TrafficLightOff:
		return "Off"
	default:
		return "Unknown"
	}
}

// ActorKind 参与者类别，用于按类别筛选
type ActorKind int32

const (
	ActorVehicle ActorKind = iota
	ActorWalker
	ActorTrafficLight
	ActorStopSign
)

// Rotation 姿态角（角度制）
// 说明：坐标系约定为x向前、y向右、z向上，yaw顺时针增大
type Rotation struct {
	Pitch float64 `yaml:"pitch" bson:"pitch"`
	Yaw   float64 `yaml:"yaw" bson:"yaw"`
	Roll  float64 `yaml:"roll" bson:"roll"`
}

// ForwardVector 朝向单位向量
func (r Rotation) ForwardVector() r3.Vec {
	cp, sp := math.Cos(deg2rad(r.Pitch)), math.Sin(deg2rad(r.Pitch))
	cy, sy := math.Cos(deg2rad(r.Yaw)), math.Sin(deg2rad(r.Yaw))
	return r3.Vec{X: cp * cy, Y: cp * sy, Z: sp}
}

// RightVector 右侧单位向量
func (r Rotation) RightVector() r3.Vec {
	cp, sp := math.Cos(deg2rad(r.Pitch)), math.Sin(deg2rad(r.Pitch))
	cy, sy := math.Cos(deg2rad(r.Yaw)), math.Sin(deg2rad(r.Yaw))
	cr, sr := math.Cos(deg2rad(r.Roll)), math.Sin(deg2rad(r.Roll))
	return r3.Vec{
		X: cy*sp*sr - sy*cr,
		Y: sy*sp*sr + cy*cr,
		Z: -cp * sr,
	}
}

// Transform 位姿
type Transform struct {
	Location r3.Vec
	Rotation Rotation
}

// ForwardVector 朝向单位向量
func (t Transform) ForwardVector() r3.Vec {
	return t.Rotation.ForwardVector()
}

// RightVector 右侧单位向量
func (t Transform) RightVector() r3.Vec {
	return t.Rotation.RightVector()
}

// TransformPoint 将局部坐标变换到全局坐标
// 说明：只考虑yaw，俯仰与横滚忽略
func (t Transform) TransformPoint(local r3.Vec) r3.Vec {
	cy, sy := math.Cos(deg2rad(t.Rotation.Yaw)), math.Sin(deg2rad(t.Rotation.Yaw))
	return r3.Vec{
		X: t.Location.X + local.X*cy - local.Y*sy,
		Y: t.Location.Y + local.X*sy + local.Y*cy,
		Z: t.Location.Z + local.Z,
	}
}

func (t Transform) String() string {
	return fmt.Sprintf("Transform{(%.2f,%.2f,%.2f) yaw=%.1f}", t.Location.X, t.Location.Y, t.Location.Z, t.Rotation.Yaw)
}

// BoundingBox 包围盒，Location为相对参与者的局部坐标，Extent为半长
type BoundingBox struct {
	Location r3.Vec
	Extent   r3.Vec
	Rotation Rotation
}

// WorldVertices 包围盒底面四个角点的全局坐标，按凸多边形顶点顺序给出
func (b BoundingBox) WorldVertices(actor Transform) []r3.Vec {
	corners := []r3.Vec{
		{X: b.Extent.X, Y: b.Extent.Y},
		{X: b.Extent.X, Y: -b.Extent.Y},
		{X: -b.Extent.X, Y: -b.Extent.Y},
		{X: -b.Extent.X, Y: b.Extent.Y},
	}
	local := Transform{Location: b.Location, Rotation: b.Rotation}
	res := make([]r3.Vec, 0, len(corners))
	for _, c := range corners {
		res = append(res, actor.TransformPoint(local.TransformPoint(c)))
	}
	return res
}

// VehicleControl 执行器指令，每个仿真步产生一次
type VehicleControl struct {
	Throttle        float64 // [0,1]
	Steer           float64 // [-1,1]，正值向右
	Brake           float64 // [0,1]
	HandBrake       bool
	ManualGearShift bool
}

func (c VehicleControl) String() string {
	return fmt.Sprintf("VehicleControl{throttle=%.3f steer=%.3f brake=%.3f hand_brake=%v}", c.Throttle, c.Steer, c.Brake, c.HandBrake)
}

// DetectionResult 障碍物/信号灯检测结果
// 说明：Found为false时Subject一定为nil，Distance为-1
type DetectionResult struct {
	Found    bool
	Subject  IActor
	Distance float64
}

// NoDetection 未检测到任何对象
func NoDetection() DetectionResult {
	return DetectionResult{Found: false, Subject: nil, Distance: -1}
}

// RoutePoint 全局路径中的一个点
type RoutePoint struct {
	Waypoint IWaypoint
	Option   RoadOption
}

func deg2rad(d float64) float64 {
	return d * math.Pi / 180
}
