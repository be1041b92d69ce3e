package entity

import "gonum.org/v1/gonum/spatial/r3"

// 路网查询接口
type IMap interface {
	// 将位置投影到最近的指定类型车道上，无法匹配时返回ErrLocalization
	Waypoint(location r3.Vec, laneType LaneType) (IWaypoint, error)
	// 获取全部拓扑单元
	Topology() []TopologySegment
}

// 世界状态查询接口
type IWorld interface {
	Map() IMap // 获取路网

	Actors(kind ActorKind) []IActor                                         // 获取指定类别的全部参与者
	ActorsInRange(kind ActorKind, location r3.Vec, radius float64) []IActor // 获取指定范围内的指定类别参与者
	TrafficLights() []ITrafficLight                                         // 获取全部信号灯
}
