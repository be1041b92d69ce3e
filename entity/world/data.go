package world

import (
	"fmt"
	"strings"

	"github.com/tsinghua-fib-lab/navstack/entity"
	"gonum.org/v1/gonum/spatial/r3"
)

// Point YAML/BSON中的三维坐标
type Point struct {
	X float64 `yaml:"x" bson:"x"`
	Y float64 `yaml:"y" bson:"y"`
	Z float64 `yaml:"z,omitempty" bson:"z"`
}

// Vec 转换为r3.Vec
func (p Point) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// LaneData 车道输入数据
// 说明：中心线按行驶方向给出；左右相邻车道必须在同一道路内且方向相同
type LaneData struct {
	ID         int32   `yaml:"id" bson:"id"`                                         // 车道全局唯一ID
	Road       int32   `yaml:"road" bson:"road"`                                     // 道路ID
	Section    int32   `yaml:"section" bson:"section"`                               // 路段ID
	Lane       int32   `yaml:"lane" bson:"lane"`                                     // 道路内车道ID
	Type       string  `yaml:"type,omitempty" bson:"type"`                           // driving(缺省)/shoulder/sidewalk
	Width      float64 `yaml:"width" bson:"width"`                                   // 车道宽度（m）
	LaneChange string  `yaml:"lane_change,omitempty" bson:"lane_change"`             // none(缺省)/left/right/both
	Junction   bool    `yaml:"junction,omitempty" bson:"junction"`                   // 是否为路口内车道
	SpeedLimit float64 `yaml:"speed_limit,omitempty" bson:"speed_limit"`             // 限速（km/h），0表示缺省值
	CenterLine []Point `yaml:"center_line" bson:"center_line"`                       // 中心线
	Successors []int32 `yaml:"successors,omitempty" bson:"successors"`               // 后继车道ID
	LeftLane   *int32  `yaml:"left_lane,omitempty" bson:"left_lane,omitempty"`       // 左侧相邻车道ID
	RightLane  *int32  `yaml:"right_lane,omitempty" bson:"right_lane,omitempty"`     // 右侧相邻车道ID
}

// TrafficLightData 信号灯输入数据
type TrafficLightData struct {
	ID       int32   `yaml:"id" bson:"id"`
	Location Point   `yaml:"location" bson:"location"`
	Yaw      float64 `yaml:"yaw" bson:"yaw"`
	// 触发区域（相对信号灯的局部坐标）
	TriggerLocation Point `yaml:"trigger_location" bson:"trigger_location"`
	TriggerExtent   Point `yaml:"trigger_extent" bson:"trigger_extent"`
	// 初始灯态与各灯态持续时间（s），持续时间全为0时灯态固定
	State  string  `yaml:"state,omitempty" bson:"state"`
	Red    float64 `yaml:"red,omitempty" bson:"red"`
	Yellow float64 `yaml:"yellow,omitempty" bson:"yellow"`
	Green  float64 `yaml:"green,omitempty" bson:"green"`
}

// VehicleData 背景车辆输入数据
type VehicleData struct {
	ID     int32   `yaml:"id" bson:"id"`
	LaneID int32   `yaml:"lane_id" bson:"lane_id"` // 所在车道
	S      float64 `yaml:"s" bson:"s"`             // 车道上的位置
	Speed  float64 `yaml:"speed" bson:"speed"`     // 巡航速度（km/h），0表示静止
	Length float64 `yaml:"length,omitempty" bson:"length"`
	Width  float64 `yaml:"width,omitempty" bson:"width"`
}

// WalkerData 行人输入数据
type WalkerData struct {
	ID       int32   `yaml:"id" bson:"id"`
	Location Point   `yaml:"location" bson:"location"`
	Yaw      float64 `yaml:"yaw" bson:"yaw"`
	Speed    float64 `yaml:"speed,omitempty" bson:"speed"` // 沿朝向匀速移动（m/s）
}

// MapData 路网与场景输入数据
type MapData struct {
	Lanes         []LaneData         `yaml:"lanes" bson:"lanes"`
	TrafficLights []TrafficLightData `yaml:"traffic_lights,omitempty" bson:"traffic_lights"`
	Vehicles      []VehicleData      `yaml:"vehicles,omitempty" bson:"vehicles"`
	Walkers       []WalkerData       `yaml:"walkers,omitempty" bson:"walkers"`
}

func parseLaneType(s string) (entity.LaneType, error) {
	switch strings.ToLower(s) {
	case "", "driving":
		return entity.LaneTypeDriving, nil
	case "shoulder":
		return entity.LaneTypeShoulder, nil
	case "sidewalk":
		return entity.LaneTypeSidewalk, nil
	default:
		return entity.LaneTypeNone, fmt.Errorf("unknown lane type %q", s)
	}
}

func parseLaneChange(s string) (entity.LaneChange, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return entity.LaneChangeNone, nil
	case "left":
		return entity.LaneChangeLeft, nil
	case "right":
		return entity.LaneChangeRight, nil
	case "both":
		return entity.LaneChangeBoth, nil
	default:
		return entity.LaneChangeNone, fmt.Errorf("unknown lane change %q", s)
	}
}

func parseLightState(s string) (entity.TrafficLightState, error) {
	switch strings.ToLower(s) {
	case "", "green":
		return entity.TrafficLightGreen, nil
	case "red":
		return entity.TrafficLightRed, nil
	case "yellow":
		return entity.TrafficLightYellow, nil
	case "off":
		return entity.TrafficLightOff, nil
	default:
		return entity.TrafficLightUnknown, fmt.Errorf("unknown traffic light state %q", s)
	}
}
