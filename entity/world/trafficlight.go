package world

import (
	"github.com/tsinghua-fib-lab/navstack/entity"
	"gonum.org/v1/gonum/spatial/r3"
)

// TrafficLight 固定周期信号灯
// 功能：按 绿→黄→红→绿 的顺序循环切换；各灯态持续时间都为0时保持初始灯态
type TrafficLight struct {
	actor
	trigger   entity.BoundingBox
	state     entity.TrafficLightState
	durations map[entity.TrafficLightState]float64
	remaining float64 // 当前灯态剩余时间（s）
}

var _ entity.ITrafficLight = (*TrafficLight)(nil)

func newTrafficLight(data TrafficLightData) (*TrafficLight, error) {
	state, err := parseLightState(data.State)
	if err != nil {
		return nil, err
	}
	l := &TrafficLight{
		actor: actor{
			id:   data.ID,
			kind: entity.ActorTrafficLight,
			transform: entity.Transform{
				Location: data.Location.Vec(),
				Rotation: entity.Rotation{Yaw: data.Yaw},
			},
			bbox: entity.BoundingBox{Extent: r3.Vec{X: 0.3, Y: 0.3, Z: 2}},
		},
		trigger: entity.BoundingBox{
			Location: data.TriggerLocation.Vec(),
			Extent:   data.TriggerExtent.Vec(),
		},
		state: state,
		durations: map[entity.TrafficLightState]float64{
			entity.TrafficLightGreen:  data.Green,
			entity.TrafficLightYellow: data.Yellow,
			entity.TrafficLightRed:    data.Red,
		},
	}
	l.remaining = l.durations[state]
	return l, nil
}

// State 当前灯态
func (l *TrafficLight) State() entity.TrafficLightState {
	return l.state
}

// TriggerVolume 触发区域（局部坐标）
func (l *TrafficLight) TriggerVolume() entity.BoundingBox {
	return l.trigger
}

// SetState 强制设置灯态并重新开始计时
func (l *TrafficLight) SetState(state entity.TrafficLightState) {
	l.state = state
	l.remaining = l.durations[state]
}

func (l *TrafficLight) cycling() bool {
	return l.durations[entity.TrafficLightGreen]+l.durations[entity.TrafficLightYellow]+l.durations[entity.TrafficLightRed] > 0
}

func (l *TrafficLight) update(dt float64) {
	if !l.cycling() {
		return
	}
	l.remaining -= dt
	for l.remaining <= 0 {
		switch l.state {
		case entity.TrafficLightGreen:
			l.state = entity.TrafficLightYellow
		case entity.TrafficLightYellow:
			l.state = entity.TrafficLightRed
		default:
			l.state = entity.TrafficLightGreen
		}
		l.remaining += l.durations[l.state]
	}
}
