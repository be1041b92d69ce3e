package world

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/navstack/entity"
	"github.com/tsinghua-fib-lab/navstack/navigation/misc"
	"github.com/tsinghua-fib-lab/navstack/utils/randengine"
	"gonum.org/v1/gonum/spatial/r3"
)

// World 内存中的世界：路网与全部参与者，实现entity.IWorld
// 说明：单线程推进，每个仿真步先由智能体读取状态并施加控制，再调用Update
type World struct {
	m      *Map
	rng    *randengine.Engine
	actors map[int32]entity.IActor

	vehicles []*Vehicle
	walkers  []*Walker
	lights   []*TrafficLight
}

var _ entity.IWorld = (*World)(nil)

// New 根据输入数据创建世界
// 参数：data-路网与场景数据，seed-背景车辆选择后继车道的随机种子
func New(data MapData, seed uint64) (*World, error) {
	m, err := NewMap(data)
	if err != nil {
		return nil, err
	}
	w := &World{
		m:      m,
		rng:    randengine.New(seed),
		actors: make(map[int32]entity.IActor),
	}
	for _, d := range data.TrafficLights {
		l, err := newTrafficLight(d)
		if err != nil {
			return nil, fmt.Errorf("traffic light %d: %w", d.ID, err)
		}
		if err := w.register(l); err != nil {
			return nil, err
		}
		w.lights = append(w.lights, l)
	}
	for _, d := range data.Vehicles {
		if _, err := w.SpawnAutopilot(d); err != nil {
			return nil, err
		}
	}
	for _, d := range data.Walkers {
		wk := NewWalker(d.ID, entity.Transform{Location: d.Location.Vec(), Rotation: entity.Rotation{Yaw: d.Yaw}}, d.Speed)
		if err := w.register(wk); err != nil {
			return nil, err
		}
		w.walkers = append(w.walkers, wk)
	}
	log.Infof("world: %d traffic lights, %d vehicles, %d walkers", len(w.lights), len(w.vehicles), len(w.walkers))
	return w, nil
}

func (w *World) register(a entity.IActor) error {
	if _, ok := w.actors[a.ID()]; ok {
		return fmt.Errorf("duplicated actor id %d", a.ID())
	}
	w.actors[a.ID()] = a
	return nil
}

// Map 路网
func (w *World) Map() entity.IMap {
	return w.m
}

// RoadMap 具体类型的路网
func (w *World) RoadMap() *Map {
	return w.m
}

// SpawnVehicle 在指定位置创建受控车辆
func (w *World) SpawnVehicle(id int32, transform entity.Transform) (*Vehicle, error) {
	v := &Vehicle{actor: newVehicleActor(id, transform, 0, 0), m: w.m}
	if err := w.register(v); err != nil {
		return nil, err
	}
	w.vehicles = append(w.vehicles, v)
	return v, nil
}

// SpawnAutopilot 在车道上创建沿车道巡航的背景车辆
func (w *World) SpawnAutopilot(d VehicleData) (*Vehicle, error) {
	lane, err := w.m.LaneOrError(d.LaneID)
	if err != nil {
		return nil, fmt.Errorf("vehicle %d: %w", d.ID, err)
	}
	s := lo.Clamp(d.S, 0, lane.length)
	v := &Vehicle{
		actor:     newVehicleActor(d.ID, lane.TransformByS(s), d.Length, d.Width),
		m:         w.m,
		autopilot: true,
		lane:      lane,
		s:         s,
		cruise:    d.Speed / 3.6,
		rng:       w.rng,
	}
	v.SetSpeed(v.cruise)
	if err := w.register(v); err != nil {
		return nil, err
	}
	w.vehicles = append(w.vehicles, v)
	return v, nil
}

// SpawnWalker 创建行人
func (w *World) SpawnWalker(id int32, transform entity.Transform, speed float64) (*Walker, error) {
	wk := NewWalker(id, transform, speed)
	if err := w.register(wk); err != nil {
		return nil, err
	}
	w.walkers = append(w.walkers, wk)
	return wk, nil
}

// TrafficLight 按ID获取信号灯
func (w *World) TrafficLight(id int32) (*TrafficLight, error) {
	for _, l := range w.lights {
		if l.id == id {
			return l, nil
		}
	}
	return nil, fmt.Errorf("traffic light %d not found", id)
}

// Actors 获取指定类别的全部参与者，按ID升序
func (w *World) Actors(kind entity.ActorKind) []entity.IActor {
	var res []entity.IActor
	switch kind {
	case entity.ActorVehicle:
		res = lo.Map(w.vehicles, func(v *Vehicle, _ int) entity.IActor { return v })
	case entity.ActorWalker:
		res = lo.Map(w.walkers, func(v *Walker, _ int) entity.IActor { return v })
	case entity.ActorTrafficLight:
		res = lo.Map(w.lights, func(v *TrafficLight, _ int) entity.IActor { return v })
	default:
		res = []entity.IActor{}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID() < res[j].ID() })
	return res
}

// ActorsInRange 获取以location为中心radius范围内的指定类别参与者，按ID升序
func (w *World) ActorsInRange(kind entity.ActorKind, location r3.Vec, radius float64) []entity.IActor {
	return lo.Filter(w.Actors(kind), func(a entity.IActor, _ int) bool {
		return misc.Distance(a.Transform().Location, location) <= radius
	})
}

// TrafficLights 全部信号灯
func (w *World) TrafficLights() []entity.ITrafficLight {
	return lo.Map(w.lights, func(l *TrafficLight, _ int) entity.ITrafficLight { return l })
}

// Update 推进一个时间步
func (w *World) Update(dt float64) {
	for _, l := range w.lights {
		l.update(dt)
	}
	for _, v := range w.vehicles {
		v.update(dt)
	}
	for _, wk := range w.walkers {
		wk.update(dt)
	}
}
