package world_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/navstack/entity"
	"github.com/tsinghua-fib-lab/navstack/entity/world"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestMapWaypoint(t *testing.T) {
	m, err := world.NewMap(world.StraightRoad(100))
	require.NoError(t, err)

	wp, err := m.Waypoint(r3.Vec{X: 30, Y: 1}, entity.LaneTypeDriving)
	require.NoError(t, err)
	assert.Equal(t, int32(1), wp.RoadID())
	assert.InDelta(t, 30, wp.(*world.Waypoint).S(), 1e-9)
	assert.InDelta(t, 0, wp.Transform().Location.Y, 1e-9)
	assert.InDelta(t, 0, wp.Transform().Rotation.Yaw, 1e-9)

	_, err = m.Waypoint(r3.Vec{X: 30, Y: 10}, entity.LaneTypeDriving)
	assert.ErrorIs(t, err, entity.ErrLocalization)
	_, err = m.Waypoint(r3.Vec{X: 30}, entity.LaneTypeSidewalk)
	assert.ErrorIs(t, err, entity.ErrLocalization)
}

func TestWaypointNext(t *testing.T) {
	m, err := world.NewMap(world.StraightRoad(100))
	require.NoError(t, err)
	wp, err := m.WaypointOnLane(1, 20)
	require.NoError(t, err)
	next := wp.Next(5)
	require.Len(t, next, 1)
	assert.InDelta(t, 25, next[0].Transform().Location.X, 1e-9)
	// 路网尽头
	end, err := m.WaypointOnLane(1, 95)
	require.NoError(t, err)
	assert.Empty(t, end.Next(10))

	j, err := world.NewMap(world.FourWayJunction())
	require.NoError(t, err)
	wp, err = j.WaypointOnLane(1, 35)
	require.NoError(t, err)
	branches := wp.Next(10)
	require.Len(t, branches, 3)
	roads := make([]int32, 0, 3)
	for _, b := range branches {
		roads = append(roads, b.RoadID())
		assert.True(t, b.IsJunction())
	}
	assert.Equal(t, []int32{10, 11, 12}, roads)
	// 左转连接道先朝东，最终朝北（-y）
	left := branches[1].Transform()
	assert.Less(t, left.Location.Y, 0.)
}

func TestNeighborLanes(t *testing.T) {
	m, err := world.NewMap(world.TwoLaneRoad(60))
	require.NoError(t, err)
	wp, err := m.WaypointOnLane(1, 30)
	require.NoError(t, err)
	assert.True(t, wp.LaneChange().AllowRight())
	assert.False(t, wp.LaneChange().AllowLeft())
	assert.Nil(t, wp.LeftLane())
	right := wp.RightLane()
	require.NotNil(t, right)
	assert.Equal(t, int32(-2), right.LaneID())
	assert.InDelta(t, 30, right.Transform().Location.X, 1e-9)
	assert.InDelta(t, 3.5, right.Transform().Location.Y, 1e-9)
	back := right.LeftLane()
	require.NotNil(t, back)
	assert.Equal(t, int32(-1), back.LaneID())
}

func TestNewMapErrors(t *testing.T) {
	data := world.StraightRoad(10)
	data.Lanes = append(data.Lanes, data.Lanes[0])
	_, err := world.NewMap(data)
	assert.Error(t, err)

	data = world.StraightRoad(10)
	data.Lanes[0].Successors = []int32{42}
	_, err = world.NewMap(data)
	assert.Error(t, err)

	data = world.TwoLaneRoad(10)
	data.Lanes[1].Road = 2
	_, err = world.NewMap(data)
	assert.Error(t, err)

	data = world.StraightRoad(10)
	data.Lanes[0].CenterLine = data.Lanes[0].CenterLine[:1]
	_, err = world.NewMap(data)
	assert.Error(t, err)
}

func TestTopology(t *testing.T) {
	m, err := world.NewMap(world.FourWayJunction())
	require.NoError(t, err)
	topo := m.Topology()
	assert.Len(t, topo, 7)
	for _, seg := range topo {
		assert.True(t, entity.SameLane(seg.Entry, seg.Exit))
	}
}

func TestAutopilotVehicle(t *testing.T) {
	data := world.FourWayJunction()
	data.Vehicles = []world.VehicleData{{ID: 1, LaneID: 10, S: 0, Speed: 36}}
	w, err := world.New(data, 0)
	require.NoError(t, err)
	vs := w.Actors(entity.ActorVehicle)
	require.Len(t, vs, 1)
	for i := 0; i < 3; i++ {
		w.Update(1)
	}
	loc := vs[0].Transform().Location
	assert.InDelta(t, 20, loc.X, 1e-6)
	assert.InDelta(t, 0, loc.Y, 1e-6)
	assert.InDelta(t, 10, vs[0].Velocity().X, 1e-6)
}

func TestEgoVehicle(t *testing.T) {
	w, err := world.New(world.StraightRoad(100), 0)
	require.NoError(t, err)
	ego, err := w.SpawnVehicle(7, entity.Transform{Location: r3.Vec{X: 0}})
	require.NoError(t, err)
	assert.InDelta(t, 30, ego.SpeedLimit(), 1e-9)
	_, err = w.SpawnVehicle(7, entity.Transform{})
	assert.Error(t, err)

	ego.ApplyControl(entity.VehicleControl{Throttle: 1})
	for i := 0; i < 10; i++ {
		w.Update(0.1)
	}
	loc := ego.Transform().Location
	assert.InDelta(t, 1.75, loc.X, 1e-6)
	assert.InDelta(t, 0, loc.Y, 1e-9)
	assert.InDelta(t, 3.5, ego.Velocity().X, 1e-6)

	// 向右转向时y增大
	ego.ApplyControl(entity.VehicleControl{Throttle: 0.5, Steer: 0.5})
	for i := 0; i < 10; i++ {
		w.Update(0.1)
	}
	assert.Greater(t, ego.Transform().Location.Y, 0.)
	assert.Greater(t, ego.Transform().Rotation.Yaw, 0.)

	ego.ApplyControl(entity.VehicleControl{Brake: 1})
	for i := 0; i < 20; i++ {
		w.Update(0.1)
	}
	assert.InDelta(t, 0, r3.Norm(ego.Velocity()), 1e-9)
}

func TestTrafficLightCycle(t *testing.T) {
	data := world.StraightRoad(50)
	data.TrafficLights = []world.TrafficLightData{{ID: 5, State: "green", Green: 2, Yellow: 1, Red: 3}}
	w, err := world.New(data, 0)
	require.NoError(t, err)
	l, err := w.TrafficLight(5)
	require.NoError(t, err)

	w.Update(2.5)
	assert.Equal(t, entity.TrafficLightYellow, l.State())
	w.Update(1)
	assert.Equal(t, entity.TrafficLightRed, l.State())
	w.Update(3)
	assert.Equal(t, entity.TrafficLightGreen, l.State())

	l.SetState(entity.TrafficLightRed)
	assert.Equal(t, entity.TrafficLightRed, w.TrafficLights()[0].State())

	// 固定灯态
	fixed, err := world.New(world.FourWayJunction(), 0)
	require.NoError(t, err)
	fixed.Update(100)
	assert.Equal(t, entity.TrafficLightGreen, fixed.TrafficLights()[0].State())
	_, err = fixed.TrafficLight(1)
	assert.Error(t, err)
}

func TestActorsInRange(t *testing.T) {
	w, err := world.New(world.StraightRoad(100), 0)
	require.NoError(t, err)
	_, err = w.SpawnVehicle(3, entity.Transform{Location: r3.Vec{X: 40}})
	require.NoError(t, err)
	_, err = w.SpawnVehicle(1, entity.Transform{Location: r3.Vec{X: 10}})
	require.NoError(t, err)
	_, err = w.SpawnVehicle(2, entity.Transform{Location: r3.Vec{X: 90}})
	require.NoError(t, err)
	_, err = w.SpawnWalker(4, entity.Transform{Location: r3.Vec{X: 12, Y: 3}}, 1)
	require.NoError(t, err)

	ids := func(as []entity.IActor) []int32 {
		res := make([]int32, 0, len(as))
		for _, a := range as {
			res = append(res, a.ID())
		}
		return res
	}
	assert.Equal(t, []int32{1, 2, 3}, ids(w.Actors(entity.ActorVehicle)))
	assert.Equal(t, []int32{1, 3}, ids(w.ActorsInRange(entity.ActorVehicle, r3.Vec{X: 20}, 25)))
	assert.Equal(t, []int32{4}, ids(w.ActorsInRange(entity.ActorWalker, r3.Vec{X: 20}, 25)))
	assert.Empty(t, w.Actors(entity.ActorStopSign))

	w.Update(1)
	assert.InDelta(t, 13, w.Actors(entity.ActorWalker)[0].Transform().Location.X, 1e-9)
}

func TestConstantVelocityVehicle(t *testing.T) {
	w, err := world.New(world.StraightRoad(200), 1)
	require.NoError(t, err)
	ego, err := w.SpawnVehicle(1, entity.Transform{Location: r3.Vec{X: 10}})
	require.NoError(t, err)

	// 恒速模式下刹车被忽略
	ego.EnableConstantVelocity(5)
	ego.ApplyControl(entity.VehicleControl{Brake: 1})
	for i := 0; i < 10; i++ {
		w.Update(0.1)
	}
	assert.InDelta(t, 15, ego.Transform().Location.X, 1e-6)
	assert.InDelta(t, 5, ego.Velocity().X, 1e-9)

	// 手刹仍然生效
	ego.ApplyControl(entity.VehicleControl{HandBrake: true})
	w.Update(0.1)
	assert.Zero(t, ego.Velocity().X)

	ego.DisableConstantVelocity()
	ego.SetSpeed(5)
	ego.ApplyControl(entity.VehicleControl{Brake: 1})
	w.Update(0.1)
	assert.InDelta(t, 5-0.8, ego.Velocity().X, 1e-6)
}
