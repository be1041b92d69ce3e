package task_test

import (
	"flag"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/navstack/entity"
	"github.com/tsinghua-fib-lab/navstack/entity/world"
	"github.com/tsinghua-fib-lab/navstack/navigation/agent"
	"github.com/tsinghua-fib-lab/navstack/navigation/route"
	"github.com/tsinghua-fib-lab/navstack/task"
	"github.com/tsinghua-fib-lab/navstack/utils/config"
	"github.com/tsinghua-fib-lab/navstack/utils/telemetry"
)

func newConfig(kind config.AgentKind, total int32) config.Config {
	return config.Config{
		Input:   config.Input{Map: config.InputPath{File: "map.yaml"}},
		Control: config.Control{Step: config.ControlStep{Total: total, Interval: 0.05}},
		Scenario: config.Scenario{
			Kind:  kind,
			Seed:  1,
			Spawn: config.Vec3{X: 5, Y: 0.5},
		},
	}
}

func TestRunToDestination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.db")
	recorder, err := telemetry.Open(path, "basic", "straight road")
	require.NoError(t, err)
	runID := recorder.RunID()

	c := newConfig(config.AgentBasic, 600)
	c.Scenario.Destination = &config.Vec3{X: 60}
	ctx, err := task.NewContext(c, world.StraightRoad(100), recorder)
	require.NoError(t, err)
	// 出生点被投影到车道中心线上
	assert.InDelta(t, 0, ctx.Ego().Transform().Location.Y, 1e-9)

	steps := ctx.Run()
	assert.Positive(t, steps)
	assert.LessOrEqual(t, steps, 600)
	assert.Greater(t, ctx.Ego().Transform().Location.X, 20.)

	reader, err := telemetry.Open(path, "reader", "")
	require.NoError(t, err)
	defer reader.Close()
	samples, err := reader.Samples(runID)
	require.NoError(t, err)
	require.Len(t, samples, steps)
	assert.Equal(t, int32(0), samples[0].Step)
	assert.Positive(t, samples[0].Throttle)
	assert.Equal(t, "LANEFOLLOW", samples[0].RoadOption)
}

func TestRandomRoam(t *testing.T) {
	c := newConfig(config.AgentBehavior, 50)
	c.Scenario.Spawn = config.Vec3{X: -45}
	ctx, err := task.NewContext(c, world.FourWayJunction(), nil)
	require.NoError(t, err)
	assert.IsType(t, &agent.BehaviorAgent{}, ctx.Agent())
	assert.Equal(t, 50, ctx.Run())
	assert.True(t, ctx.Clock().Done())
}

func TestCollisionStopsConstantVelocity(t *testing.T) {
	data := world.StraightRoad(100)
	data.Vehicles = []world.VehicleData{{ID: 7, LaneID: 1, S: 21}}
	c := newConfig(config.AgentConstantVelocity, 1)
	c.Scenario.Spawn = config.Vec3{X: 20}
	ctx, err := task.NewContext(c, data, nil)
	require.NoError(t, err)
	cv, ok := ctx.Agent().(*agent.ConstantVelocityAgent)
	require.True(t, ok)
	require.True(t, cv.Active())

	ctx.Run()
	assert.False(t, cv.Active())
}

func TestNewContextErrors(t *testing.T) {
	c := newConfig(config.AgentBasic, 10)
	c.Scenario.Spawn = config.Vec3{X: 5, Y: 40}
	_, err := task.NewContext(c, world.StraightRoad(100), nil)
	assert.ErrorIs(t, err, entity.ErrLocalization)

	c = newConfig(config.AgentBasic, 10)
	c.Scenario.Spawn = config.Vec3{Y: -30}
	c.Scenario.Destination = &config.Vec3{X: -30}
	_, err = task.NewContext(c, world.FourWayJunction(), nil)
	assert.ErrorIs(t, err, route.ErrRouteNotFound)

	c = newConfig(config.AgentBasic, 10)
	c.Control.Step.Interval = 0
	_, err = task.NewContext(c, world.StraightRoad(100), nil)
	assert.Error(t, err)

	c = newConfig(config.AgentBasic, 10)
	data := world.StraightRoad(100)
	data.Vehicles = []world.VehicleData{{ID: task.EgoID, LaneID: 1, S: 50}}
	_, err = task.NewContext(c, data, nil)
	assert.Error(t, err, "duplicated ego id")
}

func TestHeartbeat(t *testing.T) {
	assert.True(t, task.Heartbeat(200, 100))
	assert.False(t, task.Heartbeat(150, 100))
	assert.False(t, task.Heartbeat(0, 0))
	assert.False(t, task.Heartbeat(100, -1))

	f := flag.Lookup("log.heartbeat_interval")
	require.NotNil(t, f)
	old := f.Value.String()
	require.NoError(t, flag.Set("log.heartbeat_interval", "0"))
	t.Cleanup(func() { _ = flag.Set("log.heartbeat_interval", old) })

	c := newConfig(config.AgentBasic, 5)
	c.Scenario.Spawn = config.Vec3{X: -45}
	ctx, err := task.NewContext(c, world.FourWayJunction(), nil)
	require.NoError(t, err)
	assert.NotPanics(t, func() { ctx.Run() })
}
