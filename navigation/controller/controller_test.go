package controller_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/navstack/entity"
	"github.com/tsinghua-fib-lab/navstack/navigation/controller"
	"github.com/tsinghua-fib-lab/navstack/utils/config"
	"gonum.org/v1/gonum/spatial/r3"
)

type fakeVehicle struct {
	transform entity.Transform
	velocity  r3.Vec
	control   entity.VehicleControl
}

func (v *fakeVehicle) ID() int32                        { return 1 }
func (v *fakeVehicle) Kind() entity.ActorKind           { return entity.ActorVehicle }
func (v *fakeVehicle) Transform() entity.Transform      { return v.transform }
func (v *fakeVehicle) BoundingBox() entity.BoundingBox  { return entity.BoundingBox{Extent: r3.Vec{X: 2, Y: 1, Z: 1}} }
func (v *fakeVehicle) Velocity() r3.Vec                 { return v.velocity }
func (v *fakeVehicle) Control() entity.VehicleControl   { return v.control }
func (v *fakeVehicle) SpeedLimit() float64              { return 30 }

type fakeWaypoint struct {
	entity.IWaypoint
	transform entity.Transform
}

func (w fakeWaypoint) Transform() entity.Transform { return w.transform }

func wpAt(x, y, yaw float64) fakeWaypoint {
	return fakeWaypoint{transform: entity.Transform{Location: r3.Vec{X: x, Y: y}, Rotation: entity.Rotation{Yaw: yaw}}}
}

func TestLongitudinalIntegralSaturates(t *testing.T) {
	v := &fakeVehicle{}
	c := controller.NewLongitudinalPID(v, config.PIDParams{KP: 0, KI: 1, KD: 0, DT: 0.01})

	// 前两个样本之前积分项为0
	assert.Zero(t, c.Control(0.5, 0))
	for n := 2; n <= 10; n++ {
		assert.InDelta(t, 0.5*float64(n)*0.01, c.Control(0.5, 0), 1e-12)
	}
	// 缓冲区饱和后保持 error × 容量 × dt
	for i := 0; i < 20; i++ {
		assert.InDelta(t, 0.5*10*0.01, c.Control(0.5, 0), 1e-12)
	}
}

func TestLongitudinalClipAndDerivative(t *testing.T) {
	v := &fakeVehicle{velocity: r3.Vec{X: 10 / 3.6}}
	c := controller.NewLongitudinalPID(v, config.DefaultPIDParams())
	assert.InDelta(t, 1, c.RunStep(100), 1e-12)
	assert.InDelta(t, -1, c.RunStep(0), 1e-12)

	d := controller.NewLongitudinalPID(v, config.PIDParams{KD: 0.01, DT: 0.1})
	assert.Zero(t, d.Control(1, 0))
	// de = (3-1)/0.1 = 20
	assert.InDelta(t, 0.2, d.Control(3, 0), 1e-12)
}

func TestLateralSign(t *testing.T) {
	v := &fakeVehicle{transform: entity.Transform{Rotation: entity.Rotation{Yaw: 0}}}
	params := config.PIDParams{KP: 1, DT: 0.05}

	right := controller.NewLateralPID(v, params, 0)
	assert.Greater(t, right.RunStep(wpAt(5, 2, 0)), 0.0)
	left := controller.NewLateralPID(v, params, 0)
	assert.Less(t, left.RunStep(wpAt(5, -2, 0)), 0.0)
	ahead := controller.NewLateralPID(v, params, 0)
	assert.InDelta(t, 0, ahead.RunStep(wpAt(5, 0, 0)), 1e-12)
	// 目标点与车辆重合时视为对准
	same := controller.NewLateralPID(v, params, 0)
	assert.Zero(t, same.RunStep(wpAt(0, 0, 0)))
}

func TestLateralOffset(t *testing.T) {
	v := &fakeVehicle{}
	params := config.PIDParams{KP: 1, DT: 0.05}
	c := controller.NewLateralPID(v, params, 1.5)
	// 目标在正前方，向右偏移后应向右转
	assert.Greater(t, c.RunStep(wpAt(5, 0, 0)), 0.0)
	c.SetOffset(-1.5)
	assert.Less(t, c.RunStep(wpAt(5, 0, 0)), 0.0)
}

func TestVehiclePIDLimits(t *testing.T) {
	v := &fakeVehicle{control: entity.VehicleControl{Steer: 0.05}}
	c := controller.NewVehiclePID(v,
		config.PIDParams{KP: 10, DT: 0.05},
		config.PIDParams{KP: 1, DT: 0.05},
		0,
		controller.Limits{MaxThrottle: 0.75, MaxBrake: 0.3, MaxSteering: 0.8},
	)
	target := wpAt(2, 10, 0)

	ctrl := c.RunStep(50, target)
	assert.InDelta(t, 0.75, ctrl.Throttle, 1e-12)
	assert.Zero(t, ctrl.Brake)
	assert.InDelta(t, 0.15, ctrl.Steer, 1e-12, "steering rate limited from the current control")
	assert.False(t, ctrl.HandBrake)

	for i := 0; i < 20; i++ {
		ctrl = c.RunStep(50, target)
	}
	assert.InDelta(t, 0.8, ctrl.Steer, 1e-12, "steering clamped to max")

	v.velocity = r3.Vec{X: 20}
	ctrl = c.RunStep(0, target)
	assert.Zero(t, ctrl.Throttle)
	assert.InDelta(t, 0.3, ctrl.Brake, 1e-12)
}

func TestBadParamsPanic(t *testing.T) {
	assert.Panics(t, func() {
		controller.NewLateralPID(&fakeVehicle{}, config.PIDParams{KP: 1}, 0)
	})
}
