package task

import (
	"flag"

	"github.com/tsinghua-fib-lab/navstack/entity"
	"github.com/tsinghua-fib-lab/navstack/navigation/misc"
	"github.com/tsinghua-fib-lab/navstack/utils/polygon"
	"github.com/tsinghua-fib-lab/navstack/utils/telemetry"
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数，不大于0时不输出")
)

// step 执行一个仿真步
// 算法说明：
// 1. 智能体读取世界状态计算控制指令，施加到受控车辆
// 2. 推进世界一个步长
// 3. 受控车辆开始与其他车辆接触时通知智能体
// 4. 写入遥测记录
// 返回：智能体是否已经走完全局路径
func (ctx *Context) step() bool {
	control := ctx.agent.RunStep()
	ctx.ego.ApplyControl(control)
	ctx.world.Update(ctx.clock.DT)

	other := ctx.collision()
	if other != nil && !ctx.colliding {
		log.Infof("step %d: collision with actor %d", ctx.clock.InternalStep, other.ID())
		if a, ok := ctx.agent.(collisionAware); ok {
			a.NotifyCollision()
		}
	}
	ctx.colliding = other != nil

	done := ctx.agent.Done()
	if ctx.recorder != nil {
		t := ctx.ego.Transform()
		option := entity.RoadOptionVoid
		if p, ok := ctx.agent.(planned); ok {
			option = p.LocalPlanner().TargetRoadOption()
		}
		if err := ctx.recorder.Record(telemetry.Sample{
			Step:       ctx.clock.InternalStep,
			T:          ctx.clock.T,
			X:          t.Location.X,
			Y:          t.Location.Y,
			Yaw:        t.Rotation.Yaw,
			Speed:      misc.Speed(ctx.ego),
			Throttle:   control.Throttle,
			Steer:      control.Steer,
			Brake:      control.Brake,
			RoadOption: option.String(),
			Done:       done,
		}); err != nil {
			log.Errorf("%v", err)
		}
	}
	return done
}

// collision 与受控车辆包围盒相交的第一辆车
func (ctx *Context) collision() entity.IActor {
	ego := polygon.Polygon(ctx.ego.BoundingBox().WorldVertices(ctx.ego.Transform()))
	for _, v := range ctx.world.Actors(entity.ActorVehicle) {
		if v.ID() == ctx.ego.ID() {
			continue
		}
		if ego.Intersects(polygon.Polygon(v.BoundingBox().WorldVertices(v.Transform()))) {
			return v
		}
	}
	return nil
}

// Run 运行直到结束步，或者有目的地时到达目的地
// 返回：实际运行的步数
func (ctx *Context) Run() int {
	ctx.clock.Init()
	steps := 0
	for !ctx.clock.Done() && !ctx.closed.Load() {
		done := ctx.step()
		steps++
		if heartbeat(ctx.clock.InternalStep, *heartBeatInterval) {
			hour, minute, second := ctx.clock.GetHourMinuteSecond()
			loc := ctx.ego.Transform().Location
			log.Infof("STEP: %d(%d:%d:%.2f) ego at (%.2f, %.2f) %.1fkm/h",
				ctx.clock.InternalStep, hour, minute, second, loc.X, loc.Y, misc.Speed(ctx.ego))
		}
		if done && ctx.hasDestination {
			log.Infof("step %d: destination reached", ctx.clock.InternalStep)
			break
		}
		ctx.clock.Next()
	}
	log.Infof("engine complete after %d steps", steps)
	ctx.Close()
	return steps
}

// heartbeat 第step步是否输出心跳日志，间隔不大于0时关闭心跳
func heartbeat(step int32, interval int) bool {
	return interval > 0 && step%int32(interval) == 0
}
