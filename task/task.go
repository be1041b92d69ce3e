// 运行任务：把智能体、世界、时钟与遥测记录组装成闭环仿真
package task

import (
	"fmt"
	"sync/atomic"

	"github.com/tsinghua-fib-lab/navstack/clock"
	"github.com/tsinghua-fib-lab/navstack/entity"
	"github.com/tsinghua-fib-lab/navstack/entity/world"
	"github.com/tsinghua-fib-lab/navstack/navigation/agent"
	"github.com/tsinghua-fib-lab/navstack/navigation/local"
	"github.com/tsinghua-fib-lab/navstack/navigation/route"
	"github.com/tsinghua-fib-lab/navstack/utils/config"
	"github.com/tsinghua-fib-lab/navstack/utils/telemetry"
	"gonum.org/v1/gonum/spatial/r3"
)

// EgoID 受控车辆的参与者ID，输入数据中的其他参与者不能使用
const EgoID int32 = 0

// Context 仿真任务上下文
// 功能：包含一次仿真任务的所有组件与状态
// 说明：单线程推进；recorder为nil时不记录遥测
type Context struct {
	// 关闭指令
	closed atomic.Bool

	// 时钟
	clock *clock.Clock
	// 运行时配置
	runtimeConfig *config.RuntimeConfig

	world  *world.World
	ego    *world.Vehicle
	global *route.GlobalPlanner
	agent  agent.Agent

	// 是否设置了目的地，没有目的地时随机漫游直到结束步
	hasDestination bool
	// 上一步是否处于碰撞中
	colliding bool
	recorder  *telemetry.Recorder
}

// planned 可以读取局部规划器的智能体
type planned interface {
	LocalPlanner() *local.Planner
}

// collisionAware 需要碰撞通知的智能体
type collisionAware interface {
	NotifyCollision()
}

// NewContext 创建仿真任务上下文
// 参数：c-配置，data-路网与场景数据，recorder-遥测记录器（可为nil）
// 返回：初始化完成的上下文；配置不合法、出生点不在路网上、目的地不可达时返回错误
// 算法说明：
// 1. 校验配置并补全缺省值
// 2. 创建世界，把出生点投影到最近的可行驶车道上放置受控车辆
// 3. 构建全局规划器与智能体，有目的地时规划路径
func NewContext(c config.Config, data world.MapData, recorder *telemetry.Recorder) (*Context, error) {
	rc, err := config.NewRuntimeConfig(c)
	if err != nil {
		return nil, err
	}
	ctx := &Context{
		clock:         clock.New(c.Control.Step),
		runtimeConfig: rc,
		recorder:      recorder,
	}
	sc := c.Scenario

	if ctx.world, err = world.New(data, sc.Seed); err != nil {
		return nil, err
	}
	spawn, err := ctx.world.Map().Waypoint(vec(sc.Spawn), entity.LaneTypeDriving)
	if err != nil {
		return nil, fmt.Errorf("spawn: %w", err)
	}
	if ctx.ego, err = ctx.world.SpawnVehicle(EgoID, spawn.Transform()); err != nil {
		return nil, err
	}

	ctx.global = route.NewGlobalPlanner(ctx.world.Map(), rc.Agent.SamplingResolution)
	if ctx.agent, err = agent.New(rc, ctx.ego, ctx.world, ctx.global, ctx.clock); err != nil {
		return nil, err
	}
	if sc.Destination != nil {
		if err := ctx.agent.SetDestination(vec(*sc.Destination), nil, true); err != nil {
			return nil, fmt.Errorf("destination: %w", err)
		}
		ctx.hasDestination = true
	}
	log.Infof("%s agent spawned at %v", sc.Kind, spawn)
	return ctx, nil
}

func vec(v config.Vec3) r3.Vec {
	return r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

func (ctx *Context) World() *world.World {
	return ctx.world
}

func (ctx *Context) Ego() *world.Vehicle {
	return ctx.ego
}

func (ctx *Context) GlobalPlanner() *route.GlobalPlanner {
	return ctx.global
}

func (ctx *Context) Agent() agent.Agent {
	return ctx.agent
}

// Close 停止运行并关闭遥测记录
func (ctx *Context) Close() {
	if ctx.closed.Swap(true) {
		return
	}
	if ctx.recorder != nil {
		if err := ctx.recorder.Close(); err != nil {
			log.Errorf("close recorder: %v", err)
		}
	}
}
