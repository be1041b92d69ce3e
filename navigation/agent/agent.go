// 驾驶智能体：在局部规划器之上做障碍物、信号灯与跟车决策，每个仿真步输出一条控制指令
package agent

import (
	"fmt"

	"github.com/tsinghua-fib-lab/navstack/entity"
	"github.com/tsinghua-fib-lab/navstack/navigation/route"
	"github.com/tsinghua-fib-lab/navstack/utils/config"
	"github.com/tsinghua-fib-lab/navstack/utils/randengine"
	"gonum.org/v1/gonum/spatial/r3"
)

// Agent 驾驶智能体
type Agent interface {
	// 设置目的地，start为nil时从当前计划的位置出发
	SetDestination(end r3.Vec, start *r3.Vec, cleanQueue bool) error
	// 计算一步控制指令
	RunStep() entity.VehicleControl
	// 路点队列是否已经走完
	Done() bool
}

var (
	_ Agent = (*BasicAgent)(nil)
	_ Agent = (*BehaviorAgent)(nil)
	_ Agent = (*ConstantVelocityAgent)(nil)
)

// TimeSource 仿真时间来源（秒）
type TimeSource interface {
	Now() float64
}

// New 按运行时配置创建智能体
// 参数：rc-运行时配置，ego-受控车辆，w-世界，global-共享的全局规划器（可为nil），clock-仿真时间
// 返回：智能体；恒速智能体要求车辆支持恒速模式
func New(rc *config.RuntimeConfig, ego entity.IEgoVehicle, w entity.IWorld, global *route.GlobalPlanner, clock TimeSource) (Agent, error) {
	sc := rc.All.Scenario
	rng := randengine.New(sc.Seed)
	switch sc.Kind {
	case config.AgentBasic:
		return NewBasicAgent(ego, w, rc.Agent, global, rng)
	case config.AgentBehavior:
		behavior := rc.Behavior
		if behavior == nil {
			normal, _ := config.BehaviorPreset("normal")
			behavior = &normal
		}
		return NewBehaviorAgent(ego, w, rc.Agent, *behavior, global, rng)
	case config.AgentConstantVelocity:
		cv, ok := ego.(entity.IConstantVelocityVehicle)
		if !ok {
			return nil, fmt.Errorf("vehicle %d does not support constant velocity", ego.ID())
		}
		return NewConstantVelocityAgent(cv, w, rc.Agent, sc.ConstantVelocity, clock, global, rng)
	default:
		return nil, fmt.Errorf("unknown agent kind %q", sc.Kind)
	}
}
