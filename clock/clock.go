// 仿真时钟：按固定步长推进仿真时间
package clock

import (
	"fmt"

	"github.com/tsinghua-fib-lab/navstack/utils/config"
)

// Clock 仿真时钟
// 功能：维护当前步数与仿真时间，模拟区间为[StartStep, EndStep)
// 说明：实现agent.TimeSource，供需要计时的智能体读取仿真时间
type Clock struct {
	DT        float64 // 每步时间间隔（秒）
	StartStep int32   // 起始步
	EndStep   int32   // 结束步

	T            float64 // 当前时间（秒）
	InternalStep int32   // 当前步数
}

// New 根据配置创建时钟
// 参数：stepConfig-起始步、总步数与步长
// 返回：已初始化到起始步的时钟
func New(stepConfig config.ControlStep) *Clock {
	c := &Clock{
		DT:        stepConfig.Interval,
		StartStep: stepConfig.Start,
		EndStep:   stepConfig.Start + stepConfig.Total,
	}
	c.Init()
	return c
}

// Init 重置到起始步
func (c *Clock) Init() {
	c.InternalStep = c.StartStep
	c.T = float64(c.InternalStep) * c.DT
}

// Next 推进一步
// 返回：推进后是否仍在模拟区间内
func (c *Clock) Next() bool {
	c.InternalStep++
	c.T = float64(c.InternalStep) * c.DT
	return !c.Done()
}

// Done 是否已经到达结束步
func (c *Clock) Done() bool {
	return c.InternalStep >= c.EndStep
}

// Now 当前仿真时间（秒）
func (c *Clock) Now() float64 {
	return c.T
}

// String 当前时间（HH:MM:SS）
func (c *Clock) String() string {
	h, m, s := c.GetHourMinuteSecond()
	return fmt.Sprintf("%02d:%02d:%02d", h, m, int(s))
}

// GetHourMinuteSecond 获取当前时间的小时、分钟、秒
// 返回：小时、分钟、秒（秒为浮点数，支持亚秒级精度）
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	hour := int(c.T) / 3600
	minute := int(c.T) % 3600 / 60
	second := c.T - float64(hour*3600+minute*60)
	return hour, minute, second
}
