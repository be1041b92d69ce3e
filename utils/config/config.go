package config

import (
	"errors"
	"fmt"
)

// RuntimeConfig 运行时配置
// 功能：存储校验并补全缺省值之后的配置
// 说明：YAML中省略的可选项在这里被替换为缺省值，后续模块只读取RuntimeConfig
type RuntimeConfig struct {
	All      Config    // 全部配置
	C        Control   // 全局控制配置
	Agent    Agent     // 智能体配置（已补全缺省值）
	Behavior *Behavior // 行为智能体的驾驶风格，非行为智能体为nil
}

// NewRuntimeConfig 根据配置初始化运行时配置
// 功能：校验配置并补全缺省值
// 参数：config-原始配置对象
// 返回：运行时配置指针，配置不合法时返回汇总的错误
// 算法说明：
// 1. 检查输入来源：文件与MongoDB至少指定一个
// 2. 检查时间控制参数
// 3. 补全智能体配置：未指定时使用缺省值，行为智能体的采样间距缺省为4.5；YAML中部分给出的agent块在解析时已补全
// 4. 解析驾驶风格预设
func NewRuntimeConfig(config Config) (*RuntimeConfig, error) {
	rc := &RuntimeConfig{
		All: config,
		C:   config.Control,
	}
	var errs []error

	in := config.Input
	if in.Map.File == "" && (in.URI == "" || in.Map.DB == "" || in.Map.Col == "") {
		errs = append(errs, errors.New("input: map.file or (uri, map.db, map.col) must be specified"))
	}
	if rc.C.Step.Interval <= 0 {
		errs = append(errs, fmt.Errorf("control: step.interval must be positive, got %v", rc.C.Step.Interval))
	}
	if rc.C.Step.Total <= 0 {
		errs = append(errs, fmt.Errorf("control: step.total must be positive, got %v", rc.C.Step.Total))
	}

	sc := config.Scenario
	if sc.Agent != nil {
		rc.Agent = *sc.Agent
	} else {
		rc.Agent = DefaultAgentFor(sc.Kind)
	}
	// 控制周期与仿真步长一致
	if rc.C.Step.Interval > 0 {
		rc.Agent.Planner.DT = rc.C.Step.Interval
	}
	errs = append(errs, rc.Agent.Validate())

	switch sc.Kind {
	case AgentBasic, AgentConstantVelocity:
	case AgentBehavior:
		name := sc.Behavior
		if name == "" {
			name = "normal"
		}
		b, err := BehaviorPreset(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("scenario: %w", err))
		} else {
			rc.Behavior = &b
		}
	default:
		errs = append(errs, fmt.Errorf("scenario: unknown agent kind %q", sc.Kind))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return rc, nil
}
