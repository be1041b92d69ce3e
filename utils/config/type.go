package config

import (
	"errors"
	"fmt"
)

// InputPath 指定输入数据来源的配置（MongoDB、文件系统）
// 说明：File非空时优先从文件加载，否则从MongoDB的DB.Col加载
type InputPath struct {
	DB   string `yaml:"db,omitempty"`   // 数据库名
	Col  string `yaml:"col,omitempty"`  // 集合名
	File string `yaml:"file,omitempty"` // 文件路径（优先级高于MongoDB）
}

// GetDb 获取数据库名
func (p InputPath) GetDb() string {
	return p.DB
}

// GetColl 获取集合名
func (p InputPath) GetColl() string {
	return p.Col
}

// Input 指定所有输入数据的配置项
type Input struct {
	URI string    `yaml:"uri,omitempty"` // MongoDB连接字符串
	Map InputPath `yaml:"map"`           // 路网
}

// ControlStep 指定模拟时间范围和间隔的配置项
type ControlStep struct {
	Start    int32   `yaml:"start"`    // 开始步数
	Total    int32   `yaml:"total"`    // 总步数
	Interval float64 `yaml:"interval"` // 每步的时间间隔（秒）
}

// Control 运行控制配置
type Control struct {
	Step ControlStep `yaml:"step"`
}

// PIDParams PID控制器参数
type PIDParams struct {
	KP float64 `yaml:"k_p"`
	KI float64 `yaml:"k_i"`
	KD float64 `yaml:"k_d"`
	DT float64 `yaml:"dt"` // 控制周期（秒）
}

// DefaultPIDParams PID控制器的缺省参数
func DefaultPIDParams() PIDParams {
	return PIDParams{KP: 1, KI: 0, KD: 0, DT: 0.03}
}

// Validate 检查参数合法性
func (p PIDParams) Validate() error {
	if p.DT <= 0 {
		return fmt.Errorf("pid: dt must be positive, got %v", p.DT)
	}
	return nil
}

// LocalPlanner 局部规划器配置
type LocalPlanner struct {
	DT                float64   `yaml:"dt"`                  // 控制周期（秒）
	TargetSpeed       float64   `yaml:"target_speed"`        // 目标速度（km/h）
	SamplingRadius    float64   `yaml:"sampling_radius"`     // 随机补点时的采样间距（m）
	LateralPID        PIDParams `yaml:"lateral_pid"`         // 横向PID参数（dt取DT）
	LongitudinalPID   PIDParams `yaml:"longitudinal_pid"`    // 纵向PID参数（dt取DT）
	MaxThrottle       float64   `yaml:"max_throttle"`        // 最大油门
	MaxBrake          float64   `yaml:"max_brake"`           // 最大刹车
	MaxSteering       float64   `yaml:"max_steering"`        // 最大转向
	Offset            float64   `yaml:"offset"`              // 相对车道中心线的横向偏移（m，向右为正）
	BaseMinDistance   float64   `yaml:"base_min_distance"`   // 路点清除的基础距离（m）
	DistanceRatio     float64   `yaml:"distance_ratio"`      // 路点清除距离的速度系数（s）
	FollowSpeedLimits bool      `yaml:"follow_speed_limits"` // 是否以道路限速作为目标速度
	MinQueueLength    int       `yaml:"min_queue_length"`    // 随机补点模式下队列的最小长度
	QueueCapacity     int       `yaml:"queue_capacity"`      // 路点队列初始容量
}

// DefaultLocalPlanner 局部规划器缺省配置
func DefaultLocalPlanner() LocalPlanner {
	return LocalPlanner{
		DT:              1.0 / 20.0,
		TargetSpeed:     20.0,
		SamplingRadius:  2.0,
		LateralPID:      PIDParams{KP: 1.95, KI: 0.05, KD: 0.2},
		LongitudinalPID: PIDParams{KP: 1.0, KI: 0.05, KD: 0},
		MaxThrottle:     0.75,
		MaxBrake:        0.3,
		MaxSteering:     0.8,
		Offset:          0,
		BaseMinDistance: 3.0,
		DistanceRatio:   0.5,
		MinQueueLength:  100,
		QueueCapacity:   10000,
	}
}

// Validate 检查配置合法性
func (c LocalPlanner) Validate() error {
	var errs []error
	if c.DT <= 0 {
		errs = append(errs, fmt.Errorf("local planner: dt must be positive, got %v", c.DT))
	}
	if c.TargetSpeed < 0 {
		errs = append(errs, fmt.Errorf("local planner: target_speed must be non-negative, got %v", c.TargetSpeed))
	}
	if c.SamplingRadius <= 0 {
		errs = append(errs, fmt.Errorf("local planner: sampling_radius must be positive, got %v", c.SamplingRadius))
	}
	for name, v := range map[string]float64{"max_throttle": c.MaxThrottle, "max_brake": c.MaxBrake, "max_steering": c.MaxSteering} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("local planner: %s must be in [0,1], got %v", name, v))
		}
	}
	if c.MinQueueLength < 0 {
		errs = append(errs, fmt.Errorf("local planner: min_queue_length must be non-negative, got %v", c.MinQueueLength))
	}
	if c.QueueCapacity <= 0 {
		errs = append(errs, fmt.Errorf("local planner: queue_capacity must be positive, got %v", c.QueueCapacity))
	}
	return errors.Join(errs...)
}

// Agent 基础智能体配置
type Agent struct {
	TargetSpeed          float64      `yaml:"target_speed"`           // 目标速度（km/h）
	IgnoreTrafficLights  bool         `yaml:"ignore_traffic_lights"`  // 忽略信号灯
	IgnoreStopSigns      bool         `yaml:"ignore_stop_signs"`      // 忽略停车标志
	IgnoreVehicles       bool         `yaml:"ignore_vehicles"`        // 忽略其他车辆
	UseBBsDetection      bool         `yaml:"use_bbs_detection"`      // 总是使用包围盒检测障碍车
	SamplingResolution   float64      `yaml:"sampling_resolution"`    // 全局路径采样间距（m）
	BaseTLightThreshold  float64      `yaml:"base_tlight_threshold"`  // 信号灯检测基础距离（m）
	BaseVehicleThreshold float64      `yaml:"base_vehicle_threshold"` // 障碍车检测基础距离（m）
	DetectionSpeedRatio  float64      `yaml:"detection_speed_ratio"`  // 检测距离的速度系数（s）
	MaxBrake             float64      `yaml:"max_brake"`              // 紧急停车时的刹车
	Offset               float64      `yaml:"offset"`                 // 横向偏移（m）
	Planner              LocalPlanner `yaml:"planner"`                // 局部规划器配置
}

// DefaultAgent 基础智能体缺省配置
func DefaultAgent() Agent {
	planner := DefaultLocalPlanner()
	return Agent{
		TargetSpeed:          20,
		SamplingResolution:   2.0,
		BaseTLightThreshold:  5.0,
		BaseVehicleThreshold: 5.0,
		DetectionSpeedRatio:  1,
		MaxBrake:             0.5,
		Offset:               0,
		Planner:              planner,
	}
}

// DefaultAgentFor 指定类型智能体的缺省配置，行为智能体的采样间距为4.5
func DefaultAgentFor(kind AgentKind) Agent {
	a := DefaultAgent()
	if kind == AgentBehavior {
		a.SamplingResolution = 4.5
	}
	return a
}

// Validate 检查配置合法性
func (c Agent) Validate() error {
	var errs []error
	if c.SamplingResolution <= 0 {
		errs = append(errs, fmt.Errorf("agent: sampling_resolution must be positive, got %v", c.SamplingResolution))
	}
	if c.MaxBrake < 0 || c.MaxBrake > 1 {
		errs = append(errs, fmt.Errorf("agent: max_brake must be in [0,1], got %v", c.MaxBrake))
	}
	if c.TargetSpeed < 0 {
		errs = append(errs, fmt.Errorf("agent: target_speed must be non-negative, got %v", c.TargetSpeed))
	}
	errs = append(errs, c.Planner.Validate())
	return errors.Join(errs...)
}

// Behavior 行为智能体的驾驶风格参数
type Behavior struct {
	MaxSpeed              float64 `yaml:"max_speed"`               // 最大速度（km/h）
	SpeedLimDist          float64 `yaml:"speed_lim_dist"`          // 目标速度低于限速的量（km/h）
	SpeedDecrease         float64 `yaml:"speed_decrease"`          // 跟车过近时相对前车的减速量（km/h）
	SafetyTime            float64 `yaml:"safety_time"`             // 安全碰撞时间（s）
	MinProximityThreshold float64 `yaml:"min_proximity_threshold"` // 最小检测距离（m）
	BrakingDistance       float64 `yaml:"braking_distance"`        // 紧急停车距离（m）
	TailgateCounter       int     `yaml:"tailgate_counter"`        // 初始被尾随变道冷却计数
}

// 驾驶风格预设
var behaviorPresets = map[string]Behavior{
	"cautious":   {MaxSpeed: 40, SpeedLimDist: 6, SpeedDecrease: 12, SafetyTime: 3, MinProximityThreshold: 12, BrakingDistance: 6, TailgateCounter: 0},
	"normal":     {MaxSpeed: 50, SpeedLimDist: 3, SpeedDecrease: 10, SafetyTime: 3, MinProximityThreshold: 10, BrakingDistance: 5, TailgateCounter: 0},
	"aggressive": {MaxSpeed: 70, SpeedLimDist: 1, SpeedDecrease: 8, SafetyTime: 3, MinProximityThreshold: 8, BrakingDistance: 4, TailgateCounter: -1},
}

// BehaviorPreset 按名称获取驾驶风格预设（cautious/normal/aggressive）
func BehaviorPreset(name string) (Behavior, error) {
	if b, ok := behaviorPresets[name]; ok {
		return b, nil
	}
	return Behavior{}, fmt.Errorf("unknown behavior %q (expect cautious, normal or aggressive)", name)
}

// ConstantVelocity 恒速智能体配置
type ConstantVelocity struct {
	RestartTime      float64 `yaml:"restart_time"`       // 碰撞后恢复恒速的等待时间（s），不大于0表示不恢复
	UseBasicBehavior bool    `yaml:"use_basic_behavior"` // 恒速停止期间是否按基础智能体行驶
}

// AgentKind 智能体类型
type AgentKind string

const (
	AgentBasic            AgentKind = "basic"
	AgentBehavior         AgentKind = "behavior"
	AgentConstantVelocity AgentKind = "constant_velocity"
)

// Vec3 YAML中的三维坐标
type Vec3 struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// Scenario 运行场景：受控车辆及其目的地
type Scenario struct {
	Kind        AgentKind `yaml:"kind"`                  // 智能体类型
	Behavior    string    `yaml:"behavior,omitempty"`    // 行为智能体的驾驶风格
	Seed        uint64    `yaml:"seed"`                  // 随机种子
	Spawn       Vec3      `yaml:"spawn"`                 // 出生位置（会投影到最近的车道上）
	Destination *Vec3     `yaml:"destination,omitempty"` // 目的地，为空时随机漫游
	Agent       *Agent    `yaml:"agent,omitempty"`       // 智能体配置，为空时使用缺省值

	ConstantVelocity ConstantVelocity `yaml:"constant_velocity,omitempty"` // 恒速智能体配置
}

// UnmarshalYAML 解析场景配置
// 说明：给出agent块时以该类型智能体的缺省配置为底，只覆盖YAML中出现的字段
func (s *Scenario) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var head map[string]interface{}
	if err := unmarshal(&head); err != nil {
		return err
	}
	type plain Scenario
	p := plain{}
	if raw, ok := head["agent"]; ok && raw != nil {
		kind, _ := head["kind"].(string)
		a := DefaultAgentFor(AgentKind(kind))
		p.Agent = &a
	}
	if err := unmarshal(&p); err != nil {
		return err
	}
	*s = Scenario(p)
	return nil
}

// Output 输出配置
type Output struct {
	SQLite string `yaml:"sqlite,omitempty"` // 逐步记录的SQLite文件路径，为空则不记录
}

// Config YAML配置文件的根结构
type Config struct {
	Input    Input    `yaml:"input"`    // 输入
	Control  Control  `yaml:"control"`  // 运行过程控制
	Scenario Scenario `yaml:"scenario"` // 场景
	Output   Output   `yaml:"output"`   // 输出
}
