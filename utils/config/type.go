package config

// InputPath 指定输入数据来源的配置（MongoDB、文件系统）
// 说明：支持MongoDB数据库和文件系统两种数据源，支持缓存机制
type InputPath struct {
	DB        string `yaml:"db"`                   // 数据库名
	Col       string `yaml:"col"`                  // 集合名
	Cache     string `yaml:"cache,omitempty"`      // 缓存文件名，为空则采用默认路径{db}.{col}.yml
	OnlyCache bool   `yaml:"only_cache,omitempty"` // 只从缓存中获取
	File      string `yaml:"file,omitempty"`       // 文件路径（优先级高于MongoDB）
}

// GetCachePath 获取缓存文件路径
// 说明：未指定缓存路径时采用默认命名规则{数据库名}.{集合名}.yml
func (p InputPath) GetCachePath() string {
	if p.Cache != "" {
		return p.Cache
	}
	return p.DB + "." + p.Col + ".yml"
}

// Input 指定模拟器所有输入数据的配置项
type Input struct {
	URI      string    `yaml:"uri"`      // MongoDB连接字符串
	Scenario InputPath `yaml:"scenario"` // 场景（道路、信号灯、车辆）
}

// ControlStep 指定模拟器模拟时间范围和间隔的配置项
type ControlStep struct {
	Start    int32   `yaml:"start"`    // 开始步数
	Total    int32   `yaml:"total"`    // 总步数
	Interval float64 `yaml:"interval"` // 每步的时间间隔
}

// Control 模拟器控制配置
type Control struct {
	Step ControlStep `yaml:"step"`
	Seed uint64      `yaml:"seed,omitempty"` // 随机数种子
}

// PIDParams PID控制器增益参数
type PIDParams struct {
	KP float64 `yaml:"k_p"`
	KI float64 `yaml:"k_i"`
	KD float64 `yaml:"k_d"`
}

// AgentOptions 自动驾驶控制器的可选配置
// 功能：对应控制器构造时的opt字典，全部字段可省略
// 说明：字段缺失时控制器静默采用内置默认值，不会报错
type AgentOptions struct {
	IgnoreTrafficLights    *bool      `yaml:"ignore_traffic_lights,omitempty"`    // 不对红灯做出反应
	IgnoreStopSigns        *bool      `yaml:"ignore_stop_signs,omitempty"`        // 不对停车标志做出反应（预留，当前未使用）
	SamplingResolution     *float64   `yaml:"sampling_resolution,omitempty"`      // 路径点采样间隔（米）
	BaseTlightThreshold    *float64   `yaml:"base_tlight_threshold,omitempty"`    // 信号灯检测基础距离（米）
	BaseVehicleThreshold   *float64   `yaml:"base_vehicle_threshold,omitempty"`   // 前车检测基础距离（米）
	MaxSteering            *float64   `yaml:"max_steering,omitempty"`             // 最大转向
	MaxThrottle            *float64   `yaml:"max_throttle,omitempty"`             // 最大油门
	MaxBrake               *float64   `yaml:"max_brake,omitempty"`                // 最大制动
	IgnoreFrontVehicle     *bool      `yaml:"ignore_front_vehicle,omitempty"`     // 不对前车做出反应
	IgnoreChangeGap        *bool      `yaml:"ignore_change_gap,omitempty"`        // 变道时不检查空隙
	LanechangingSampleSize *int       `yaml:"lanechanging_sample_size,omitempty"` // 随机变道采样规模（保持车道的权重）
	TargetSpeed            *float64   `yaml:"target_speed,omitempty"`             // 巡航目标速度（km/h）
	UseRandomPolicy        *bool      `yaml:"use_random_policy,omitempty"`        // 使用随机变道策略（否则使用空隙策略）
	LateralPID             *PIDParams `yaml:"lateral_pid,omitempty"`              // 横向PID增益
	LongitudinalPID        *PIDParams `yaml:"longitudinal_pid,omitempty"`         // 纵向PID增益
}

// Config YAML配置文件的根结构
type Config struct {
	Input   Input        `yaml:"input"`   // 输入
	Control Control      `yaml:"control"` // 模拟过程控制
	Agent   AgentOptions `yaml:"agent"`   // 控制器配置
}
