package agent

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/utils/config"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/utils/randengine"
)

// 控制器默认参数
const (
	defaultSamplingResolution   = 2.0  // 路径点采样间隔（米）
	defaultBaseTlightThreshold  = 5.0  // 信号灯检测基础距离（米）
	defaultBaseVehicleThreshold = 10.0 // 前车检测基础距离（米）
	defaultMaxSteering          = 0.8
	defaultMaxThrottle          = 0.75
	defaultMaxBrake             = 0.3
	defaultTargetSpeed          = 20.0 // 巡航目标速度（km/h）
	defaultLanechangingSample   = 50   // 随机变道采样规模
	defaultBaseMinDistance      = 3.0  // 基础最小前视距离（米）
)

// Agent 单车自动驾驶控制器
// 功能：每tick做一次机动决策与轨迹跟踪，输出油门/制动/转向控制指令，
// 危险仲裁可覆盖名义指令强制紧急停车
// 说明：状态严格按车实例私有，同一tick内不存在并发
type Agent struct {
	vehicle entity.IVehicle
	world   entity.IWorld
	dt      float64

	// 配置
	ignoreTrafficLights  bool
	ignoreStopSigns      bool // 预留，本控制器不处理停车标志
	ignoreVehicle        bool
	ignoreChangeGap      bool
	samplingResolution   float64
	baseTlightThreshold  float64
	baseVehicleThreshold float64
	maxSteer             float64
	maxThrot             float64
	maxBrake             float64

	// 感知数据与使能标志，由SetPerception每tick刷新
	ctx               LaneContext
	enableLeftChange  bool
	enableRightChange bool

	// 子模块
	planner *laneChangePlanner
	hazard  *hazardDetector
	tracker *trajectoryTracker

	autopilotStep int64 // tick计数器
}

// New 创建自动驾驶控制器
// 参数：vehicle-受控车辆，world-世界查询接口，dt-控制周期（秒），
// opts-可选配置（缺失字段静默采用默认值），generator-随机数生成器，pid-PID控制原语
// 算法说明：
// 1. 以默认值初始化全部参数，再用opts中出现的字段覆盖
// 2. 按use_random_policy选择候选变道策略
// 3. 初始化变道状态机、危险检测器与轨迹跟踪器
func New(
	vehicle entity.IVehicle, world entity.IWorld, dt float64,
	opts config.AgentOptions, generator *randengine.Engine, pid IPIDController,
) *Agent {
	a := &Agent{
		vehicle:              vehicle,
		world:                world,
		dt:                   dt,
		samplingResolution:   defaultSamplingResolution,
		baseTlightThreshold:  defaultBaseTlightThreshold,
		baseVehicleThreshold: defaultBaseVehicleThreshold,
		maxSteer:             defaultMaxSteering,
		maxThrot:             defaultMaxThrottle,
		maxBrake:             defaultMaxBrake,
	}
	targetSpeed := float64(defaultTargetSpeed)
	sampleSize := defaultLanechangingSample
	useRandomPolicy := true

	if opts.IgnoreTrafficLights != nil {
		a.ignoreTrafficLights = *opts.IgnoreTrafficLights
	}
	if opts.IgnoreStopSigns != nil {
		a.ignoreStopSigns = *opts.IgnoreStopSigns
	}
	if opts.SamplingResolution != nil {
		a.samplingResolution = *opts.SamplingResolution
	}
	if opts.BaseTlightThreshold != nil {
		a.baseTlightThreshold = *opts.BaseTlightThreshold
	}
	if opts.BaseVehicleThreshold != nil {
		a.baseVehicleThreshold = *opts.BaseVehicleThreshold
	}
	if opts.MaxSteering != nil {
		a.maxSteer = *opts.MaxSteering
	}
	if opts.MaxThrottle != nil {
		a.maxThrot = *opts.MaxThrottle
	}
	if opts.MaxBrake != nil {
		a.maxBrake = *opts.MaxBrake
	}
	if opts.IgnoreFrontVehicle != nil {
		a.ignoreVehicle = *opts.IgnoreFrontVehicle
	}
	if opts.IgnoreChangeGap != nil {
		a.ignoreChangeGap = *opts.IgnoreChangeGap
	}
	if opts.LanechangingSampleSize != nil {
		sampleSize = *opts.LanechangingSampleSize
	}
	if opts.TargetSpeed != nil {
		targetSpeed = *opts.TargetSpeed
	}
	if opts.UseRandomPolicy != nil {
		useRandomPolicy = *opts.UseRandomPolicy
	}
	log.Infof("agent %d: ignore_front_vehicle=%v, ignore_change_gap=%v",
		vehicle.ID(), a.ignoreVehicle, a.ignoreChangeGap)

	var policy changePolicy
	if useRandomPolicy {
		policy = newRandomChangePolicy(generator, sampleSize)
	} else {
		policy = newGapChangePolicy(generator)
	}
	a.planner = &laneChangePlanner{policy: policy}
	a.hazard = newHazardDetector(world)
	a.tracker = &trajectoryTracker{
		pid:             pid,
		baseMinDistance: defaultBaseMinDistance,
		targetSpeed:     targetSpeed,
	}
	return a
}

// RunStep 每tick的唯一入口，执行一步导航
// 参数：currentLane-当前车道，lastTargetLane-上一tick目标车道，lastAction-上一tick机动，
// modifyChangeSteer-变道时是否对转向做单侧钳制
// 返回：控制指令、新目标车道、新机动；路径点缓冲不足时返回错误
// 算法说明：
// 1. 递增tick计数；车速为NaN或负值属于调用方缺陷，直接报错
// 2. 危险检测：前车检测距离与信号灯检测距离均为基础阈值+当前速度
// 3. 变道决策得到本tick机动与目标车道
// 4. 轨迹跟踪产生名义控制指令
// 5. modifyChangeSteer置位时，向左变道钳制转向到[-1,0]，向右到[0,1]（防止PID超调反打）
// 6. 红灯危险、或保持车道时的前车危险，覆盖为紧急停车指令
func (a *Agent) RunStep(
	currentLane, lastTargetLane entity.LaneIndex, lastAction Action, modifyChangeSteer bool,
) (entity.ControlInfo, entity.LaneIndex, Action, error) {
	a.autopilotStep++

	vehicleSpeed := a.vehicle.V()
	// NaN使所有阈值比较恒为false，会静默关闭危险检测，必须快速失败
	if math.IsNaN(vehicleSpeed) || vehicleSpeed < 0 {
		return entity.ControlInfo{}, lastTargetLane, lastAction, fmt.Errorf(
			"agent %d: invalid vehicle speed %v", a.vehicle.ID(), vehicleSpeed)
	}
	selfPose := entity.Waypoint{XYZ: a.vehicle.XYZ(), Direction: a.vehicle.Direction()}
	selfWp := a.world.LaneCenter(a.vehicle.XYZ())

	maxVehicleDistance := a.baseVehicleThreshold + vehicleSpeed
	affectedByVehicle := a.hazard.vehicleHazard(
		a.ctx.FrontGap(entity.CENTER), maxVehicleDistance, a.ignoreVehicle)

	maxTlightDistance := a.baseTlightThreshold + vehicleSpeed
	affectedByTlight, _ := a.hazard.lightHazard(
		selfPose, selfWp, maxTlightDistance, a.ignoreTrafficLights)

	newAction, newTargetLane := a.planner.decide(
		currentLane, lastTargetLane, lastAction,
		a.enableLeftChange, a.enableRightChange, &a.ctx)

	control, err := a.tracker.track(newAction, selfPose, selfWp, &a.ctx)
	if err != nil {
		return entity.ControlInfo{}, newTargetLane, newAction, err
	}

	if modifyChangeSteer {
		switch newAction {
		case ActionLaneChangeLeft:
			control.Steer = lo.Clamp(control.Steer, -1, 0)
		case ActionLaneChangeRight:
			control.Steer = lo.Clamp(control.Steer, 0, 1)
		}
	}
	if affectedByTlight || (newAction == ActionLaneFollow && affectedByVehicle) {
		control = a.addEmergencyStop(control)
	}

	return control, newTargetLane, newAction, nil
}

// addEmergencyStop 将控制指令覆盖为紧急停车
// 说明：保持转向不变，避免在弯道中停车时偏出车道；不拉手刹
func (a *Agent) addEmergencyStop(control entity.ControlInfo) entity.ControlInfo {
	control.Throttle = 0
	control.Brake = a.maxBrake
	control.HandBrake = false
	return control
}

// Step 获取自构造以来的tick计数
func (a *Agent) Step() int64 {
	return a.autopilotStep
}

// MaxBrake 获取配置的最大制动
func (a *Agent) MaxBrake() float64 {
	return a.maxBrake
}

// SamplingResolution 获取路径点采样间隔
func (a *Agent) SamplingResolution() float64 {
	return a.samplingResolution
}

// IgnoreTrafficLights 开启/关闭信号灯检测
func (a *Agent) IgnoreTrafficLights(active bool) {
	a.ignoreTrafficLights = active
}

// IgnoreStopSigns 开启/关闭停车标志检测（预留）
func (a *Agent) IgnoreStopSigns(active bool) {
	a.ignoreStopSigns = active
}

// IgnoreVehicles 开启/关闭前车检测
func (a *Agent) IgnoreVehicles(active bool) {
	a.ignoreVehicle = active
}
