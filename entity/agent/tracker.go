package agent

import (
	"errors"
	"fmt"

	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity"
)

const (
	laneCenterNorm    = 4.0 // 横向偏移归一化常数（米）
	followBaseOffset  = 2   // 保持车道时目标路径点的基础索引
	changeBaseOffset  = 15  // 变道时目标路径点的基础索引（深入缓冲使轨迹平滑跨越整个车道宽度）
	changeTargetSpeed = 50  // 变道目标速度（km/h），较快的横向通过
)

// ErrWaypointOutOfRange 路径点缓冲长度不足以支撑当前机动
// 说明：这是调用方的前置条件违例——感知层必须保证缓冲长度覆盖其使能的机动，
// 本模块不做降级，截断的缓冲会静默产生不安全轨迹
var ErrWaypointOutOfRange = errors.New("agent: waypoint buffer index out of range")

// IPIDController PID控制原语
// 功能：根据目标速度与目标路径点产生原始控制指令，内部增益属于配置而非本模块契约
type IPIDController interface {
	RunStep(targetSpeedKmh float64, target entity.Waypoint) entity.ControlInfo
}

// trajectoryTracker 轨迹跟踪器
// 功能：将机动动作翻译为目标路径点与目标速度，委托PID控制原语产生名义控制指令
type trajectoryTracker struct {
	pid IPIDController

	baseMinDistance float64 // 基础最小前视距离（米）
	targetSpeed     float64 // 巡航目标速度（km/h）
}

// lookAheadOffset 计算前视路径点索引偏移
// 参数：lateralOffset-自车位置与车道中心路径点的横向偏移（米）
// 算法说明：
// 1. 横向偏移与归一化常数之比的补数缩放基础最小前视距离
// 2. 按阈值映射为离散索引偏移：≤1→1，≤2→2，≤3→3，>3→4
// 说明：偏离车道中心越远前视越短（更快回正），居中时前视拉长
func (t *trajectoryTracker) lookAheadOffset(lateralOffset float64) int {
	laneCenterRatio := 1 - lateralOffset/laneCenterNorm
	minDistance := t.baseMinDistance * laneCenterRatio
	switch {
	case minDistance <= 1:
		return 1
	case minDistance <= 2:
		return 2
	case minDistance <= 3:
		return 3
	default:
		return 4
	}
}

// track 单步轨迹跟踪
// 参数：action-本tick机动，vehPose-自车位姿，laneCenterWp-自车位置处的车道中心路径点，
// ctx-车道上下文
// 返回：PID原语的原始输出（不做修饰）
// 算法说明：
// 1. 由横向偏移计算前视索引偏移
// 2. 按机动选择目标速度与目标路径点：保持车道用中间前方缓冲的短基础索引与巡航速度；
//    变道用对应侧前方缓冲的大基础索引与固定的较高速度
// 3. 缓冲长度不足是硬性前置条件违例，返回ErrWaypointOutOfRange
func (t *trajectoryTracker) track(
	action Action, vehPose, laneCenterWp entity.Waypoint, ctx *LaneContext,
) (entity.ControlInfo, error) {
	offset := t.lookAheadOffset(entity.ComputeDistance(laneCenterWp.XYZ, vehPose.XYZ))

	var (
		buffer      []entity.Waypoint
		index       int
		targetSpeed float64
	)
	switch action {
	case ActionLaneChangeLeft:
		targetSpeed = changeTargetSpeed
		buffer = ctx.Front(entity.LEFT)
		index = changeBaseOffset + offset
	case ActionLaneChangeRight:
		targetSpeed = changeTargetSpeed
		buffer = ctx.Front(entity.RIGHT)
		index = changeBaseOffset + offset
	default:
		targetSpeed = t.targetSpeed
		buffer = ctx.Front(entity.CENTER)
		index = followBaseOffset + offset
	}
	if index >= len(buffer) {
		return entity.ControlInfo{}, fmt.Errorf(
			"%w: action %v needs index %d but buffer has %d waypoints",
			ErrWaypointOutOfRange, action, index, len(buffer))
	}

	return t.pid.RunStep(targetSpeed, buffer[index]), nil
}
