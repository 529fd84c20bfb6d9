package agent

import "github.com/tsinghua-fib-lab/autopilot-sim-oss/entity"

// Action 机动动作
// 功能：描述控制器每个tick选定的车道机动，取值本身即是车道编号增量，
// 目标车道 = 当前车道 - 增量
type Action int32

const (
	ActionLaneFollow      Action = 0  // 保持车道
	ActionLaneChangeLeft  Action = -1 // 向左变道
	ActionLaneChangeRight Action = 1  // 向右变道
)

// LaneDelta 获取动作对应的车道编号增量
func (a Action) LaneDelta() entity.LaneIndex {
	return entity.LaneIndex(a)
}

// IsChange 判断动作是否为变道
func (a Action) IsChange() bool {
	return a != ActionLaneFollow
}

// String 获取动作的字符串表示
func (a Action) String() string {
	switch a {
	case ActionLaneFollow:
		return "LANE_FOLLOW"
	case ActionLaneChangeLeft:
		return "LANE_CHANGE_LEFT"
	case ActionLaneChangeRight:
		return "LANE_CHANGE_RIGHT"
	default:
		return "UNKNOWN"
	}
}
