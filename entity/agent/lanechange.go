package agent

import (
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/utils/randengine"
)

const (
	gapChangeMargin = 5 // 空隙策略：邻道前方空隙需超出本车道的余量（米）
	gapRearMinimum  = 1 // 空隙策略：邻道后方空隙的安全下限（米）
)

// changePolicy 候选变道策略
// 功能：在使能门控与状态机介入之前，给出本tick的候选机动
// 说明：两种实现（随机策略、空隙策略）按配置二选一，便于后续扩展新策略
type changePolicy interface {
	candidate(currentLane entity.LaneIndex, ctx *LaneContext) Action
}

// randomChangePolicy 随机变道策略
// 功能：按固定离散分布随机触发变道，模拟随机性驾驶行为而非反应式行为
// 说明：中间车道的分布为{保持:N, 左变:1, 右变:1}，边缘车道为{保持:N, 回中:1}，
// N为配置的采样规模，即平均每N+1~N+2个tick触发一次变道请求
type randomChangePolicy struct {
	generator  *randengine.Engine
	holdWeight float64 // N
}

func newRandomChangePolicy(generator *randengine.Engine, sampleSize int) *randomChangePolicy {
	return &randomChangePolicy{
		generator:  generator,
		holdWeight: float64(sampleSize),
	}
}

func (p *randomChangePolicy) candidate(currentLane entity.LaneIndex, _ *LaneContext) Action {
	switch currentLane {
	case entity.LaneCenter:
		switch p.generator.DiscreteDistribution([]float64{p.holdWeight, 1, 1}) {
		case 1:
			return ActionLaneChangeLeft
		case 2:
			return ActionLaneChangeRight
		}
	case entity.LaneLeft:
		// 左侧车道只能向右回到中间
		if p.generator.DiscreteDistribution([]float64{p.holdWeight, 1}) == 1 {
			return ActionLaneChangeRight
		}
	case entity.LaneRight:
		if p.generator.DiscreteDistribution([]float64{p.holdWeight, 1}) == 1 {
			return ActionLaneChangeLeft
		}
	}
	return ActionLaneFollow
}

// gapChangePolicy 空隙变道策略
// 功能：仅当邻道前方空隙比本车道富余gapChangeMargin以上且邻道后方空隙不小于
// 安全下限时请求变道；中间车道两侧均满足时随机二选一
type gapChangePolicy struct {
	generator *randengine.Engine
}

func newGapChangePolicy(generator *randengine.Engine) *gapChangePolicy {
	return &gapChangePolicy{generator: generator}
}

func (p *gapChangePolicy) candidate(currentLane entity.LaneIndex, ctx *LaneContext) Action {
	switch currentLane {
	case entity.LaneCenter:
		choices := make([]Action, 0, 2)
		if ctx.FrontGap(entity.LEFT)-ctx.FrontGap(entity.CENTER) > gapChangeMargin &&
			ctx.RearGap(entity.LEFT) > gapRearMinimum {
			choices = append(choices, ActionLaneChangeLeft)
		}
		if ctx.FrontGap(entity.RIGHT)-ctx.FrontGap(entity.CENTER) > gapChangeMargin &&
			ctx.RearGap(entity.RIGHT) > gapRearMinimum {
			choices = append(choices, ActionLaneChangeRight)
		}
		if len(choices) == 0 {
			return ActionLaneFollow
		}
		return choices[p.generator.Intn(len(choices))]
	case entity.LaneLeft:
		if ctx.FrontGap(entity.RIGHT)-ctx.FrontGap(entity.CENTER) > gapChangeMargin &&
			ctx.RearGap(entity.RIGHT) > gapRearMinimum {
			return ActionLaneChangeRight
		}
	case entity.LaneRight:
		if ctx.FrontGap(entity.LEFT)-ctx.FrontGap(entity.CENTER) > gapChangeMargin &&
			ctx.RearGap(entity.LEFT) > gapRearMinimum {
			return ActionLaneChangeLeft
		}
	}
	return ActionLaneFollow
}

// laneChangePlanner 变道决策器
// 功能：结合候选策略与使能门控，维护变道状态机，输出本tick的机动与目标车道
// 说明：状态机只持有两个跨tick状态：上一tick的车道编号与变道是否进行中
type laneChangePlanner struct {
	policy changePolicy

	lastLane entity.LaneIndex // 上一tick的车道编号，LaneUnset表示首个tick
	inChange bool             // 变道是否进行中
}

// decide 每tick的变道决策
// 参数：currentLane-当前车道，lastTargetLane-上一tick的目标车道，lastAction-上一tick的机动，
// leftEnabled/rightEnabled-左右变道使能，ctx-车道上下文
// 返回：本tick的机动与目标车道
// 算法说明：
// 1. 由策略给出候选机动；未知车道编号退化为保持车道并告警
// 2. 使能门控：对应侧未使能的变道候选降级为保持车道
// 3. 状态转移：
//   - 首个tick：保持车道，目标车道为当前车道
//   - 车道未变且变道进行中：完全忽略新候选，原样重复上一tick的机动与目标（防止中途放弃）
//   - 车道未变且未在变道：采纳候选；候选为变道时置进行中并计算目标车道
//   - 车道已变：变道结束，强制保持车道并清除进行中标志
//
// 4. 末尾记录lastLane，供下一tick比较
// 说明：变道的完成只通过观察车道编号变化判定，不采用距离或时间启发式
func (p *laneChangePlanner) decide(
	currentLane, lastTargetLane entity.LaneIndex, lastAction Action,
	leftEnabled, rightEnabled bool, ctx *LaneContext,
) (Action, entity.LaneIndex) {
	candidate := ActionLaneFollow
	if currentLane.Valid() {
		candidate = p.policy.candidate(currentLane, ctx)
	} else {
		log.Warnf("lanechange: unknown lane index %d, fallback to lane follow", currentLane)
	}

	if candidate == ActionLaneChangeLeft && !leftEnabled {
		candidate = ActionLaneFollow
	}
	if candidate == ActionLaneChangeRight && !rightEnabled {
		candidate = ActionLaneFollow
	}

	var newAction Action
	var newTargetLane entity.LaneIndex
	if p.lastLane == entity.LaneUnset {
		p.inChange = false
		newAction = ActionLaneFollow
		newTargetLane = currentLane
	} else if currentLane == p.lastLane {
		if p.inChange {
			// 仍在原车道，变道尚未完成
			newAction = lastAction
			newTargetLane = lastTargetLane
		} else {
			if candidate.IsChange() {
				p.inChange = true
			}
			newAction = candidate
			newTargetLane = currentLane - newAction.LaneDelta()
		}
	} else {
		// 到达目标车道，变道完成
		newAction = ActionLaneFollow
		newTargetLane = currentLane
		p.inChange = false
	}
	p.lastLane = currentLane

	return newAction, newTargetLane
}
