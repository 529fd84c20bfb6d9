package agent

import (
	"fmt"
	"math"

	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity"
)

// LaneContext 车道上下文
// 功能：以{LEFT,CENTER,RIGHT}×{FRONT,REAR}为索引，打包感知层每个tick提供的
// 六组路径点缓冲与六个最近车距
// 说明：路径点缓冲由外部感知层构造并持有，本模块只读；CENTER始终为自车所在车道
type LaneContext struct {
	Wps  [3][2][]entity.Waypoint // 路径点缓冲，[LEFT/CENTER/RIGHT][FRONT/REAR]
	Gaps [3][2]float64           // 最近车距（米），无车时为+Inf
}

// Front 获取指定侧的前方路径点缓冲
func (c *LaneContext) Front(side int) []entity.Waypoint {
	return c.Wps[side][entity.FRONT]
}

// FrontGap 获取指定侧的前方最近车距
func (c *LaneContext) FrontGap(side int) float64 {
	return c.Gaps[side][entity.FRONT]
}

// RearGap 获取指定侧的后方最近车距
func (c *LaneContext) RearGap(side int) float64 {
	return c.Gaps[side][entity.REAR]
}

// validate 校验车道上下文数据
// 说明：NaN或负的车距属于调用方缺陷，直接报错而不是静默修正
func (c *LaneContext) validate() error {
	for side, name := range [3]string{"left", "center", "right"} {
		for dir, dirName := range [2]string{"front", "rear"} {
			g := c.Gaps[side][dir]
			if math.IsNaN(g) {
				return fmt.Errorf("lane context: %s-%s gap is NaN", name, dirName)
			}
			if g < 0 {
				return fmt.Errorf("lane context: %s-%s gap is negative (%v)", name, dirName, g)
			}
		}
	}
	return nil
}

// SetPerception 写入当前tick的感知数据
// 功能：更新六组路径点缓冲与六个车距，并重新计算变道使能标志
// 返回：感知数据非法时返回错误，此时保留上一tick的数据
// 算法说明：
// 1. 校验车距的合法性（NaN/负值快速失败）
// 2. 根据ignoreChangeGap分别计算左右变道使能：
//   - 忽略空隙时，仅当对应侧前方缓冲非空才把使能置位（已置位的保持不动）
//   - 不忽略空隙时，先全部清零再按缓冲非空置位
func (a *Agent) SetPerception(info LaneContext) error {
	if err := info.validate(); err != nil {
		return err
	}
	a.ctx = info

	if a.ignoreChangeGap {
		if len(a.ctx.Front(entity.LEFT)) != 0 {
			a.enableLeftChange = true
		}
		if len(a.ctx.Front(entity.RIGHT)) != 0 {
			a.enableRightChange = true
		}
	} else {
		a.enableLeftChange = false
		a.enableRightChange = false
		if len(a.ctx.Front(entity.LEFT)) != 0 {
			a.enableLeftChange = true
		}
		if len(a.ctx.Front(entity.RIGHT)) != 0 {
			a.enableRightChange = true
		}
	}

	log.Debugf("agent %d: wps %d/%d/%d front %d/%d/%d rear, gaps %v, enable L=%v R=%v",
		a.vehicle.ID(),
		len(a.ctx.Front(entity.LEFT)), len(a.ctx.Front(entity.CENTER)), len(a.ctx.Front(entity.RIGHT)),
		len(a.ctx.Wps[entity.LEFT][entity.REAR]), len(a.ctx.Wps[entity.CENTER][entity.REAR]), len(a.ctx.Wps[entity.RIGHT][entity.REAR]),
		a.ctx.Gaps, a.enableLeftChange, a.enableRightChange)
	return nil
}
