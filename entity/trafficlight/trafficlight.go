package trafficlight

import (
	"git.fiblab.net/general/common/v2/geometry"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity"
)

// Phase 信号灯相位
type Phase struct {
	State    mapv2.LightState // 灯态
	Duration float64          // 相位时长（秒）
}

// TrafficLight 固定相位信号灯
// 功能：按照预设的相位顺序和时间循环切换灯态，并提供触发区锚点信息
// 说明：没有相位程序的信号灯保持常绿
type TrafficLight struct {
	id      int32
	roadID  int32          // 管控的道路ID
	trigger geometry.Point // 触发区锚点坐标

	phases     []Phase
	step       int     // 当前相位索引
	remainingT float64 // 当前相位剩余时间
}

// New 创建固定相位信号灯
// 参数：id-信号灯ID，roadID-管控道路ID，trigger-触发区锚点，phases-相位程序，startPhase-初始相位索引
func New(id, roadID int32, trigger geometry.Point, phases []Phase, startPhase int) *TrafficLight {
	for _, p := range phases {
		if p.Duration <= 0 {
			log.Panicf("traffic light %d: non-positive phase duration %v", id, p.Duration)
		}
	}
	t := &TrafficLight{
		id:      id,
		roadID:  roadID,
		trigger: trigger,
		phases:  phases,
	}
	if len(phases) > 0 {
		if startPhase < 0 || startPhase >= len(phases) {
			log.Panicf("traffic light %d: bad start phase %d", id, startPhase)
		}
		t.step = startPhase
		t.remainingT = phases[startPhase].Duration
	}
	return t
}

// Update 更新阶段，执行固定相位信号灯的相位切换
// 参数：dt-时间步长
// 算法说明：
// 1. 扣减当前相位剩余时间
// 2. 剩余时间耗尽后循环推进相位，跳过在dt内已整体耗尽的相位
func (t *TrafficLight) Update(dt float64) {
	if len(t.phases) == 0 {
		return
	}
	t.remainingT -= dt
	for t.remainingT <= 0 {
		t.step = (t.step + 1) % len(t.phases)
		t.remainingT += t.phases[t.step].Duration
	}
}

// ID 获取信号灯ID
func (t *TrafficLight) ID() int32 {
	return t.id
}

// State 获取当前灯态
func (t *TrafficLight) State() mapv2.LightState {
	if len(t.phases) == 0 {
		return mapv2.LightState_LIGHT_STATE_GREEN
	}
	return t.phases[t.step].State
}

// RemainingTime 获取当前相位剩余时间
func (t *TrafficLight) RemainingTime() float64 {
	return t.remainingT
}

// TriggerXYZ 获取触发区锚点坐标
func (t *TrafficLight) TriggerXYZ() geometry.Point {
	return t.trigger
}

// RoadID 获取管控的道路ID
func (t *TrafficLight) RoadID() int32 {
	return t.roadID
}

var _ entity.ITrafficLight = (*TrafficLight)(nil)
