package agent

import (
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity"
)

// hazardDetector 危险检测器
// 功能：判断红灯或过近前车是否需要抑制前向运动
// 说明：除"当前管控红灯"的单槽缓存与触发区锚点备忘外无任何状态
type hazardDetector struct {
	world entity.IWorld

	lastLight  entity.ITrafficLight      // 当前管控自车的红灯，nil表示无
	triggerWps map[int32]entity.Waypoint // 信号灯ID到触发区锚点路径点的备忘
}

func newHazardDetector(world entity.IWorld) *hazardDetector {
	return &hazardDetector{
		world:      world,
		triggerWps: make(map[int32]entity.Waypoint),
	}
}

// vehicleHazard 前车危险判定
// 参数：frontGap-本车道前方最近车距，maxDistance-检测距离（基础阈值+当前速度），ignore-是否禁用检测
func (h *hazardDetector) vehicleHazard(frontGap, maxDistance float64, ignore bool) bool {
	return !ignore && frontGap < maxDistance
}

// lightHazard 红灯危险判定
// 参数：selfPose-自车位姿，selfWp-自车所在位置的车道中心路径点，
// maxDistance-检测距离（基础阈值+当前速度），ignore-是否禁用检测
// 返回：是否存在红灯危险，以及管控的信号灯
// 算法说明：
// 1. 快路径：若已缓存管控红灯，只复查该灯的当前灯态；仍为红灯立即报告危险，
//    否则丢弃缓存并进入全量扫描
// 2. 全量扫描：逐灯解析（并备忘）触发区锚点路径点，依次过滤
//    锚点超距、所在道路不同、触发区朝向与自车行进方向相反（点积<0）、
//    非红灯态的信号灯；余下首个锚点落在距离与[0°,90°]方位角包络内的
//    信号灯成为新的管控红灯并报告危险
// 3. 全量扫描无命中则报告无危险
func (h *hazardDetector) lightHazard(
	selfPose, selfWp entity.Waypoint, maxDistance float64, ignore bool,
) (bool, entity.ITrafficLight) {
	if ignore {
		return false, nil
	}

	if h.lastLight != nil {
		if h.lastLight.State() != mapv2.LightState_LIGHT_STATE_RED {
			h.lastLight = nil
		} else {
			return true, h.lastLight
		}
	}

	for _, tl := range h.world.TrafficLights() {
		triggerWp, ok := h.triggerWps[tl.ID()]
		if !ok {
			triggerWp = h.world.LaneCenter(tl.TriggerXYZ())
			h.triggerWps[tl.ID()] = triggerWp
		}

		if entity.ComputeDistance(triggerWp.XYZ, selfPose.XYZ) > maxDistance {
			continue
		}
		if triggerWp.RoadID != selfWp.RoadID {
			continue
		}

		ve := selfWp.ForwardVector()
		wd := triggerWp.ForwardVector()
		if ve.X*wd.X+ve.Y*wd.Y+ve.Z*wd.Z < 0 {
			continue
		}

		if tl.State() != mapv2.LightState_LIGHT_STATE_RED {
			continue
		}

		if entity.IsWithinDistance(triggerWp, selfPose, maxDistance, [2]float64{0, 90}) {
			h.lastLight = tl
			return true, tl
		}
	}

	return false, nil
}
