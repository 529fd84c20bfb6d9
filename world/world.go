// Package world 维护仿真世界：道路车道几何、信号灯与全部车辆，
// 并为控制器提供感知查询（车道中心投影、三车道路径点缓冲与前后车间距）
package world

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/mathutil"
	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"

	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity/agent"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity/lane"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity/trafficlight"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity/vehicle"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/utils/input"
)

// World 仿真世界
// 车辆行驶在主道路上，主道路由中心线左右偏移生成左中右三条车道
type World struct {
	driveLanes map[entity.LaneIndex]*lane.Lane // 主道路三车道
	allLanes   []*lane.Lane

	vehicles []*vehicle.Vehicle
	ego      *vehicle.Vehicle
	lights   []*trafficlight.TrafficLight
}

// BuildFromScenario 根据场景数据构造世界
// 算法说明：
// 1. 每条道路的中心线向左右各偏移一个车道宽，得到左中右三条车道
// 2. 信号灯触发锚点取所属道路中心车道s坐标处的位置
// 3. 车辆按(lane, s)摆放，朝向取车道在该处的切向
func BuildFromScenario(sc *input.Scenario) (*World, error) {
	w := &World{driveLanes: make(map[entity.LaneIndex]*lane.Lane)}

	centerLanes := make(map[int32]*lane.Lane)
	for roadI, r := range sc.Roads {
		line := lo.Map(r.CenterLine, func(p input.PointSpec, _ int) geometry.Point {
			return p.ToPoint()
		})
		// 车道ID = 道路ID*10 + 车道序号
		offsets := map[entity.LaneIndex]float64{
			entity.LaneLeft:   -r.LaneWidth,
			entity.LaneCenter: 0,
			entity.LaneRight:  r.LaneWidth,
		}
		for _, index := range []entity.LaneIndex{entity.LaneLeft, entity.LaneCenter, entity.LaneRight} {
			id := r.ID*10 + int32(index.Side())
			l := lane.New(id, index, r.ID, r.MaxSpeed, r.LaneWidth,
				lane.OffsetLine(line, offsets[index]))
			w.allLanes = append(w.allLanes, l)
			if roadI == 0 {
				w.driveLanes[index] = l
			}
			if index == entity.LaneCenter {
				centerLanes[r.ID] = l
			}
		}
	}

	for _, spec := range sc.Lights {
		center, ok := centerLanes[spec.RoadID]
		if !ok {
			return nil, fmt.Errorf("world: light %d references unknown road %d", spec.ID, spec.RoadID)
		}
		phases := lo.Map(spec.Phases, func(p input.PhaseSpec, _ int) trafficlight.Phase {
			return trafficlight.Phase{State: p.LightState(), Duration: p.Duration}
		})
		trigger := center.WaypointAtS(spec.S).XYZ
		w.lights = append(w.lights,
			trafficlight.New(spec.ID, spec.RoadID, trigger, phases, spec.StartPhase))
	}

	for _, spec := range sc.Vehicles {
		l, ok := w.driveLanes[spec.Lane]
		if !ok {
			return nil, fmt.Errorf("world: vehicle %d references unknown lane %d", spec.ID, spec.Lane)
		}
		wp := l.WaypointAtS(spec.S)
		v := vehicle.New(spec.ID, wp.XYZ, wp.Direction, spec.V, spec.Length)
		v.SetLaneIndex(spec.Lane)
		w.vehicles = append(w.vehicles, v)
		if spec.IsEgo {
			w.ego = v
		}
	}
	if w.ego == nil {
		return nil, fmt.Errorf("world: scenario has no ego vehicle")
	}
	log.Infof("world: %d lanes, %d lights, %d vehicles",
		len(w.allLanes), len(w.lights), len(w.vehicles))
	return w, nil
}

// Ego 获取受控车辆
func (w *World) Ego() *vehicle.Vehicle {
	return w.ego
}

// Vehicles 枚举所有车辆
func (w *World) Vehicles() []entity.IVehicle {
	return lo.Map(w.vehicles, func(v *vehicle.Vehicle, _ int) entity.IVehicle { return v })
}

// TrafficLights 枚举所有信号灯
func (w *World) TrafficLights() []entity.ITrafficLight {
	return lo.Map(w.lights, func(t *trafficlight.TrafficLight, _ int) entity.ITrafficLight { return t })
}

// UpdateLights 推进所有信号灯一个时间步
func (w *World) UpdateLights(dt float64) {
	parallel.GoFor(w.lights, func(t *trafficlight.TrafficLight) { t.Update(dt) })
}

// StepNPCs 推进所有非受控车辆
// 非受控车辆沿各自车道匀速行驶
func (w *World) StepNPCs(dt float64) {
	parallel.GoFor(w.vehicles, func(v *vehicle.Vehicle) {
		if v == w.ego {
			return
		}
		l, ok := w.driveLanes[v.LaneIndex()]
		if !ok {
			return
		}
		s := l.ProjectToLane(v.XYZ())
		v.MoveAlong(l.GetDirectionByS(s).Direction, dt)
	})
}

// LaneCenter 获取给定位置最近的车道中心路径点
func (w *World) LaneCenter(pos geometry.Point) entity.Waypoint {
	l, s := w.closestLane(pos)
	return l.WaypointAtS(s)
}

// closestLane 在全部车道中查找与给定位置投影距离最近的车道及其s坐标
func (w *World) closestLane(pos geometry.Point) (*lane.Lane, float64) {
	var best *lane.Lane
	var bestS float64
	bestDist := mathutil.INF
	for _, l := range w.allLanes {
		s := l.ProjectToLane(pos)
		d := entity.ComputeDistance(l.GetPositionByS(s), pos)
		if d < bestDist {
			bestDist = d
			best = l
			bestS = s
		}
	}
	return best, bestS
}

// LaneIndexOf 判定车辆当前所在车道
// 取投影距离最近的主道路车道
func (w *World) LaneIndexOf(v entity.IVehicle) entity.LaneIndex {
	best := entity.LaneUnset
	bestDist := mathutil.INF
	for index, l := range w.driveLanes {
		s := l.ProjectToLane(v.XYZ())
		d := entity.ComputeDistance(l.GetPositionByS(s), v.XYZ())
		if d < bestDist {
			bestDist = d
			best = index
		}
	}
	return best
}

// BuildLaneContext 构造车辆的逐tick感知快照
// 参数：v-目标车辆，currentLane-其当前车道，resolution-路径点采样间隔，count-缓冲长度上限
// 算法说明：
// 1. 以当前车道为参照，左/中/右槽位分别对应相邻车道，越界侧留空缓冲
// 2. 每条车道以车辆投影s为原点向前/向后等间隔采样，在车道端点处截断
// 3. 间距取同车道其他车辆与本车的弧长差扣除两车半长，无车时为正无穷
func (w *World) BuildLaneContext(
	v entity.IVehicle, currentLane entity.LaneIndex, resolution float64, count int,
) agent.LaneContext {
	ctx := agent.LaneContext{}
	for side := range ctx.Gaps {
		ctx.Gaps[side][entity.FRONT] = mathutil.INF
		ctx.Gaps[side][entity.REAR] = mathutil.INF
	}
	for side := 0; side < 3; side++ {
		// 槽位LEFT/CENTER/RIGHT相对当前车道偏移+1/0/-1
		index := currentLane + entity.LaneIndex(1-side)
		l, ok := w.driveLanes[index]
		if !ok {
			continue
		}
		s := l.ProjectToLane(v.XYZ())
		ctx.Wps[side][entity.FRONT] = l.SampleForward(s, resolution, count)
		ctx.Wps[side][entity.REAR] = l.SampleBackward(s, resolution, count)
		for _, other := range w.vehicles {
			if other.ID() == v.ID() || other.LaneIndex() != index {
				continue
			}
			ds := l.ProjectToLane(other.XYZ()) - s
			gap := math.Abs(ds) - (other.Length()+v.Length())/2
			if gap < 0 {
				gap = 0
			}
			slot := entity.FRONT
			if ds < 0 {
				slot = entity.REAR
			}
			if gap < ctx.Gaps[side][slot] {
				ctx.Gaps[side][slot] = gap
			}
		}
	}
	return ctx
}

var _ entity.IWorld = (*World)(nil)
