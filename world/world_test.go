package world_test

import (
	"math"
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"

	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/utils/input"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/world"
)

func testScenario() *input.Scenario {
	return &input.Scenario{
		Roads: []input.RoadSpec{{
			ID:         1,
			CenterLine: []input.PointSpec{{X: 0, Y: 0}, {X: 200, Y: 0}},
			LaneWidth:  3.5,
			MaxSpeed:   16.7,
		}},
		Lights: []input.LightSpec{{
			ID: 1, RoadID: 1, S: 100,
			Phases:     []input.PhaseSpec{{State: "RED", Duration: 30}, {State: "GREEN", Duration: 30}},
			StartPhase: 0,
		}},
		Vehicles: []input.VehicleSpec{
			{ID: 1, Lane: entity.LaneCenter, S: 10, V: 5, Length: 4.5, IsEgo: true},
			{ID: 2, Lane: entity.LaneCenter, S: 30, V: 5, Length: 4.5},
		},
	}
}

func TestBuildFromScenario(t *testing.T) {
	w, err := world.BuildFromScenario(testScenario())
	assert.Nil(t, err)
	assert.NotNil(t, w.Ego())
	assert.Equal(t, int32(1), w.Ego().ID())
	assert.Len(t, w.Vehicles(), 2)
	assert.Len(t, w.TrafficLights(), 1)

	// 信号灯触发锚点位于中心车道s=100处
	trigger := w.TrafficLights()[0].TriggerXYZ()
	assert.InDelta(t, 100, trigger.X, 1e-6)
	assert.InDelta(t, 0, trigger.Y, 1e-6)
}

func TestLaneIndexOf(t *testing.T) {
	w, err := world.BuildFromScenario(testScenario())
	assert.Nil(t, err)
	assert.Equal(t, entity.LaneCenter, w.LaneIndexOf(w.Ego()))
}

func TestLaneCenter(t *testing.T) {
	w, err := world.BuildFromScenario(testScenario())
	assert.Nil(t, err)

	// 中心线左偏移的车道位于y=+3.5
	wp := w.LaneCenter(geometry.Point{X: 50, Y: 3.4})
	assert.InDelta(t, 3.5, wp.XYZ.Y, 1e-6)
	assert.InDelta(t, 0, wp.Direction, 1e-6)
	assert.Equal(t, int32(1), wp.RoadID)
}

func TestBuildLaneContext(t *testing.T) {
	w, err := world.BuildFromScenario(testScenario())
	assert.Nil(t, err)
	ego := w.Ego()

	ctx := w.BuildLaneContext(ego, entity.LaneCenter, 2, 10)

	// 三条车道的前方缓冲均可用
	for side := 0; side < 3; side++ {
		assert.Len(t, ctx.Wps[side][entity.FRONT], 10)
	}
	// 本车道前车间距：弧长差扣除两车半长
	assert.InDelta(t, 20-4.5, ctx.Gaps[entity.CENTER][entity.FRONT], 1e-6)
	assert.True(t, math.IsInf(ctx.Gaps[entity.CENTER][entity.REAR], 1))
	assert.True(t, math.IsInf(ctx.Gaps[entity.LEFT][entity.FRONT], 1))
	assert.True(t, math.IsInf(ctx.Gaps[entity.RIGHT][entity.FRONT], 1))
}

func TestBuildLaneContextEdgeLane(t *testing.T) {
	w, err := world.BuildFromScenario(testScenario())
	assert.Nil(t, err)

	// 最左车道没有左邻，对应槽位缓冲为空
	ctx := w.BuildLaneContext(w.Ego(), entity.LaneLeft, 2, 10)
	assert.Empty(t, ctx.Wps[entity.LEFT][entity.FRONT])
	assert.Len(t, ctx.Wps[entity.CENTER][entity.FRONT], 10)
	assert.Len(t, ctx.Wps[entity.RIGHT][entity.FRONT], 10)
}

func TestUpdateLightsAndNPCs(t *testing.T) {
	w, err := world.BuildFromScenario(testScenario())
	assert.Nil(t, err)

	// 相位推进
	before := w.TrafficLights()[0].State()
	w.UpdateLights(30)
	assert.NotEqual(t, before, w.TrafficLights()[0].State())

	// 非受控车辆沿车道匀速行驶，受控车辆不动
	egoX := w.Ego().XYZ().X
	w.StepNPCs(1)
	assert.Equal(t, egoX, w.Ego().XYZ().X)
	var npc entity.IVehicle
	for _, v := range w.Vehicles() {
		if v.ID() == 2 {
			npc = v
		}
	}
	assert.InDelta(t, 35, npc.XYZ().X, 1e-6)
}
