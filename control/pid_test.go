package control_test

import (
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"

	"github.com/tsinghua-fib-lab/autopilot-sim-oss/control"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/utils/config"
)

type stubVehicle struct {
	xyz       geometry.Point
	direction float64
	v         float64
}

func (s *stubVehicle) ID() int32                       { return 1 }
func (s *stubVehicle) XYZ() geometry.Point             { return s.xyz }
func (s *stubVehicle) Direction() float64              { return s.direction }
func (s *stubVehicle) V() float64                      { return s.v }
func (s *stubVehicle) Length() float64                 { return 4.5 }
func (s *stubVehicle) LaneIndex() entity.LaneIndex     { return entity.LaneCenter }
func (s *stubVehicle) SetLaneIndex(_ entity.LaneIndex) {}

func newController(veh *stubVehicle) *control.VehiclePIDController {
	return control.NewVehiclePIDController(veh,
		config.PIDParams{KP: 1.95, KI: 0.05, KD: 0.2},
		config.PIDParams{KP: 1.0, KI: 0.05},
		0.05, 0.75, 0.3, 0.8)
}

func TestLongitudinalThrottle(t *testing.T) {
	veh := &stubVehicle{}
	c := newController(veh)

	// 静止起步追赶目标速度，油门饱和到上限
	out := c.RunStep(20, entity.Waypoint{XYZ: geometry.Point{X: 10}})
	assert.Equal(t, 0.75, out.Throttle)
	assert.Equal(t, 0.0, out.Brake)
	assert.Equal(t, int32(1), out.Gear)
}

func TestLongitudinalBrake(t *testing.T) {
	veh := &stubVehicle{v: 20} // 72 km/h
	c := newController(veh)

	out := c.RunStep(0, entity.Waypoint{XYZ: geometry.Point{X: 10}})
	assert.Equal(t, 0.0, out.Throttle)
	assert.Equal(t, 0.3, out.Brake)
}

func TestSteerRateLimit(t *testing.T) {
	veh := &stubVehicle{v: 10}
	c := newController(veh)
	// 目标在正左侧，航向误差接近90度
	target := entity.Waypoint{XYZ: geometry.Point{X: 0.01, Y: 10}}

	// 单tick转向变化被限制在0.1以内
	out := c.RunStep(36, target)
	assert.InDelta(t, -0.1, out.Steer, 1e-9)
	out = c.RunStep(36, target)
	assert.InDelta(t, -0.2, out.Steer, 1e-9)
}

func TestSteerSign(t *testing.T) {
	veh := &stubVehicle{v: 10}
	// 目标在右前方，转向为正
	out := newController(veh).RunStep(36, entity.Waypoint{XYZ: geometry.Point{X: 10, Y: -10}})
	assert.Greater(t, out.Steer, 0.0)

	// 目标在左前方，转向为负
	out = newController(&stubVehicle{v: 10}).RunStep(36, entity.Waypoint{XYZ: geometry.Point{X: 10, Y: 10}})
	assert.Less(t, out.Steer, 0.0)
}

func TestSteerOnTarget(t *testing.T) {
	veh := &stubVehicle{v: 10}
	c := newController(veh)

	// 目标与车辆重合时不产生转向
	out := c.RunStep(36, entity.Waypoint{XYZ: geometry.Point{}})
	assert.Equal(t, 0.0, out.Steer)
}
