package vehicle_test

import (
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"

	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity/vehicle"
)

func TestApplyControlAcceleration(t *testing.T) {
	v := vehicle.New(1, geometry.Point{}, 0, 0, 4.5)

	v.ApplyControl(entity.ControlInfo{Throttle: 0.5, Gear: 1}, 1)
	assert.InDelta(t, 1.5, v.V(), 1e-9)
	assert.Greater(t, v.XYZ().X, 0.0)
	assert.InDelta(t, 0, v.XYZ().Y, 1e-9)
}

func TestApplyControlBrakeFloor(t *testing.T) {
	v := vehicle.New(1, geometry.Point{}, 0, 1, 4.5)

	// 制动不会使速度倒退到负值
	v.ApplyControl(entity.ControlInfo{Brake: 1, Gear: 1}, 1)
	assert.Equal(t, 0.0, v.V())

	// 手刹等价于满制动
	v.SetV(5)
	v.ApplyControl(entity.ControlInfo{HandBrake: true, Gear: 1}, 1)
	assert.Equal(t, 0.0, v.V())
}

func TestApplyControlSteer(t *testing.T) {
	right := vehicle.New(1, geometry.Point{}, 0, 10, 4.5)
	right.ApplyControl(entity.ControlInfo{Steer: 0.5, Gear: 1}, 0.05)
	// 正转向向右，朝向角减小
	assert.Less(t, right.Direction(), 0.0)

	left := vehicle.New(2, geometry.Point{}, 0, 10, 4.5)
	left.ApplyControl(entity.ControlInfo{Steer: -0.5, Gear: 1}, 0.05)
	assert.Greater(t, left.Direction(), 0.0)
}

func TestMoveAlong(t *testing.T) {
	v := vehicle.New(1, geometry.Point{}, 0, 10, 4.5)
	v.MoveAlong(0, 0.5)
	assert.InDelta(t, 5, v.XYZ().X, 1e-9)
	assert.InDelta(t, 0, v.Direction(), 1e-9)
}
