package agent

import (
	"errors"
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"

	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity"
)

// fakePID 记录最近一次调用参数
type fakePID struct {
	targetSpeed float64
	target      entity.Waypoint
	out         entity.ControlInfo
}

func (p *fakePID) RunStep(targetSpeedKmh float64, target entity.Waypoint) entity.ControlInfo {
	p.targetSpeed = targetSpeedKmh
	p.target = target
	return p.out
}

func makeBuffer(n int) []entity.Waypoint {
	wps := make([]entity.Waypoint, n)
	for i := range wps {
		wps[i] = entity.Waypoint{XYZ: geometry.Point{X: float64(i)}}
	}
	return wps
}

func TestLookAheadOffset(t *testing.T) {
	tr := &trajectoryTracker{baseMinDistance: 3}

	assert.Equal(t, 3, tr.lookAheadOffset(0)) // 居中
	assert.Equal(t, 2, tr.lookAheadOffset(2)) // 偏移一半
	assert.Equal(t, 1, tr.lookAheadOffset(4)) // 偏移达到归一化常数

	// 基础前视距离加大后落入最远档
	tr.baseMinDistance = 5
	assert.Equal(t, 4, tr.lookAheadOffset(0))
}

func TestTrackFollow(t *testing.T) {
	pid := &fakePID{out: entity.ControlInfo{Throttle: 0.5}}
	tr := &trajectoryTracker{pid: pid, baseMinDistance: 3, targetSpeed: 20}

	ctx := &LaneContext{}
	ctx.Wps[entity.CENTER][entity.FRONT] = makeBuffer(10)
	pose := entity.Waypoint{XYZ: geometry.Point{}}

	control, err := tr.track(ActionLaneFollow, pose, pose, ctx)
	assert.Nil(t, err)
	assert.Equal(t, 0.5, control.Throttle)
	assert.Equal(t, 20.0, pid.targetSpeed)
	// 居中时索引 = 基础索引2 + 前视偏移3
	assert.Equal(t, ctx.Wps[entity.CENTER][entity.FRONT][5], pid.target)
}

func TestTrackChange(t *testing.T) {
	pid := &fakePID{}
	tr := &trajectoryTracker{pid: pid, baseMinDistance: 3, targetSpeed: 20}

	ctx := &LaneContext{}
	ctx.Wps[entity.LEFT][entity.FRONT] = makeBuffer(25)
	ctx.Wps[entity.RIGHT][entity.FRONT] = makeBuffer(25)
	pose := entity.Waypoint{XYZ: geometry.Point{}}

	// 变道深入对应侧缓冲，索引 = 基础索引15 + 前视偏移3，目标速度固定
	_, err := tr.track(ActionLaneChangeLeft, pose, pose, ctx)
	assert.Nil(t, err)
	assert.Equal(t, float64(changeTargetSpeed), pid.targetSpeed)
	assert.Equal(t, ctx.Wps[entity.LEFT][entity.FRONT][18], pid.target)

	_, err = tr.track(ActionLaneChangeRight, pose, pose, ctx)
	assert.Nil(t, err)
	assert.Equal(t, ctx.Wps[entity.RIGHT][entity.FRONT][18], pid.target)
}

func TestTrackOutOfRange(t *testing.T) {
	tr := &trajectoryTracker{pid: &fakePID{}, baseMinDistance: 3, targetSpeed: 20}

	// 缓冲长度不足以支撑变道索引
	ctx := &LaneContext{}
	ctx.Wps[entity.LEFT][entity.FRONT] = makeBuffer(10)
	pose := entity.Waypoint{XYZ: geometry.Point{}}

	_, err := tr.track(ActionLaneChangeLeft, pose, pose, ctx)
	assert.True(t, errors.Is(err, ErrWaypointOutOfRange))

	// 空缓冲同样适用
	ctx.Wps[entity.CENTER][entity.FRONT] = nil
	_, err = tr.track(ActionLaneFollow, pose, pose, ctx)
	assert.True(t, errors.Is(err, ErrWaypointOutOfRange))
}
