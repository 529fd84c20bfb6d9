package lane_test

import (
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"

	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity/lane"
)

func eastLane() *lane.Lane {
	return lane.New(10, entity.LaneCenter, 1, 16.7, 3.5, []geometry.Point{
		{X: 0, Y: 0}, {X: 100, Y: 0},
	})
}

func TestLaneGeometry(t *testing.T) {
	l := eastLane()
	assert.Equal(t, 100.0, l.Length())
	assert.Equal(t, int32(1), l.RoadID())

	p := l.GetPositionByS(50)
	assert.InDelta(t, 50, p.X, 1e-9)
	assert.InDelta(t, 0, p.Y, 1e-9)
	assert.InDelta(t, 0, l.GetDirectionByS(50).Direction, 1e-9)

	// s越界时夹取到车道端点
	p = l.GetPositionByS(200)
	assert.InDelta(t, 100, p.X, 1e-9)
}

func TestProjectToLane(t *testing.T) {
	l := eastLane()
	assert.InDelta(t, 30, l.ProjectToLane(geometry.Point{X: 30, Y: 5}), 1e-9)
	assert.InDelta(t, 0, l.ProjectToLane(geometry.Point{X: -10, Y: 0}), 1e-9)
	assert.InDelta(t, 100, l.ProjectToLane(geometry.Point{X: 150, Y: 0}), 1e-9)
}

func TestWaypointAtS(t *testing.T) {
	l := eastLane()
	wp := l.WaypointAtS(20)
	assert.InDelta(t, 20, wp.XYZ.X, 1e-9)
	assert.InDelta(t, 0, wp.Direction, 1e-9)
	assert.Equal(t, int32(1), wp.RoadID)
}

func TestSampleTruncation(t *testing.T) {
	l := eastLane()

	wps := l.SampleForward(0, 2, 10)
	assert.Len(t, wps, 10)
	assert.InDelta(t, 2, wps[0].XYZ.X, 1e-9)
	assert.InDelta(t, 20, wps[9].XYZ.X, 1e-9)

	// 车道末端之外的采样被截断
	wps = l.SampleForward(95, 2, 10)
	assert.Len(t, wps, 2)

	// 车道起点之前同理
	wps = l.SampleBackward(3, 2, 10)
	assert.Len(t, wps, 1)
	assert.InDelta(t, 1, wps[0].XYZ.X, 1e-9)
}

func TestOffsetLine(t *testing.T) {
	line := []geometry.Point{{X: 0, Y: 0}, {X: 100, Y: 0}}

	// 朝东行进时正偏移指向南侧（右侧）
	right := lane.OffsetLine(line, 3.5)
	assert.InDelta(t, -3.5, right[0].Y, 1e-9)
	assert.InDelta(t, -3.5, right[1].Y, 1e-9)
	assert.InDelta(t, 0, right[0].X, 1e-9)

	left := lane.OffsetLine(line, -3.5)
	assert.InDelta(t, 3.5, left[0].Y, 1e-9)
}
