package lane

import (
	"math"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity"
)

// Lane 车道实体
// 功能：表示一条车道，包含中心线几何信息与限速，提供s坐标与xy坐标的互转、
// 路径点采样等几何查询
type Lane struct {
	id     int32
	index  entity.LaneIndex
	roadID int32
	maxV   float64 // 车道限速（米/秒）
	width  float64 // 车道宽度

	line           []geometry.Point             // 中心线折线
	lineLengths    []float64                    // 中心线折线点对应的长度列表
	lineDirections []geometry.PolylineDirection // 中心线折线段每一段的方向（atan2）
	length         float64                      // 以中心线的长度为车道长度
}

// New 创建并初始化一个新的Lane实例
// 参数：id-车道ID，index-车道编号，roadID-所在道路ID，maxV-限速，width-车道宽度，line-中心线折线
// 说明：折线至少需要两个点
func New(id int32, index entity.LaneIndex, roadID int32, maxV, width float64, line []geometry.Point) *Lane {
	if len(line) < 2 {
		log.Panicf("lane %d: center line needs at least 2 points, got %d", id, len(line))
	}
	l := &Lane{
		id:     id,
		index:  index,
		roadID: roadID,
		maxV:   maxV,
		width:  width,
		line:   line,
	}
	l.lineLengths = geometry.GetPolylineLengths2D(l.line)
	l.length = l.lineLengths[len(l.lineLengths)-1]
	l.lineDirections = geometry.GetPolylineDirections(l.line)
	return l
}

// ID 获取车道ID
func (l *Lane) ID() int32 {
	return l.id
}

// Index 获取车道编号
func (l *Lane) Index() entity.LaneIndex {
	return l.index
}

// RoadID 获取所在道路ID
func (l *Lane) RoadID() int32 {
	return l.roadID
}

// MaxV 获取车道限速（米/秒）
func (l *Lane) MaxV() float64 {
	return l.maxV
}

// Width 获取车道宽度
func (l *Lane) Width() float64 {
	return l.width
}

// Length 获取车道长度
func (l *Lane) Length() float64 {
	return l.length
}

// Line 获取车道中心线
func (l *Lane) Line() []geometry.Point {
	return l.line
}

// GetDirectionByS 根据本车道s坐标计算切向角度
func (l *Lane) GetDirectionByS(s float64) (direction geometry.PolylineDirection) {
	if s < l.lineLengths[0] || s > l.lineLengths[len(l.lineLengths)-1] {
		log.Debugf("get direction with s %v out of range{%v,%v}",
			s, l.lineLengths[0], l.lineLengths[len(l.lineLengths)-1])
		s = lo.Clamp(s, l.lineLengths[0], l.lineLengths[len(l.lineLengths)-1])
	}
	if i := sort.SearchFloat64s(l.lineLengths, s); i == 0 {
		direction = l.lineDirections[0]
	} else {
		direction = l.lineDirections[i-1]
	}
	return
}

// GetPositionByS 将当前车道s坐标转换为xy(z)坐标
func (l *Lane) GetPositionByS(s float64) (pos geometry.Point) {
	if s < l.lineLengths[0] || s > l.lineLengths[len(l.lineLengths)-1] {
		log.Debugf("get position with s %v out of range{%v,%v}",
			s, l.lineLengths[0], l.lineLengths[len(l.lineLengths)-1])
		s = lo.Clamp(s, l.lineLengths[0], l.lineLengths[len(l.lineLengths)-1])
	}
	if i := sort.SearchFloat64s(l.lineLengths, s); i == 0 {
		pos = l.line[0]
	} else {
		sHigh, sLow := l.lineLengths[i], l.lineLengths[i-1]
		k := (s - sLow) / (sHigh - sLow)
		pos = geometry.Blend(l.line[i-1], l.line[i], k)
	}
	return
}

// ProjectToLane 将xyz坐标投影到车道折线上，计算出对应的s坐标
func (l *Lane) ProjectToLane(pos geometry.Point) float64 {
	s := geometry.GetClosestPolylineSToPoint2D(l.line, l.lineLengths, pos)
	return lo.Clamp(s, 0, l.length)
}

// WaypointAtS 获取s坐标处的路径点
func (l *Lane) WaypointAtS(s float64) entity.Waypoint {
	return entity.Waypoint{
		XYZ:       l.GetPositionByS(s),
		Direction: l.GetDirectionByS(s).Direction,
		RoadID:    l.roadID,
	}
}

// SampleForward 从s坐标处沿行进方向等间隔采样路径点
// 参数：s-起始s坐标，resolution-采样间隔，count-期望采样数量
// 返回：路径点序列，车道末端之外的部分被截断，因此长度可能小于count
func (l *Lane) SampleForward(s, resolution float64, count int) []entity.Waypoint {
	wps := make([]entity.Waypoint, 0, count)
	for i := 1; i <= count; i++ {
		si := s + float64(i)*resolution
		if si > l.length {
			break
		}
		wps = append(wps, l.WaypointAtS(si))
	}
	return wps
}

// SampleBackward 从s坐标处沿行进反方向等间隔采样路径点
// 说明：与SampleForward对称，车道起点之前的部分被截断
func (l *Lane) SampleBackward(s, resolution float64, count int) []entity.Waypoint {
	wps := make([]entity.Waypoint, 0, count)
	for i := 1; i <= count; i++ {
		si := s - float64(i)*resolution
		if si < 0 {
			break
		}
		wps = append(wps, l.WaypointAtS(si))
	}
	return wps
}

// OffsetLine 生成中心线沿法向平移offset后的折线
// 说明：offset为正时向行进方向右侧平移，用于由道路中心线构造相邻车道
func OffsetLine(line []geometry.Point, offset float64) []geometry.Point {
	directions := geometry.GetPolylineDirections(line)
	out := make([]geometry.Point, len(line))
	for i, p := range line {
		d := directions[int(math.Min(float64(i), float64(len(directions)-1)))]
		out[i] = geometry.Point{
			X: p.X + math.Cos(d.Direction-math.Pi/2)*offset,
			Y: p.Y + math.Sin(d.Direction-math.Pi/2)*offset,
			Z: p.Z,
		}
	}
	return out
}
