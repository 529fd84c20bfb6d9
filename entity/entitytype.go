package entity

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
)

// 方位常量
const (
	LEFT   = 0 // 左侧车道
	CENTER = 1 // 当前车道
	RIGHT  = 2 // 右侧车道

	FRONT = 0 // 前方，等价于ahead
	REAR  = 1 // 后方，等价于behind
)

// LaneIndex 车道编号
// 以负数编码自车可感知的三条车道，CENTER为自车标称车道
type LaneIndex int32

const (
	LaneUnset  LaneIndex = 0  // 未初始化
	LaneLeft   LaneIndex = -1 // 左侧车道
	LaneCenter LaneIndex = -2 // 当前车道
	LaneRight  LaneIndex = -3 // 右侧车道
)

// Valid 判断车道编号是否在可感知范围内
func (l LaneIndex) Valid() bool {
	return l == LaneLeft || l == LaneCenter || l == LaneRight
}

// Side 将车道编号转换为LEFT/CENTER/RIGHT数组下标
// 说明：仅对Valid()为true的编号有意义
func (l LaneIndex) Side() int {
	return int(-l) - 1
}

// Waypoint 路径点
// 功能：描述车道中心线上一个采样点的位置与朝向
type Waypoint struct {
	XYZ       geometry.Point // 位置
	Direction float64        // 前进方向（atan2弧度）
	RoadID    int32          // 所在道路ID
}

// ForwardVector 获取路径点朝向的单位向量
func (w Waypoint) ForwardVector() geometry.Point {
	return geometry.Point{X: math.Cos(w.Direction), Y: math.Sin(w.Direction)}
}

// ControlInfo 车辆控制指令
// 每个tick重新生成，不跨tick保留
type ControlInfo struct {
	Throttle  float64 // 油门[0,1]
	Brake     float64 // 制动[0,maxBrake]
	Steer     float64 // 转向[-1,1]
	Gear      int32   // 档位
	HandBrake bool    // 手刹
}

// entity/vehicle/vehicle.go的依赖倒置
type IVehicle interface {
	ID() int32            // 获取车辆ID
	XYZ() geometry.Point  // 获取车辆位置坐标
	Direction() float64   // 获取车辆朝向（atan2弧度）
	V() float64           // 获取车辆速度（米/秒）
	Length() float64      // 获取车长
	LaneIndex() LaneIndex // 获取车辆当前车道编号
	SetLaneIndex(l LaneIndex)
}

// entity/trafficlight/trafficlight.go的依赖倒置
type ITrafficLight interface {
	ID() int32                  // 获取信号灯ID
	State() mapv2.LightState    // 获取当前灯态
	TriggerXYZ() geometry.Point // 获取触发区锚点坐标
	RoadID() int32              // 获取信号灯管控的道路ID
}

// world/world.go的依赖倒置，核心模块只读访问
type IWorld interface {
	Vehicles() []IVehicle           // 枚举所有车辆
	TrafficLights() []ITrafficLight // 枚举所有信号灯
	// 获取给定位置最近的车道中心路径点
	LaneCenter(pos geometry.Point) Waypoint
}

// ComputeDistance 计算两点间的欧氏距离
func ComputeDistance(a, b geometry.Point) float64 {
	return math.Sqrt((a.X-b.X)*(a.X-b.X) + (a.Y-b.Y)*(a.Y-b.Y) + (a.Z-b.Z)*(a.Z-b.Z))
}

// IsWithinDistance 判断目标路径点是否处于参考位姿的距离与角度包络内
// 参数：target-目标路径点，reference-参考位姿，maxDistance-最大距离，
// angleRange-以参考朝向为基准的夹角范围[min,max]（度）
// 算法说明：
// 1. 计算参考位置指向目标的向量，距离极小时直接判定为在范围内
// 2. 距离超过maxDistance时判定为不在范围内
// 3. 由点积计算该向量与参考朝向的夹角，要求落在angleRange内
func IsWithinDistance(target, reference Waypoint, maxDistance float64, angleRange [2]float64) bool {
	tvX := target.XYZ.X - reference.XYZ.X
	tvY := target.XYZ.Y - reference.XYZ.Y
	norm := math.Hypot(tvX, tvY)
	if norm < 1e-3 {
		return true
	}
	if norm > maxDistance {
		return false
	}
	fv := reference.ForwardVector()
	cos := (fv.X*tvX + fv.Y*tvY) / norm
	angle := math.Acos(math.Max(-1, math.Min(1, cos))) * 180 / math.Pi
	return angleRange[0] <= angle && angle <= angleRange[1]
}
