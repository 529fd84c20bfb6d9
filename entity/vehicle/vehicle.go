package vehicle

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity"
)

const (
	maxAcceleration = 3.0  // 满油门加速度（米/秒²）
	maxDeceleration = 12.0 // 满制动减速度（米/秒²）
	maxSteerAngle   = 0.61 // 前轮最大转角（弧度，约35度）
	wheelBase       = 2.8  // 轴距（米）
)

// Vehicle 车辆实体
// 功能：维护车辆位姿与速度，按简化的单车模型对控制指令做运动学积分
type Vehicle struct {
	id        int32
	xyz       geometry.Point
	direction float64 // 朝向（atan2弧度）
	v         float64 // 速度（米/秒）
	length    float64
	laneIndex entity.LaneIndex
}

// New 创建车辆实体
// 参数：id-车辆ID，xyz-初始位置，direction-初始朝向，v-初始速度，length-车长
func New(id int32, xyz geometry.Point, direction, v, length float64) *Vehicle {
	return &Vehicle{
		id:        id,
		xyz:       xyz,
		direction: direction,
		v:         v,
		length:    length,
		laneIndex: entity.LaneUnset,
	}
}

// ApplyControl 应用控制指令并推进一个时间步
// 参数：c-控制指令，dt-时间步长
// 算法说明：
// 1. 油门与制动换算为纵向加速度，手刹等价于满制动
// 2. 速度积分并限制不倒车
// 3. 转向量按最大前轮转角换算，以单车模型更新朝向
// 4. 位置沿新朝向积分
func (v *Vehicle) ApplyControl(c entity.ControlInfo, dt float64) {
	a := c.Throttle * maxAcceleration
	brake := c.Brake
	if c.HandBrake {
		brake = 1
	}
	a -= brake * maxDeceleration
	v.v = math.Max(v.v+a*dt, 0)

	// 转向约定：正值向右（朝向角减小），负值向左
	phi := c.Steer * maxSteerAngle
	v.direction -= v.v / wheelBase * math.Tan(phi) * dt
	v.xyz.X += v.v * math.Cos(v.direction) * dt
	v.xyz.Y += v.v * math.Sin(v.direction) * dt
}

// ID 获取车辆ID
func (v *Vehicle) ID() int32 {
	return v.id
}

// XYZ 获取车辆位置坐标
func (v *Vehicle) XYZ() geometry.Point {
	return v.xyz
}

// Direction 获取车辆朝向
func (v *Vehicle) Direction() float64 {
	return v.direction
}

// V 获取车辆速度（米/秒）
func (v *Vehicle) V() float64 {
	return v.v
}

// Length 获取车长
func (v *Vehicle) Length() float64 {
	return v.length
}

// LaneIndex 获取车辆当前车道编号
func (v *Vehicle) LaneIndex() entity.LaneIndex {
	return v.laneIndex
}

// SetLaneIndex 设置车辆当前车道编号
func (v *Vehicle) SetLaneIndex(l entity.LaneIndex) {
	v.laneIndex = l
}

// SetV 设置车辆速度（米/秒）
// 说明：用于不受控制器控制的背景车辆
func (v *Vehicle) SetV(speed float64) {
	v.v = speed
}

// MoveAlong 沿给定朝向匀速推进一个时间步
// 说明：背景车辆沿车道行驶时使用
func (v *Vehicle) MoveAlong(direction, dt float64) {
	v.direction = direction
	v.xyz.X += v.v * math.Cos(direction) * dt
	v.xyz.Y += v.v * math.Sin(direction) * dt
}

var _ entity.IVehicle = (*Vehicle)(nil)
