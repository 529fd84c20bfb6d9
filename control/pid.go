// Package control 提供车辆低层控制原语
// 包含纵向/横向PID调节器与组合控制器，把目标速度与目标路径点
// 转换为油门/制动/转向指令
package control

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"

	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/utils/config"
)

const (
	errorHistorySize = 10  // 误差历史窗口长度
	maxSteerDelta    = 0.1 // 单tick转向变化上限，模拟转向机构速率限制
)

// pidRegulator 标量PID调节器
// 误差历史为定长滑动窗口，微分项取最近两次误差差分，积分项为窗口内误差求和
type pidRegulator struct {
	kp, ki, kd float64
	dt         float64
	errors     []float64
}

func newPIDRegulator(args config.PIDParams, dt float64) *pidRegulator {
	return &pidRegulator{
		kp:     args.KP,
		ki:     args.KI,
		kd:     args.KD,
		dt:     dt,
		errors: make([]float64, 0, errorHistorySize),
	}
}

// run 输入当前误差，输出未钳制的控制量
func (p *pidRegulator) run(e float64) float64 {
	p.errors = append(p.errors, e)
	if len(p.errors) > errorHistorySize {
		p.errors = p.errors[1:]
	}
	var de, ie float64
	if len(p.errors) >= 2 {
		de = (p.errors[len(p.errors)-1] - p.errors[len(p.errors)-2]) / p.dt
		for _, v := range p.errors {
			ie += v
		}
		ie *= p.dt
	}
	return p.kp*e + p.kd*de + p.ki*ie
}

// VehiclePIDController 纵向+横向组合PID控制器
// 功能：RunStep把(目标速度, 目标路径点)映射为一条控制指令，
// 纵向PID作用于km/h速度误差，横向PID作用于航向角误差（弧度）
type VehiclePIDController struct {
	vehicle entity.IVehicle

	longitudinal *pidRegulator
	lateral      *pidRegulator

	maxThrot  float64
	maxBrake  float64
	maxSteer  float64
	prevSteer float64
}

// NewVehiclePIDController 创建组合PID控制器
// 参数：vehicle-受控车辆，latArgs/lonArgs-横向/纵向PID参数，dt-控制周期（秒），
// maxThrottle/maxBrake/maxSteering-输出钳制上限
func NewVehiclePIDController(
	vehicle entity.IVehicle,
	latArgs, lonArgs config.PIDParams, dt float64,
	maxThrottle, maxBrake, maxSteering float64,
) *VehiclePIDController {
	return &VehiclePIDController{
		vehicle:      vehicle,
		longitudinal: newPIDRegulator(lonArgs, dt),
		lateral:      newPIDRegulator(latArgs, dt),
		maxThrot:     maxThrottle,
		maxBrake:     maxBrake,
		maxSteer:     maxSteering,
	}
}

// RunStep 执行一步控制
// 参数：targetSpeedKmh-目标速度（km/h），target-目标路径点
// 返回：控制指令，挡位恒为1，不拉手刹
// 算法说明：
// 1. 纵向误差 = 目标速度 - 当前速度*3.6，PID输出为正时作为油门、为负时取反作为制动
// 2. 横向误差为车头朝向到目标点连线的带符号夹角，叉积定号（目标在左为负）
// 3. 转向先限幅到上一tick输出±0.1，再钳制到±maxSteer
func (c *VehiclePIDController) RunStep(targetSpeedKmh float64, target entity.Waypoint) entity.ControlInfo {
	control := entity.ControlInfo{Gear: 1}

	acceleration := c.longitudinal.run(targetSpeedKmh - c.vehicle.V()*3.6)
	if acceleration >= 0 {
		control.Throttle = math.Min(acceleration, c.maxThrot)
	} else {
		control.Brake = math.Min(-acceleration, c.maxBrake)
	}

	steering := c.lateral.run(c.headingError(target))
	steering = lo.Clamp(steering, c.prevSteer-maxSteerDelta, c.prevSteer+maxSteerDelta)
	steering = lo.Clamp(steering, -c.maxSteer, c.maxSteer)
	control.Steer = steering
	c.prevSteer = steering

	return control
}

// headingError 计算车头朝向与目标点方向的带符号夹角（弧度）
func (c *VehiclePIDController) headingError(target entity.Waypoint) float64 {
	direction := c.vehicle.Direction()
	forward := geometry.Point{X: math.Cos(direction), Y: math.Sin(direction)}
	pos := c.vehicle.XYZ()
	toTarget := geometry.Point{X: target.XYZ.X - pos.X, Y: target.XYZ.Y - pos.Y}
	norm := math.Hypot(toTarget.X, toTarget.Y)
	if norm < 1e-6 {
		return 0
	}
	cosAngle := lo.Clamp((forward.X*toTarget.X+forward.Y*toTarget.Y)/norm, -1, 1)
	angle := math.Acos(cosAngle)
	// 转向约定正值向右，目标在左侧（叉积z分量为正）时误差取负
	if forward.X*toTarget.Y-forward.Y*toTarget.X > 0 {
		angle = -angle
	}
	return angle
}
