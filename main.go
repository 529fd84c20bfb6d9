package main

import (
	"encoding/base64"
	"flag"
	"os"

	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/tsinghua-fib-lab/autopilot-sim-oss/clock"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/control"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity/agent"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/utils/config"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/utils/input"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/utils/randengine"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/world"
)

// PID默认参数，配置中缺省时采用
var (
	defaultLateralPID      = config.PIDParams{KP: 1.95, KI: 0.05, KD: 0.2}
	defaultLongitudinalPID = config.PIDParams{KP: 1.0, KI: 0.05, KD: 0}
)

// 感知路径点缓冲长度上限
const waypointBufferLen = 30

var (
	// 模拟任务名，主要用于日志与输出标识
	job = flag.String("job", "job0", "the name of the whole simulation task")
	// 配置文件路径
	configPath = flag.String("config", "", "config file path")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")
	// 数据加载input的缓存地址
	// 缓存：将场景数据根据数据库db和col序列化到本地文件系统，并总是先试图从文件系统中加载
	cacheDir = flag.String("cache", "data/", "input cache dir path (empty means disable cache)")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")

	log = logrus.WithField("module", "autopilot")
)

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	// log: 运行时才修改
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}
	// 获取配置
	var c config.Config
	var file []byte
	var err error
	if *configPath != "" {
		file, err = os.ReadFile(*configPath)
		if err != nil {
			log.Panicf("config file load err: %v", err)
		}
	} else if *configData != "" {
		file, err = base64.StdEncoding.DecodeString(*configData)
		if err != nil {
			log.Panicf("config data load err: %v", err)
		}
	} else {
		log.Panic("config file or config data must be specified")
	}
	// 控制器配置项缺省即采用默认值，未识别的键不报错
	if err := yaml.Unmarshal(file, &c); err != nil {
		log.Panicf("config file load err: %v", err)
	}
	log.Infof("job %s: %+v", *job, c)

	rc := config.NewRuntimeConfig(c)
	ck := clock.New(rc.C.Step)

	sc := input.Init(c, *cacheDir)
	w, err := world.BuildFromScenario(sc)
	if err != nil {
		log.Panicf("build world err: %v", err)
	}
	ego := w.Ego()

	generator := randengine.New(rc.C.Seed)
	latPID, lonPID := defaultLateralPID, defaultLongitudinalPID
	if c.Agent.LateralPID != nil {
		latPID = *c.Agent.LateralPID
	}
	if c.Agent.LongitudinalPID != nil {
		lonPID = *c.Agent.LongitudinalPID
	}
	maxThrottle, maxBrake, maxSteering := 0.75, 0.3, 0.8
	if c.Agent.MaxThrottle != nil {
		maxThrottle = *c.Agent.MaxThrottle
	}
	if c.Agent.MaxBrake != nil {
		maxBrake = *c.Agent.MaxBrake
	}
	if c.Agent.MaxSteering != nil {
		maxSteering = *c.Agent.MaxSteering
	}
	pid := control.NewVehiclePIDController(
		ego, latPID, lonPID, ck.DT, maxThrottle, maxBrake, maxSteering)
	a := agent.New(ego, w, ck.DT, c.Agent, generator, pid)

	// 主循环
	currentLane := w.LaneIndexOf(ego)
	lastTargetLane := currentLane
	lastAction := agent.ActionLaneFollow
	fullBrake := entity.ControlInfo{Brake: a.MaxBrake(), Gear: 1}
	for !ck.IsDone() {
		w.UpdateLights(ck.DT)

		ctx := w.BuildLaneContext(ego, currentLane, a.SamplingResolution(), waypointBufferLen)
		command := fullBrake
		if err := a.SetPerception(ctx); err != nil {
			log.Errorf("step %d: perception err: %v", ck.InternalStep, err)
		} else {
			var newTargetLane entity.LaneIndex
			var newAction agent.Action
			command, newTargetLane, newAction, err = a.RunStep(
				currentLane, lastTargetLane, lastAction, true)
			// 机动决策必须被采纳：变道状态机已经记录了本tick的决策，
			// 丢弃返回值会使进行中的变道永远无法推进
			lastTargetLane = newTargetLane
			lastAction = newAction
			if err != nil {
				// 路径点缓冲不足，本tick退化为全力制动
				log.Errorf("step %d: run step err: %v", ck.InternalStep, err)
				command = fullBrake
			}
		}

		ego.ApplyControl(command, ck.DT)
		w.StepNPCs(ck.DT)
		newLane := w.LaneIndexOf(ego)
		if newLane != currentLane {
			log.Infof("[%s] ego moves from lane %d to lane %d", ck, currentLane, newLane)
			currentLane = newLane
			ego.SetLaneIndex(newLane)
		}
		ck.Step()
	}
	log.Infof("simulation finished at [%s] after %d agent steps", ck, a.Step())
}
