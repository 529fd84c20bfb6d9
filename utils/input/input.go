// Package input 负责场景数据的加载
// 支持从yaml文件或MongoDB读取，MongoDB数据可缓存为本地yaml
package input

import (
	"context"
	"os"
	"path/filepath"
	"time"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v2"

	"git.fiblab.net/general/common/v2/geometry"

	"github.com/tsinghua-fib-lab/autopilot-sim-oss/entity"
	"github.com/tsinghua-fib-lab/autopilot-sim-oss/utils/config"
)

const mongoConnectTimeout = 30 * time.Second

// 信号灯相位状态名到协议枚举的映射
var lightStateNames = map[string]mapv2.LightState{
	"RED":    mapv2.LightState_LIGHT_STATE_RED,
	"GREEN":  mapv2.LightState_LIGHT_STATE_GREEN,
	"YELLOW": mapv2.LightState_LIGHT_STATE_YELLOW,
}

// PointSpec 场景文件中的三维坐标
type PointSpec struct {
	X float64 `yaml:"x" bson:"x"`
	Y float64 `yaml:"y" bson:"y"`
	Z float64 `yaml:"z" bson:"z"`
}

// ToPoint 转换为几何点
func (p PointSpec) ToPoint() geometry.Point {
	return geometry.Point{X: p.X, Y: p.Y, Z: p.Z}
}

// RoadSpec 道路描述，中心线为道路几何中线，三条车道由其左右偏移得到
type RoadSpec struct {
	ID         int32       `yaml:"id" bson:"id"`
	CenterLine []PointSpec `yaml:"center_line" bson:"center_line"`
	LaneWidth  float64     `yaml:"lane_width" bson:"lane_width"`
	MaxSpeed   float64     `yaml:"max_speed" bson:"max_speed"`
}

// PhaseSpec 信号灯相位描述
type PhaseSpec struct {
	State    string  `yaml:"state" bson:"state"`
	Duration float64 `yaml:"duration" bson:"duration"`
}

// LightState 解析相位状态名
func (p PhaseSpec) LightState() mapv2.LightState {
	state, ok := lightStateNames[p.State]
	if !ok {
		log.Panicf("input: unknown light state %s", p.State)
	}
	return state
}

// LightSpec 信号灯描述，触发位置为道路s坐标处的车道中心
type LightSpec struct {
	ID         int32       `yaml:"id" bson:"id"`
	RoadID     int32       `yaml:"road_id" bson:"road_id"`
	S          float64     `yaml:"s" bson:"s"`
	Phases     []PhaseSpec `yaml:"phases" bson:"phases"`
	StartPhase int         `yaml:"start_phase" bson:"start_phase"`
}

// VehicleSpec 车辆描述，IsEgo标记受控车辆
type VehicleSpec struct {
	ID     int32            `yaml:"id" bson:"id"`
	Lane   entity.LaneIndex `yaml:"lane" bson:"lane"`
	S      float64          `yaml:"s" bson:"s"`
	V      float64          `yaml:"v" bson:"v"`
	Length float64          `yaml:"length" bson:"length"`
	IsEgo  bool             `yaml:"is_ego" bson:"is_ego"`
}

// Scenario 完整场景数据
type Scenario struct {
	Roads    []RoadSpec    `yaml:"roads" bson:"roads"`
	Lights   []LightSpec   `yaml:"lights" bson:"lights"`
	Vehicles []VehicleSpec `yaml:"vehicles" bson:"vehicles"`
}

// Init 加载场景数据
// 参数：cfg-输入配置，cacheDir-缓存目录（为空则禁用缓存）
// 算法说明：
// 1. 指定file时直接读取本地yaml
// 2. 启用缓存时总是先尝试从缓存加载；only_cache时缓存缺失直接报错退出
// 3. 否则从MongoDB拉取，成功后写入缓存yaml
func Init(cfg config.Config, cacheDir string) *Scenario {
	in := cfg.Input.Scenario
	if in.File != "" {
		return loadYAML(in.File)
	}
	if in.OnlyCache && cacheDir == "" {
		log.Panicf("input: only_cache is set but cache dir is disabled")
	}
	if cacheDir != "" {
		cachePath := filepath.Join(cacheDir, in.GetCachePath())
		if _, err := os.Stat(cachePath); err == nil {
			return loadYAML(cachePath)
		} else if in.OnlyCache {
			log.Panicf("input: cache %s missing: %v", cachePath, err)
		}
	}
	sc := loadMongo(cfg.Input.URI, in.DB, in.Col)
	if cacheDir != "" {
		writeCache(filepath.Join(cacheDir, in.GetCachePath()), sc)
	}
	return sc
}

func loadYAML(path string) *Scenario {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Panicf("input: read scenario %s failed: %v", path, err)
	}
	sc := &Scenario{}
	if err := yaml.UnmarshalStrict(data, sc); err != nil {
		log.Panicf("input: parse scenario %s failed: %v", path, err)
	}
	sc.validate()
	log.Infof("load scenario from %s: %d roads, %d lights, %d vehicles",
		path, len(sc.Roads), len(sc.Lights), len(sc.Vehicles))
	return sc
}

func loadMongo(uri, db, col string) *Scenario {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		log.Panicf("input: connect mongodb failed: %v", err)
	}
	defer client.Disconnect(context.Background())
	sc := &Scenario{}
	if err := client.Database(db).Collection(col).
		FindOne(ctx, bson.D{}).Decode(sc); err != nil {
		log.Panicf("input: fetch scenario %s.%s failed: %v", db, col, err)
	}
	sc.validate()
	log.Infof("load scenario from mongodb %s.%s: %d roads, %d lights, %d vehicles",
		db, col, len(sc.Roads), len(sc.Lights), len(sc.Vehicles))
	return sc
}

func writeCache(path string, sc *Scenario) {
	data, err := yaml.Marshal(sc)
	if err != nil {
		log.Panicf("input: marshal scenario cache failed: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Panicf("input: create cache dir failed: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Panicf("input: write scenario cache %s failed: %v", path, err)
	}
	log.Infof("write scenario cache to %s", path)
}

// validate 基本合法性检查，发现问题直接panic
func (sc *Scenario) validate() {
	if len(sc.Roads) == 0 {
		log.Panicf("input: scenario has no road")
	}
	for _, r := range sc.Roads {
		if len(r.CenterLine) < 2 {
			log.Panicf("input: road %d center line too short", r.ID)
		}
		if r.LaneWidth <= 0 {
			log.Panicf("input: road %d has non-positive lane width", r.ID)
		}
	}
	for _, l := range sc.Lights {
		if len(l.Phases) == 0 {
			log.Panicf("input: light %d has no phase", l.ID)
		}
		for _, p := range l.Phases {
			p.LightState() // 状态名检查
		}
	}
	egoCount := 0
	for _, v := range sc.Vehicles {
		if !v.Lane.Valid() {
			log.Panicf("input: vehicle %d has invalid lane %d", v.ID, v.Lane)
		}
		if v.IsEgo {
			egoCount++
		}
	}
	if egoCount != 1 {
		log.Panicf("input: scenario must have exactly one ego vehicle, got %d", egoCount)
	}
}
