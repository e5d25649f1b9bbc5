// Package simulator produces synthetic device heartbeats for exercising the
// monitoring API without real hardware.
package simulator

import (
	"math"
	"math/rand/v2"
	"time"

	"iotmon/internal/models"
)

const baseDNSLatency = 8.8

// Profile is the baseline a simulated device fluctuates around.
type Profile struct {
	DeviceSN     string
	Name         string
	Location     string
	BaseCPU      float64
	BaseRAM      float64
	BaseTemp     float64
	BaseDiskFree float64
}

// Presets are the devices run in multi-device mode.
var Presets = []Profile{
	{DeviceSN: "SRV001234567", Name: "Server Room Sensor", Location: "Data Center - Rack A1", BaseCPU: 25, BaseRAM: 45, BaseTemp: 42, BaseDiskFree: 75},
	{DeviceSN: "OFF987654321", Name: "Office Environment Monitor", Location: "Building B - Floor 3", BaseCPU: 15, BaseRAM: 30, BaseTemp: 38, BaseDiskFree: 75},
	{DeviceSN: "IOT555666777", Name: "IoT Gateway Device", Location: "Warehouse - Section C", BaseCPU: 40, BaseRAM: 60, BaseTemp: 55, BaseDiskFree: 75},
}

// Generator is not safe for concurrent use; run one per device.
type Generator struct {
	profile   Profile
	rng       *rand.Rand
	bootTime  time.Time
	cpuTrend  float64
	tempTrend float64
	diskFree  float64
}

func NewGenerator(p Profile, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{
		profile:  p,
		rng:      rng,
		bootTime: time.Now().UTC(),
		diskFree: p.BaseDiskFree,
	}
}

func (g *Generator) BootTime() time.Time { return g.bootTime }

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// Next returns the following sample. CPU and temperature follow a bounded
// random walk, and free disk space only ever shrinks.
func (g *Generator) Next() models.Heartbeat {
	g.cpuTrend = clamp(g.cpuTrend+g.uniform(-2, 2), -20, 20)
	cpu := clamp(g.profile.BaseCPU+g.cpuTrend+g.uniform(-10, 15), 0, 100)
	if g.rng.Float64() < 0.05 {
		cpu = math.Min(100, cpu+g.uniform(20, 40))
	}

	ram := clamp(g.profile.BaseRAM+g.uniform(-5, 10), 0, 100)

	g.tempTrend = clamp(g.tempTrend+g.uniform(-1, 1), -10, 10)
	temp := clamp(g.profile.BaseTemp+g.tempTrend+g.uniform(-3, 3), 20, 90)

	disk := g.diskFree - g.uniform(0, 0.1)
	g.diskFree = math.Max(10, disk)
	disk = clamp(disk, 0, 100)

	var (
		latency float64
		issue   bool
	)
	if g.rng.Float64() < 0.1 {
		latency = baseDNSLatency + g.uniform(50, 200)
		issue = true
	} else {
		latency = baseDNSLatency + g.uniform(-2, 10)
	}
	latency = math.Max(1, latency)

	connectivity := 1
	if issue || g.rng.Float64() < 0.02 {
		connectivity = 0
	}

	return models.Heartbeat{
		DeviceSN:     g.profile.DeviceSN,
		CPUUsage:     round2(cpu),
		RAMUsage:     round2(ram),
		DiskFree:     round2(disk),
		Temperature:  round2(temp),
		DNSLatency:   round2(latency),
		Connectivity: connectivity,
		BootTime:     models.At(g.bootTime),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
