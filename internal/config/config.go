package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/avasko/laglab/internal/scenes"
)

const (
	DefaultTolerance = 1e-9
	DefaultMaxStep   = 0.25
	DefaultDt        = 1.0 / 60.0
	DefaultDuration  = 10.0
	DefaultFPS       = 60
)

type Config struct {
	Scene      string       `yaml:"scene"`
	Integrator string       `yaml:"integrator"`
	Tolerance  float64      `yaml:"tolerance"`
	MaxStep    float64      `yaml:"max_step"`
	Dt         float64      `yaml:"dt"`
	Duration   float64      `yaml:"duration"`
	FPS        int          `yaml:"fps"`
	Params     ParamsConfig `yaml:"params"`
}

type ParamsConfig struct {
	Mass      float64 `yaml:"mass"`
	Mass2     float64 `yaml:"mass2"`
	Length    float64 `yaml:"length"`
	Length2   float64 `yaml:"length2"`
	Gravity   float64 `yaml:"gravity"`
	Stiffness float64 `yaml:"stiffness"`
	Amplitude float64 `yaml:"amplitude"`
	Frequency float64 `yaml:"frequency"`
	Theta     float64 `yaml:"theta"`
	Theta2    float64 `yaml:"theta2"`
	Omega     float64 `yaml:"omega"`
	Omega2    float64 `yaml:"omega2"`
	SemiMajor float64 `yaml:"semi_major"`
	SemiMinor float64 `yaml:"semi_minor"`
	X         float64 `yaml:"x"`
	Y         float64 `yaml:"y"`
	VX        float64 `yaml:"vx"`
	VY        float64 `yaml:"vy"`
}

func DefaultConfig() *Config {
	return &Config{
		Scene:      "pendulum",
		Integrator: "rk45",
		Tolerance:  DefaultTolerance,
		MaxStep:    DefaultMaxStep,
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		FPS:        DefaultFPS,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SceneParams converts the file values into scene parameters. A nonzero
// theta or position in a file counts as explicitly pinned.
func (c *Config) SceneParams() scenes.Params {
	p := c.Params
	return scenes.Params{
		Mass: p.Mass, Mass2: p.Mass2,
		Length: p.Length, Length2: p.Length2,
		Gravity:   p.Gravity,
		Stiffness: p.Stiffness,
		Amplitude: p.Amplitude,
		Frequency: p.Frequency,
		Theta:     p.Theta, Theta2: p.Theta2,
		Omega: p.Omega, Omega2: p.Omega2,
		SemiMajor: p.SemiMajor, SemiMinor: p.SemiMinor,
		X: p.X, Y: p.Y, VX: p.VX, VY: p.VY,
		ThetaSet: p.Theta != 0 || p.Theta2 != 0,
		XYSet:    p.X != 0 || p.Y != 0,
		VelSet:   p.VX != 0 || p.VY != 0,
	}
}
