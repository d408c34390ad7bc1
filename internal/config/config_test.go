package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scene = "double"
	cfg.Tolerance = 1e-8
	cfg.Params.Theta = 1.2
	cfg.Params.Mass2 = 3

	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Scene != "double" || loaded.Tolerance != 1e-8 {
		t.Errorf("loaded %+v", loaded)
	}
	if loaded.Params.Theta != 1.2 || loaded.Params.Mass2 != 3 {
		t.Errorf("params %+v", loaded.Params)
	}
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("scene: ellipse\n"), 0644); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Scene != "ellipse" {
		t.Errorf("scene = %q", loaded.Scene)
	}
	if loaded.FPS != DefaultFPS {
		t.Errorf("fps default lost: %d", loaded.FPS)
	}
}

func TestSceneParamsPinning(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Params.Theta = 0.5

	p := cfg.SceneParams()
	if !p.ThetaSet {
		t.Error("nonzero theta in a file should pin the initial angle")
	}
	if p.XYSet {
		t.Error("untouched positions should not be pinned")
	}
	if p.VelSet {
		t.Error("untouched velocities should not be pinned")
	}

	cfg.Params.VX = -1
	if !cfg.SceneParams().VelSet {
		t.Error("nonzero vx in a file should pin the initial velocity")
	}
}
