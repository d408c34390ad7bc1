package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/avasko/laglab/internal/config"
	"github.com/avasko/laglab/internal/integrators"
	"github.com/avasko/laglab/internal/metrics"
	"github.com/avasko/laglab/internal/scenes"
	"github.com/avasko/laglab/internal/sim"
	"github.com/avasko/laglab/internal/storage"
	"github.com/avasko/laglab/internal/viz"
)

var (
	dataDir    string
	configFile string
	integrator string
	tolerance  float64
	maxStep    float64
	dt         float64
	duration   float64
	frameRate  int
	noSave     bool

	mass      float64
	mass2     float64
	length    float64
	length2   float64
	gravity   float64
	stiffness float64
	amplitude float64
	frequency float64
	theta     float64
	theta2    float64
	omega     float64
	omega2    float64
	semiMajor float64
	semiMinor float64
	posX      float64
	posY      float64
	velX      float64
	velY      float64

	plotIndex int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "laglab",
		Short: "Lagrangian mechanics lab: derive and integrate equations of motion from an energy function",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".laglab", "data directory")

	scenesCmd := &cobra.Command{
		Use:   "scenes",
		Short: "list available scenes",
		RunE:  listScenes,
	}

	runCmd := &cobra.Command{
		Use:   "run [scene]",
		Short: "run a scene headless and report metrics",
		Args:  cobra.ExactArgs(1),
		RunE:  runScene,
	}
	addSceneFlags(runCmd)
	runCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "frame interval")
	runCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	runCmd.Flags().StringVar(&integrator, "integrator", "rk45", "integrator (rk45|rk4)")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "skip recording the run")

	liveCmd := &cobra.Command{
		Use:   "live [scene]",
		Short: "run a scene with live visualization",
		Args:  cobra.ExactArgs(1),
		RunE:  liveScene,
	}
	addSceneFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", config.DefaultFPS, "frame rate")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot one state slot of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotIndex, "index", 0, "flat state index to plot")

	benchCmd := &cobra.Command{
		Use:   "bench [scene]",
		Short: "benchmark the state-derivative and stepper for a scene",
		Args:  cobra.ExactArgs(1),
		RunE:  benchScene,
	}
	addSceneFlags(benchCmd)

	rootCmd.AddCommand(scenesCmd, runCmd, liveCmd, listCmd, plotCmd, benchCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addSceneFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "scene config file (yaml)")
	cmd.Flags().Float64Var(&tolerance, "tol", config.DefaultTolerance, "integrator tolerance")
	cmd.Flags().Float64Var(&maxStep, "max-step", config.DefaultMaxStep, "max physical time per frame")
	cmd.Flags().Float64Var(&mass, "mass", 0, "mass")
	cmd.Flags().Float64Var(&mass2, "mass2", 0, "second mass")
	cmd.Flags().Float64Var(&length, "length", 0, "rod length")
	cmd.Flags().Float64Var(&length2, "length2", 0, "second rod length")
	cmd.Flags().Float64Var(&gravity, "gravity", 0, "gravitational acceleration")
	cmd.Flags().Float64Var(&stiffness, "stiffness", 0, "spring stiffness")
	cmd.Flags().Float64Var(&amplitude, "amplitude", 0, "drive amplitude")
	cmd.Flags().Float64Var(&frequency, "frequency", 0, "drive angular frequency")
	cmd.Flags().Float64Var(&theta, "theta", 0, "initial angle")
	cmd.Flags().Float64Var(&theta2, "theta2", 0, "second initial angle")
	cmd.Flags().Float64Var(&omega, "omega", 0, "initial angular velocity")
	cmd.Flags().Float64Var(&omega2, "omega2", 0, "second initial angular velocity")
	cmd.Flags().Float64Var(&semiMajor, "semi-major", 0, "ellipse semi-major axis")
	cmd.Flags().Float64Var(&semiMinor, "semi-minor", 0, "ellipse semi-minor axis")
	cmd.Flags().Float64Var(&posX, "x", 0, "initial x")
	cmd.Flags().Float64Var(&posY, "y", 0, "initial y")
	cmd.Flags().Float64Var(&velX, "vx", 0, "initial x velocity")
	cmd.Flags().Float64Var(&velY, "vy", 0, "initial y velocity")
}

// sceneFromArgs merges config file and flags into one built scene.
func sceneFromArgs(cmd *cobra.Command, name string) (scenes.Scene, *sim.System, error) {
	params := scenes.Params{}
	opts := sim.Options{Tolerance: tolerance, MaxStep: maxStep}

	if configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return scenes.Scene{}, nil, err
		}
		params = cfg.SceneParams()
		if cfg.Tolerance > 0 && !cmd.Flags().Changed("tol") {
			opts.Tolerance = cfg.Tolerance
		}
		if cfg.MaxStep != 0 && !cmd.Flags().Changed("max-step") {
			opts.MaxStep = cfg.MaxStep
		}
		if name == "" {
			name = cfg.Scene
		}
	}

	flagVals := map[string]*float64{
		"mass": &mass, "mass2": &mass2,
		"length": &length, "length2": &length2,
		"gravity": &gravity, "stiffness": &stiffness,
		"amplitude": &amplitude, "frequency": &frequency,
		"theta": &theta, "theta2": &theta2,
		"omega": &omega, "omega2": &omega2,
		"semi-major": &semiMajor, "semi-minor": &semiMinor,
		"x": &posX, "y": &posY, "vx": &velX, "vy": &velY,
	}
	paramFields := map[string]*float64{
		"mass": &params.Mass, "mass2": &params.Mass2,
		"length": &params.Length, "length2": &params.Length2,
		"gravity": &params.Gravity, "stiffness": &params.Stiffness,
		"amplitude": &params.Amplitude, "frequency": &params.Frequency,
		"theta": &params.Theta, "theta2": &params.Theta2,
		"omega": &params.Omega, "omega2": &params.Omega2,
		"semi-major": &params.SemiMajor, "semi-minor": &params.SemiMinor,
		"x": &params.X, "y": &params.Y, "vx": &params.VX, "vy": &params.VY,
	}
	for flag, src := range flagVals {
		if cmd.Flags().Changed(flag) {
			*paramFields[flag] = *src
		}
	}
	if cmd.Flags().Changed("theta") || cmd.Flags().Changed("theta2") {
		params.ThetaSet = true
	}
	if cmd.Flags().Changed("x") || cmd.Flags().Changed("y") {
		params.XYSet = true
	}
	if cmd.Flags().Changed("vx") || cmd.Flags().Changed("vy") {
		params.VelSet = true
	}

	scene, err := scenes.Lookup(name, params)
	if err != nil {
		return scenes.Scene{}, nil, err
	}
	sys, err := scene.Build(opts)
	if err != nil {
		return scenes.Scene{}, nil, fmt.Errorf("build %s: %w", name, err)
	}
	return scene, sys, nil
}

func listScenes(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	for _, name := range scenes.Names() {
		sc, err := scenes.Lookup(name, scenes.Params{})
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\n", sc.Name, sc.Description)
	}
	return w.Flush()
}

func runScene(cmd *cobra.Command, args []string) error {
	scene, sys, err := sceneFromArgs(cmd, args[0])
	if err != nil {
		return err
	}

	drift := metrics.NewEnergyDrift(sys.EnergyAt)
	excursion := metrics.NewExcursion(0)

	frame := sys.Setup(0)
	frames := int(duration / dt)
	times := make([]float64, 0, frames+1)
	states := make([][]float64, 0, frames+1)
	series := make([]float64, 0, frames+1)

	record := func(f sim.FrameState) {
		drift.Observe(f.Time, f.Flat)
		excursion.Observe(f.Time, f.Flat)
		times = append(times, f.Time)
		states = append(states, append([]float64(nil), f.Flat...))
		series = append(series, f.Flat[0])
	}
	record(frame)

	var fixed *integrators.RK4
	if integrator == "rk4" {
		fixed = integrators.NewRK4()
	}

	start := time.Now()
	for i := 1; i <= frames; i++ {
		target := dt * float64(i)
		if fixed != nil {
			flat := append([]float64(nil), frame.Flat...)
			if err := fixed.Step(sys.Derivative(), flat, frame.Time, target-frame.Time); err != nil {
				return err
			}
			frame = sim.FrameState{Flat: flat, Time: target, Tick: frame.Tick + 1}
		} else {
			next, err := sys.Update(frame, target)
			if err != nil {
				return err
			}
			frame = next
		}
		record(frame)
	}
	elapsed := time.Since(start)

	fmt.Println(asciigraph.Plot(series, asciigraph.Height(10),
		asciigraph.Caption(fmt.Sprintf("%s: state[0] over %.1fs", scene.Name, duration))))
	fmt.Printf("\nframes: %d  wall: %s  energy drift: %.3e  excursion: %.4f\n",
		frames, elapsed.Round(time.Millisecond), drift.Value(), excursion.Value())
	if n := drift.Skipped(); n > 0 {
		fmt.Printf("warning: energy evaluation failed on %d of %d samples\n", n, len(times))
	}

	if noSave {
		return nil
	}
	store := storage.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}
	id, err := store.Save(storage.RunMetadata{
		Scene:     scene.Name,
		Tolerance: tolerance,
		Dt:        dt,
		Duration:  duration,
		Metrics: map[string]float64{
			drift.Name():     drift.Value(),
			excursion.Name(): excursion.Value(),
		},
	}, times, states)
	if err != nil {
		return err
	}
	fmt.Printf("saved run %s\n", id)
	return nil
}

func liveScene(cmd *cobra.Command, args []string) error {
	scene, sys, err := sceneFromArgs(cmd, args[0])
	if err != nil {
		return err
	}
	return viz.Run(scene, sys, frameRate)
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tFRAMES\tDRIFT\tWHEN")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.3e\t%s\n",
			r.ID, r.Scene, r.Frames, r.Metrics["energy_drift"], r.Timestamp.Format(time.RFC3339))
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, _, states, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}
	series := make([]float64, len(states))
	for i, row := range states {
		if plotIndex >= len(row) {
			return fmt.Errorf("index %d out of range for %d state slots", plotIndex, len(row))
		}
		series[i] = row[plotIndex]
	}
	fmt.Println(asciigraph.Plot(series, asciigraph.Height(12),
		asciigraph.Caption(fmt.Sprintf("%s: state[%d]", meta.Scene, plotIndex))))
	return nil
}

func benchScene(cmd *cobra.Command, args []string) error {
	_, sys, err := sceneFromArgs(cmd, args[0])
	if err != nil {
		return err
	}

	const updates = 600
	frame := sys.Setup(0)
	start := time.Now()
	for i := 1; i <= updates; i++ {
		next, err := sys.Update(frame, float64(i)/60)
		if err != nil {
			return err
		}
		frame = next
	}
	elapsed := time.Since(start)
	fmt.Printf("%d updates in %s (%.0f updates/s)\n",
		updates, elapsed.Round(time.Microsecond), float64(updates)/elapsed.Seconds())
	return nil
}
