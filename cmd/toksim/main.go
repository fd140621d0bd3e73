package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"toksim/internal/config"
	"toksim/internal/export"
	"toksim/internal/metrics"
	"toksim/internal/sim"
	"toksim/internal/storage"
	"toksim/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string

	geometryType string
	nr           int
	transportM   string
	solver       string
	theta        float64
	pereverzev   bool

	dtType  string
	fixedDt float64
	tFinal  float64

	outPath string
	plotRow int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "toksim",
		Short: "1-D tokamak plasma transport simulator",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".toksim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and store the result",
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot profiles of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotRow, "row", -1, "history row to plot (-1 for final)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export the stored profile history as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVar(&outPath, "out", "", "output path (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVar(&outPath, "out", "", "output path (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render final profiles of a stored run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVar(&outPath, "out", "profiles.svg", "output path")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run with live terminal visualization",
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list named preset configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.ListPresets()
			sort.Strings(names)
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, liveCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "yaml config file")
	cmd.Flags().StringVar(&preset, "preset", "", "named preset configuration")
	cmd.Flags().StringVar(&geometryType, "geometry", "circular", "geometry type (circular|equilibrium)")
	cmd.Flags().IntVar(&nr, "nr", config.DefaultNr, "number of radial cells")
	cmd.Flags().StringVar(&transportM, "transport", "constant", "transport model")
	cmd.Flags().StringVar(&solver, "solver", "linear", "solver (linear|newton|optimizer)")
	cmd.Flags().Float64Var(&theta, "theta", config.DefaultTheta, "theta-method weight")
	cmd.Flags().BoolVar(&pereverzev, "pereverzev", false, "enable Pereverzev-Corrigan stabilization")
	cmd.Flags().StringVar(&dtType, "dt-type", "chi", "time-step calculator (fixed|chi|array)")
	cmd.Flags().Float64Var(&fixedDt, "dt", 0.1, "fixed time step")
	cmd.Flags().Float64Var(&tFinal, "time", config.DefaultTFinal, "final time")
}

// buildConfig layers preset, config file and explicitly changed flags, in
// that order of increasing precedence.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("geometry") {
		cfg.Geometry.Type = geometryType
	}
	if cmd.Flags().Changed("nr") {
		cfg.Geometry.Nr = nr
	}
	if cmd.Flags().Changed("transport") {
		cfg.Transport.Model = transportM
	}
	if cmd.Flags().Changed("solver") {
		cfg.Solver.Type = solver
	}
	if cmd.Flags().Changed("theta") {
		cfg.Solver.Theta = theta
	}
	if cmd.Flags().Changed("pereverzev") {
		cfg.Solver.UsePereverzev = pereverzev
	}
	if cmd.Flags().Changed("dt-type") {
		cfg.TimeStep.Type = dtType
	}
	if cmd.Flags().Changed("dt") {
		cfg.TimeStep.FixedDt = fixedDt
	}
	if cmd.Flags().Changed("time") {
		cfg.TimeStep.TFinal = tFinal
	}
	return cfg, cfg.Validate()
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	s, err := sim.New(cfg)
	if err != nil {
		return err
	}
	s.AddMetric(metrics.NewStoredEnergy(s.Geometry()))
	s.AddMetric(metrics.NewMeanDensity(s.Geometry()))
	s.AddMetric(metrics.NewRetries())

	result, err := s.Run(context.Background())
	if err != nil {
		return err
	}

	runID, err := st.Save(cfg, result)
	if err != nil {
		return err
	}

	final := result.FinalState()
	fmt.Printf("run %s finished: %d steps to t=%.3fs (%d retries)\n",
		runID, len(result.Steps), final.Time, result.Retries)
	for name, value := range result.Metrics {
		fmt.Printf("  %s: %.4g\n", name, value)
	}
	fmt.Println()
	fmt.Println(viz.RenderState(final))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no stored runs")
		return nil
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tGEOMETRY\tNR\tTRANSPORT\tSOLVER\tSTEPS\tRETRIES")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%d\t%d\n",
			run.ID, run.GeometryType, run.Nr, run.Transport, run.Solver, run.Steps, run.Retries)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	h, err := st.LoadHistory(args[0])
	if err != nil {
		return err
	}
	if len(h.Rows) == 0 {
		return fmt.Errorf("run %s has no history", args[0])
	}
	row := plotRow
	if row < 0 || row >= len(h.Rows) {
		row = len(h.Rows) - 1
	}

	named := map[string][]float64{
		"Ti [keV]":       h.Profile("ti", row),
		"Te [keV]":       h.Profile("te", row),
		"ne [1e20 m^-3]": h.Profile("ne", row),
		"psi [Wb]":       h.Profile("psi", row),
	}
	order := []string{"Ti [keV]", "Te [keV]", "ne [1e20 m^-3]", "psi [Wb]"}

	times, _ := h.Column("time")
	fmt.Printf("run %s, t=%.3fs (row %d of %d)\n\n", args[0], times[row], row, len(h.Rows))
	fmt.Println(viz.RenderProfiles(named, order))
	return nil
}

func outWriter() (io.WriteCloser, error) {
	if outPath == "" {
		return os.Stdout, nil
	}
	return os.Create(outPath)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	src, err := os.Open(filepath.Join(dataDir, args[0], "history.csv"))
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := outWriter()
	if err != nil {
		return err
	}
	if dst != os.Stdout {
		defer dst.Close()
	}
	_, err = io.Copy(dst, src)
	return err
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	h, err := st.LoadHistory(args[0])
	if err != nil {
		return err
	}

	dst, err := outWriter()
	if err != nil {
		return err
	}
	if dst != os.Stdout {
		defer dst.Close()
	}
	return storage.ExportStoredJSON(dst, meta, h)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	h, err := st.LoadHistory(args[0])
	if err != nil {
		return err
	}
	if len(h.Rows) == 0 {
		return fmt.Errorf("run %s has no history", args[0])
	}
	row := len(h.Rows) - 1

	series := []export.Series{
		{Name: "Ti [keV]", Values: h.Profile("ti", row), Color: "#ff6666"},
		{Name: "Te [keV]", Values: h.Profile("te", row), Color: "#66aaff"},
		{Name: "ne [1e20 m^-3]", Values: h.Profile("ne", row), Color: "#66ff99"},
		{Name: "psi [Wb]", Values: h.Profile("psi", row), Color: "#ffcc66"},
	}
	if err := export.WriteProfilesSVG(outPath, series, 800, 500); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", outPath)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	model, err := viz.NewLive(cfg)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
