package storage

import (
	"encoding/json"
	"io"
	"os"

	"toksim/internal/config"
	"toksim/internal/sim"
)

// ExportData is the self-contained JSON form of one run: enough to re-plot
// without the original config file.
type ExportData struct {
	GeometryType string  `json:"geometry"`
	Nr           int     `json:"nr"`
	Transport    string  `json:"transport"`
	Solver       string  `json:"solver"`
	Theta        float64 `json:"theta"`
	TFinal       float64 `json:"t_final"`

	Times []float64   `json:"times"`
	Ti    [][]float64 `json:"ti"`
	Te    [][]float64 `json:"te"`
	Ne    [][]float64 `json:"ne"`
	Psi   [][]float64 `json:"psi"`
	QFace [][]float64 `json:"q"`

	Retries int                `json:"retries"`
	Metrics map[string]float64 `json:"metrics"`
}

func buildExport(cfg *config.Config, result *sim.Result) ExportData {
	data := ExportData{
		GeometryType: cfg.Geometry.Type,
		Nr:           cfg.Geometry.Nr,
		Transport:    cfg.Transport.Model,
		Solver:       cfg.Solver.Type,
		Theta:        cfg.Solver.Theta,
		TFinal:       cfg.TimeStep.TFinal,
		Times:        result.Times(),
		Retries:      result.Retries,
		Metrics:      result.Metrics,
	}
	for _, st := range result.States {
		data.Ti = append(data.Ti, st.TiCell)
		data.Te = append(data.Te, st.TeCell)
		data.Ne = append(data.Ne, st.NeCell)
		data.Psi = append(data.Psi, st.PsiCell)
		data.QFace = append(data.QFace, st.QFace)
	}
	return data
}

// ExportJSON writes the full run history as indented JSON.
func ExportJSON(path string, cfg *config.Config, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return encodeExport(file, cfg, result)
}

// ExportJSONTo streams the export to an arbitrary writer, used by the CLI
// for stdout output.
func ExportJSONTo(w io.Writer, cfg *config.Config, result *sim.Result) error {
	return encodeExport(w, cfg, result)
}

func encodeExport(w io.Writer, cfg *config.Config, result *sim.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(buildExport(cfg, result))
}

// ExportStoredJSON rebuilds the JSON export from a persisted run. The
// safety factor history is not stored in CSV form and is omitted.
func ExportStoredJSON(w io.Writer, meta *RunMetadata, h *History) error {
	times, _ := h.Column("time")
	data := ExportData{
		GeometryType: meta.GeometryType,
		Nr:           meta.Nr,
		Transport:    meta.Transport,
		Solver:       meta.Solver,
		Theta:        meta.Theta,
		TFinal:       meta.TFinal,
		Times:        times,
		Retries:      meta.Retries,
		Metrics:      meta.Metrics,
	}
	for row := range h.Rows {
		data.Ti = append(data.Ti, h.Profile("ti", row))
		data.Te = append(data.Te, h.Profile("te", row))
		data.Ne = append(data.Ne, h.Profile("ne", row))
		data.Psi = append(data.Psi, h.Profile("psi", row))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
