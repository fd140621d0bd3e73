package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"toksim/internal/geometry"
)

const (
	DefaultNr     = 25
	DefaultRmaj   = 6.2
	DefaultRmin   = 2.0
	DefaultB0     = 5.3
	DefaultKappa  = 1.72
	DefaultIp     = 15.0
	DefaultTFinal = 5.0
	DefaultTheta  = 1.0
)

// Convection discretization modes for the finite-volume assembly.
const (
	ConvectionExplicit     = "explicit"
	ConvectionImplicit     = "implicit"
	ConvectionSemiImplicit = "semi-implicit"
)

type Config struct {
	Geometry  GeometryConfig  `yaml:"geometry"`
	Equations EquationsConfig `yaml:"equations"`
	Profiles  ProfilesConfig  `yaml:"profiles"`
	Transport TransportConfig `yaml:"transport"`
	Sources   SourcesConfig   `yaml:"sources"`
	Solver    SolverConfig    `yaml:"solver"`
	TimeStep  TimeStepConfig  `yaml:"timestep"`
}

type GeometryConfig struct {
	Type  string  `yaml:"type"` // circular | equilibrium
	Nr    int     `yaml:"nr"`
	Rmaj  float64 `yaml:"rmaj"`
	Rmin  float64 `yaml:"rmin"`
	B0    float64 `yaml:"b0"`
	Kappa float64 `yaml:"kappa"`
	Ip    float64 `yaml:"ip"`
	Dir   string  `yaml:"dir"`
	File  string  `yaml:"file"`
}

// EquationsConfig enables or disables each transported quantity. A disabled
// equation carries its profile through unchanged.
type EquationsConfig struct {
	IonHeat bool `yaml:"ion_heat"`
	ElHeat  bool `yaml:"el_heat"`
	Density bool `yaml:"density"`
	Current bool `yaml:"current"`
}

// ProfilesConfig sets initial and boundary profile values.
type ProfilesConfig struct {
	TiCore  float64 `yaml:"ti_core"`  // keV
	TeCore  float64 `yaml:"te_core"`  // keV
	TiBound float64 `yaml:"ti_bound"` // keV
	TeBound float64 `yaml:"te_bound"` // keV
	Nbar    float64 `yaml:"nbar"`     // line-averaged density, 1e20 m^-3
	NPeak   float64 `yaml:"npeak"`    // density peaking factor
	NeBound float64 `yaml:"ne_bound"` // 1e20 m^-3
	NuJ     float64 `yaml:"nu_j"`     // initial current profile peaking exponent
}

type TransportConfig struct {
	Model string `yaml:"model"` // constant | critical-gradient

	ChiIon float64 `yaml:"chi_ion"` // m^2/s
	ChiEl  float64 `yaml:"chi_el"`  // m^2/s
	DEl    float64 `yaml:"d_el"`    // m^2/s
	VEl    float64 `yaml:"v_el"`    // m/s

	// critical-gradient model
	CritGrad  float64 `yaml:"crit_grad"` // R/L_T threshold
	Stiffness float64 `yaml:"stiffness"`
	ChiMin    float64 `yaml:"chi_min"`
	ChiMax    float64 `yaml:"chi_max"`
}

type SourcesConfig struct {
	PTot        float64 `yaml:"p_tot"` // auxiliary heating power [MW]
	HeatIonFrac float64 `yaml:"heat_ion_frac"`
	HeatLoc     float64 `yaml:"heat_loc"`   // deposition center, normalized radius
	HeatWidth   float64 `yaml:"heat_width"` // gaussian width, normalized radius

	STot          float64 `yaml:"s_tot"` // particle source [1e20 /s]
	ParticleLoc   float64 `yaml:"particle_loc"`
	ParticleWidth float64 `yaml:"particle_width"`

	JExtTot   float64 `yaml:"jext_tot"` // driven current [MA]
	JExtLoc   float64 `yaml:"jext_loc"`
	JExtWidth float64 `yaml:"jext_width"`

	QeiMult float64 `yaml:"qei_mult"` // ion-electron exchange multiplier
}

type SolverConfig struct {
	Type  string  `yaml:"type"` // linear | newton | optimizer
	Theta float64 `yaml:"theta"`

	PredictorCorrector bool `yaml:"predictor_corrector"`
	CorrectorSteps     int  `yaml:"corrector_steps"`

	ConvectionDirichletMode string `yaml:"convection_dirichlet_mode"`
	ConvectionNeumannMode   string `yaml:"convection_neumann_mode"`

	ResidualTol   float64 `yaml:"residual_tol"`
	StepTol       float64 `yaml:"step_tol"`
	MaxIterations int     `yaml:"max_iterations"`
	DeltaMax      float64 `yaml:"delta_max"` // relative Newton step clamp

	// reject | accept: what to do when the iteration budget runs out
	OnNonConvergence string `yaml:"on_non_convergence"`

	UsePereverzev bool    `yaml:"use_pereverzev"`
	ChiPereverzev float64 `yaml:"chi_pereverzev"` // m^2/s
	DPereverzev   float64 `yaml:"d_pereverzev"`   // m^2/s
}

type TimeStepConfig struct {
	Type    string    `yaml:"type"` // fixed | chi | array
	FixedDt float64   `yaml:"fixed_dt"`
	Safety  float64   `yaml:"safety"` // multiplier on the diffusive stability bound
	MaxDt   float64   `yaml:"max_dt"`
	MinDt   float64   `yaml:"min_dt"`
	TFinal  float64   `yaml:"t_final"`
	Times   []float64 `yaml:"times"` // prescribed step times (array calculator)
}

func Default() *Config {
	return &Config{
		Geometry: GeometryConfig{
			Type:  "circular",
			Nr:    DefaultNr,
			Rmaj:  DefaultRmaj,
			Rmin:  DefaultRmin,
			B0:    DefaultB0,
			Kappa: DefaultKappa,
			Ip:    DefaultIp,
			File:  "iter_like_equilibrium.dat",
		},
		Equations: EquationsConfig{
			IonHeat: true,
			ElHeat:  true,
			Density: false,
			Current: true,
		},
		Profiles: ProfilesConfig{
			TiCore:  15.0,
			TeCore:  15.0,
			TiBound: 1.0,
			TeBound: 1.0,
			Nbar:    0.85,
			NPeak:   1.5,
			NeBound: 0.5,
			NuJ:     2.0,
		},
		Transport: TransportConfig{
			Model:     "constant",
			ChiIon:    1.0,
			ChiEl:     1.0,
			DEl:       0.5,
			VEl:       -0.2,
			CritGrad:  5.0,
			Stiffness: 2.0,
			ChiMin:    0.05,
			ChiMax:    50.0,
		},
		Sources: SourcesConfig{
			PTot:          50.0,
			HeatIonFrac:   0.5,
			HeatLoc:       0.0,
			HeatWidth:     0.25,
			STot:          0.0,
			ParticleLoc:   0.85,
			ParticleWidth: 0.1,
			JExtTot:       0.0,
			JExtLoc:       0.4,
			JExtWidth:     0.15,
			QeiMult:       1.0,
		},
		Solver: SolverConfig{
			Type:                    "linear",
			Theta:                   DefaultTheta,
			PredictorCorrector:      true,
			CorrectorSteps:          1,
			ConvectionDirichletMode: ConvectionSemiImplicit,
			ConvectionNeumannMode:   ConvectionSemiImplicit,
			ResidualTol:             1e-7,
			StepTol:                 1e-8,
			MaxIterations:           30,
			DeltaMax:                0.5,
			OnNonConvergence:        "reject",
			UsePereverzev:           false,
			ChiPereverzev:           20.0,
			DPereverzev:             10.0,
		},
		TimeStep: TimeStepConfig{
			Type:    "chi",
			FixedDt: 1e-1,
			Safety:  0.9,
			MaxDt:   1e-1,
			MinDt:   1e-8,
			TFinal:  DefaultTFinal,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
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

// Validate catches configuration errors before a run starts.
func (c *Config) Validate() error {
	if c.Geometry.Nr < 4 {
		return fmt.Errorf("config: nr must be at least 4, got %d", c.Geometry.Nr)
	}
	if c.Geometry.Rmin <= 0 || c.Geometry.Rmaj <= c.Geometry.Rmin {
		return fmt.Errorf("config: need 0 < rmin < rmaj, got rmin=%g rmaj=%g",
			c.Geometry.Rmin, c.Geometry.Rmaj)
	}
	if c.Solver.Theta < 0 || c.Solver.Theta > 1 {
		return fmt.Errorf("config: theta must be in [0,1], got %g", c.Solver.Theta)
	}
	if c.TimeStep.TFinal <= 0 {
		return fmt.Errorf("config: t_final must be positive, got %g", c.TimeStep.TFinal)
	}
	if c.TimeStep.Type == "fixed" && c.TimeStep.FixedDt <= 0 {
		return fmt.Errorf("config: fixed_dt must be positive, got %g", c.TimeStep.FixedDt)
	}
	if c.TimeStep.Type == "array" && len(c.TimeStep.Times) < 2 {
		return fmt.Errorf("config: array timestep needs at least 2 times, got %d", len(c.TimeStep.Times))
	}
	switch c.Solver.ConvectionDirichletMode {
	case ConvectionExplicit, ConvectionImplicit, ConvectionSemiImplicit:
	default:
		return fmt.Errorf("config: unknown convection mode %q", c.Solver.ConvectionDirichletMode)
	}
	return nil
}

// GeometryParams maps the geometry section onto builder parameters.
func (c *Config) GeometryParams() geometry.Params {
	return geometry.Params{
		Nr:    c.Geometry.Nr,
		Rmaj:  c.Geometry.Rmaj,
		Rmin:  c.Geometry.Rmin,
		B0:    c.Geometry.B0,
		Kappa: c.Geometry.Kappa,
		Ip:    c.Geometry.Ip,
		Dir:   c.Geometry.Dir,
		File:  c.Geometry.File,
	}
}
