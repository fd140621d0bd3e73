package config

// Presets are named run configurations layered over Default().
var Presets = map[string]func(*Config){
	"ohmic": func(c *Config) {
		c.Sources.PTot = 0
		c.Equations.Density = false
		c.Transport.ChiIon = 0.5
		c.Transport.ChiEl = 0.5
		c.TimeStep.TFinal = 10.0
	},
	"heated": func(c *Config) {
		c.Sources.PTot = 50.0
		c.Sources.HeatWidth = 0.2
		c.TimeStep.TFinal = 5.0
	},
	"density": func(c *Config) {
		c.Equations.Density = true
		c.Sources.STot = 2.0
		c.Transport.VEl = -0.3
		c.TimeStep.TFinal = 5.0
	},
	"stiff": func(c *Config) {
		c.Transport.Model = "critical-gradient"
		c.Solver.Type = "newton"
		c.Solver.UsePereverzev = true
		c.TimeStep.Type = "fixed"
		c.TimeStep.FixedDt = 0.02
		c.TimeStep.TFinal = 2.0
	},
	"crank-nicolson": func(c *Config) {
		c.Solver.Theta = 0.5
		c.TimeStep.Type = "fixed"
		c.TimeStep.FixedDt = 0.05
	},
}

// GetPreset returns a fresh config with the named preset applied, or nil if
// the preset does not exist.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := Default()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
