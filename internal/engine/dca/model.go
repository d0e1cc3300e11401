package dca

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mathext"
)

// ModelType identifies one of the supported decline-curve model families.
type ModelType string

const (
	Exponential        ModelType = "exponential"
	Hyperbolic         ModelType = "hyperbolic"
	Harmonic           ModelType = "harmonic"
	ModifiedHyperbolic ModelType = "modified_hyperbolic"
	StretchedExp       ModelType = "sedm"
	Duong              ModelType = "duong"
)

// daysPerMonth converts a rate integrated over months into a volume.
const daysPerMonth = 30.4375

// Model is the capability set shared by every decline-curve variant.
// Rate and Cumulative take time in months from the start of the analysis
// period and a parameter vector in the order given by ParamNames.
// Cumulative is the analytic integral of Rate in rate-months; callers
// multiply by daysPerMonth to obtain volumes.
type Model interface {
	Type() ModelType
	ParamNames() []string
	Rate(t float64, p []float64) float64
	Cumulative(t float64, p []float64) float64
	// Bounds returns per-parameter lower and upper limits enforced during
	// fitting and Monte Carlo sampling.
	Bounds() (lower, upper []float64)
	// InitialGuess derives starting parameters from the observed series.
	InitialGuess(t, q []float64) []float64
	// MinPoints is the minimum number of positive-rate observations a fit
	// of this model requires.
	MinPoints() int
	// TimeOffset shifts the time axis before evaluation. It is zero for
	// every model except Duong, whose rate equation is singular at t=0.
	TimeOffset() float64
}

// New returns the model implementation for the given type.
func New(mt ModelType) (Model, error) {
	switch mt {
	case Exponential:
		return exponentialModel{}, nil
	case Hyperbolic:
		return hyperbolicModel{}, nil
	case Harmonic:
		return harmonicModel{}, nil
	case ModifiedHyperbolic:
		return modifiedHyperbolicModel{}, nil
	case StretchedExp:
		return sedmModel{}, nil
	case Duong:
		return duongModel{}, nil
	default:
		return nil, fmt.Errorf("unknown decline model type %q", mt)
	}
}

// AllTypes lists every supported model type, in fitting order.
func AllTypes() []ModelType {
	return []ModelType{Exponential, Hyperbolic, Harmonic, ModifiedHyperbolic, StretchedExp, Duong}
}

// ParamsToMap pairs a parameter vector with its model's parameter names.
func ParamsToMap(m Model, p []float64) map[string]float64 {
	out := make(map[string]float64, len(p))
	for i, name := range m.ParamNames() {
		out[name] = p[i]
	}
	return out
}

// ParamsFromMap rebuilds the ordered parameter vector from a stored map.
func ParamsFromMap(m Model, params map[string]float64) ([]float64, error) {
	names := m.ParamNames()
	p := make([]float64, len(names))
	for i, name := range names {
		v, ok := params[name]
		if !ok {
			return nil, fmt.Errorf("missing parameter %q for model %s", name, m.Type())
		}
		p[i] = v
	}
	return p, nil
}

// declineGuess estimates the nominal decline rate from the first and last
// positive observations, falling back to 5% per month for flat series.
func declineGuess(t, q []float64) float64 {
	qi := q[0]
	last := len(q) - 1
	if last > 0 && q[last] > 0 && qi > 0 && t[last] > t[0] {
		if d := -math.Log(q[last]/qi) / (t[last] - t[0]); d > 1e-6 {
			return d
		}
		return 1e-6
	}
	return 0.05
}

// ---------------------------------------------------------------------------
// Exponential: q(t) = qi * exp(-Di*t). EUR = qi/Di, always finite.

type exponentialModel struct{}

func (exponentialModel) Type() ModelType      { return Exponential }
func (exponentialModel) ParamNames() []string { return []string{"qi", "di"} }
func (exponentialModel) MinPoints() int       { return 6 }
func (exponentialModel) TimeOffset() float64  { return 0 }

func (exponentialModel) Rate(t float64, p []float64) float64 {
	return p[0] * math.Exp(-p[1]*t)
}

func (exponentialModel) Cumulative(t float64, p []float64) float64 {
	qi, di := p[0], p[1]
	return (qi / di) * (1.0 - math.Exp(-di*t))
}

func (exponentialModel) Bounds() ([]float64, []float64) {
	return []float64{1.0, 1e-6}, []float64{1e6, 5.0}
}

func (exponentialModel) InitialGuess(t, q []float64) []float64 {
	return []float64{q[0], declineGuess(t, q)}
}

// ---------------------------------------------------------------------------
// Hyperbolic: q(t) = qi * (1 + b*Di*t)^(-1/b).

type hyperbolicModel struct{}

func (hyperbolicModel) Type() ModelType      { return Hyperbolic }
func (hyperbolicModel) ParamNames() []string { return []string{"qi", "di", "b"} }
func (hyperbolicModel) MinPoints() int       { return 8 }
func (hyperbolicModel) TimeOffset() float64  { return 0 }

func (hyperbolicModel) Rate(t float64, p []float64) float64 {
	qi, di, b := p[0], p[1], p[2]
	return qi * math.Pow(1.0+b*di*t, -1.0/b)
}

func (m hyperbolicModel) Cumulative(t float64, p []float64) float64 {
	qi, di, b := p[0], p[1], p[2]
	if math.Abs(b-1.0) < 1e-10 {
		return (qi / di) * math.Log(1.0+di*t)
	}
	qt := m.Rate(t, p)
	return (math.Pow(qi, b) / ((1.0 - b) * di)) * (math.Pow(qi, 1.0-b) - math.Pow(qt, 1.0-b))
}

func (hyperbolicModel) Bounds() ([]float64, []float64) {
	return []float64{1.0, 1e-6, 1e-3}, []float64{1e6, 5.0, 2.0}
}

func (hyperbolicModel) InitialGuess(t, q []float64) []float64 {
	return []float64{q[0], declineGuess(t, q), 0.5}
}

// ---------------------------------------------------------------------------
// Harmonic: q(t) = qi / (1 + Di*t). Hyperbolic with b = 1; EUR diverges
// without an economic limit.

type harmonicModel struct{}

func (harmonicModel) Type() ModelType      { return Harmonic }
func (harmonicModel) ParamNames() []string { return []string{"qi", "di"} }
func (harmonicModel) MinPoints() int       { return 6 }
func (harmonicModel) TimeOffset() float64  { return 0 }

func (harmonicModel) Rate(t float64, p []float64) float64 {
	return p[0] / (1.0 + p[1]*t)
}

func (harmonicModel) Cumulative(t float64, p []float64) float64 {
	qi, di := p[0], p[1]
	return (qi / di) * math.Log(1.0+di*t)
}

func (harmonicModel) Bounds() ([]float64, []float64) {
	return []float64{1.0, 1e-6}, []float64{1e6, 5.0}
}

func (harmonicModel) InitialGuess(t, q []float64) []float64 {
	return []float64{q[0], declineGuess(t, q)}
}

// ---------------------------------------------------------------------------
// Modified hyperbolic: hyperbolic decline until the instantaneous decline
// rate D(t) = Di / (1 + b*Di*t) falls to Dmin, exponential at Dmin after.
// The switch caps the EUR overestimation of long hyperbolic tails.

type modifiedHyperbolicModel struct{}

func (modifiedHyperbolicModel) Type() ModelType { return ModifiedHyperbolic }
func (modifiedHyperbolicModel) ParamNames() []string {
	return []string{"qi", "di", "b", "d_min"}
}
func (modifiedHyperbolicModel) MinPoints() int      { return 10 }
func (modifiedHyperbolicModel) TimeOffset() float64 { return 0 }

func switchTime(di, b, dmin float64) float64 {
	return (di - dmin) / (b * di * dmin)
}

func (modifiedHyperbolicModel) Rate(t float64, p []float64) float64 {
	qi, di, b, dmin := p[0], p[1], p[2], p[3]
	if dmin >= di {
		return qi * math.Exp(-dmin*t)
	}
	ts := switchTime(di, b, dmin)
	if t <= ts {
		return hyperbolicModel{}.Rate(t, p[:3])
	}
	qs := hyperbolicModel{}.Rate(ts, p[:3])
	return qs * math.Exp(-dmin*(t-ts))
}

func (modifiedHyperbolicModel) Cumulative(t float64, p []float64) float64 {
	qi, di, b, dmin := p[0], p[1], p[2], p[3]
	if dmin >= di {
		return (qi / dmin) * (1.0 - math.Exp(-dmin*t))
	}
	ts := switchTime(di, b, dmin)
	hyp := hyperbolicModel{}
	if t <= ts {
		return hyp.Cumulative(t, p[:3])
	}
	qs := hyp.Rate(ts, p[:3])
	cumAtSwitch := hyp.Cumulative(ts, p[:3])
	return cumAtSwitch + (qs/dmin)*(1.0-math.Exp(-dmin*(t-ts)))
}

func (modifiedHyperbolicModel) Bounds() ([]float64, []float64) {
	return []float64{1.0, 1e-6, 1e-3, 1e-4}, []float64{1e6, 5.0, 2.0, 0.5}
}

func (modifiedHyperbolicModel) InitialGuess(t, q []float64) []float64 {
	return []float64{q[0], declineGuess(t, q), 1.0, 0.005}
}

// ---------------------------------------------------------------------------
// Stretched exponential (Valko & Lee): q(t) = qi * exp(-(t/tau)^n).
// EUR = (qi*tau/n) * Gamma(1/n) is finite for any parameters, which is the
// model's main appeal for unconventional wells.

type sedmModel struct{}

func (sedmModel) Type() ModelType      { return StretchedExp }
func (sedmModel) ParamNames() []string { return []string{"qi", "tau", "n"} }
func (sedmModel) MinPoints() int       { return 8 }
func (sedmModel) TimeOffset() float64  { return 0 }

func (sedmModel) Rate(t float64, p []float64) float64 {
	qi, tau, n := p[0], p[1], p[2]
	return qi * math.Exp(-math.Pow(t/tau, n))
}

func (sedmModel) Cumulative(t float64, p []float64) float64 {
	qi, tau, n := p[0], p[1], p[2]
	eur := (qi * tau / n) * math.Gamma(1.0/n)
	return eur * mathext.GammaIncReg(1.0/n, math.Pow(t/tau, n))
}

func (sedmModel) Bounds() ([]float64, []float64) {
	return []float64{1.0, 0.1, 0.01}, []float64{1e6, 1e5, 1.0}
}

func (sedmModel) InitialGuess(t, q []float64) []float64 {
	tau := t[len(t)-1] / 2.0
	if tau < 1.0 {
		tau = 1.0
	}
	return []float64{q[0], tau, 0.5}
}

// ---------------------------------------------------------------------------
// Duong (fracture-dominated linear flow):
// q(t) = qi * t^(-m) * exp(a/(1-m) * (t^(1-m) - 1)), with qi the rate at
// t=1 month. Cumulative follows Duong's identity Np(t) = q(t)*t/a.

type duongModel struct{}

func (duongModel) Type() ModelType      { return Duong }
func (duongModel) ParamNames() []string { return []string{"qi", "a", "m"} }
func (duongModel) MinPoints() int       { return 10 }
func (duongModel) TimeOffset() float64  { return 1 }

func (duongModel) Rate(t float64, p []float64) float64 {
	qi, a, m := p[0], p[1], p[2]
	if t < 1e-10 {
		t = 1e-10
	}
	exponent := (a / (1.0 - m)) * (math.Pow(t, 1.0-m) - 1.0)
	return qi * math.Pow(t, -m) * math.Exp(exponent)
}

func (d duongModel) Cumulative(t float64, p []float64) float64 {
	if t < 1e-10 {
		t = 1e-10
	}
	return d.Rate(t, p) * t / p[1]
}

func (duongModel) Bounds() ([]float64, []float64) {
	return []float64{0.1, 0.1, 1.001}, []float64{1e6, 10.0, 3.0}
}

func (duongModel) InitialGuess(t, q []float64) []float64 {
	return []float64{q[0], 1.5, 1.2}
}
