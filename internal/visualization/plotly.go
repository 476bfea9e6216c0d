// Package visualization renders fitted Hansen spheres as Plotly figure
// payloads.  The server never draws anything itself: the JSON produced here
// is handed to a Plotly-capable frontend as-is.
//
// The Hansen metric weights the δD axis 4×, so a sphere in weighted space is
// an ellipsoid in true Euclidean space.  Every mesh produced here uses the
// sphere's SemiAxes (radius/2 along δD, radius along δP and δH) so the
// rendered region matches what the classifier actually accepts.
package visualization

import (
	"math"

	"github.com/turtacn/mixingcompass/internal/domain/hsp"
	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mixingcompass/pkg/errors"
)

// ---------------------------------------------------------------------------
// Formats and options
// ---------------------------------------------------------------------------

// Format selects the payload dialect.  Only Plotly is implemented; the enum
// exists so the HTTP layer can reject unknown formats with a typed error.
type Format string

const (
	FormatPlotly Format = "plotly"
)

// ParseFormat validates a format name.  Empty defaults to Plotly.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatPlotly:
		return FormatPlotly, nil
	default:
		return "", errors.Newf(errors.ErrCodeVisualizationUnsupported,
			"unsupported visualization format %q", s)
	}
}

// Options tunes the rendered figure.  Zero values take defaults.
type Options struct {
	// Resolution is the mesh density of the ellipsoid surface per
	// parametric direction.  Default 25.
	Resolution int
	// Width and Height of the figure in pixels.  Defaults 800×600.
	Width  int
	Height int
}

const (
	defaultResolution = 25
	minResolution     = 4
	defaultWidth      = 800
	defaultHeight     = 600

	// Score thresholds for point coloring.  Distinct from the 0.5
	// classification threshold: the plot separates partial solubility
	// visually even though the classifier treats it as binary.
	goodScoreThreshold    = 0.7
	partialScoreThreshold = 0.3

	colorGood    = "#1976d2"
	colorPartial = "#ff9800"
	colorPoor    = "#d32f2f"
	colorCenter  = "#32CD32"
)

func (o Options) withDefaults() Options {
	if o.Resolution < minResolution {
		o.Resolution = defaultResolution
	}
	if o.Width <= 0 {
		o.Width = defaultWidth
	}
	if o.Height <= 0 {
		o.Height = defaultHeight
	}
	return o
}

// ---------------------------------------------------------------------------
// Plotly payload types
// ---------------------------------------------------------------------------

// SurfaceTrace is a Plotly "surface" trace carrying the ellipsoid mesh.
type SurfaceTrace struct {
	Type          string          `json:"type"`
	X             [][]float64     `json:"x"`
	Y             [][]float64     `json:"y"`
	Z             [][]float64     `json:"z"`
	Name          string          `json:"name"`
	Opacity       float64         `json:"opacity"`
	Colorscale    [][]interface{} `json:"colorscale"`
	ShowScale     bool            `json:"showscale"`
	HoverTemplate string          `json:"hovertemplate"`
}

// MarkerLine is the outline of a scatter marker.
type MarkerLine struct {
	Width float64 `json:"width"`
	Color string  `json:"color"`
}

// Marker styles the points of a scatter trace.  Color is either one string
// shared by the trace or a per-point slice.
type Marker struct {
	Size    float64     `json:"size"`
	Color   interface{} `json:"color"`
	Symbol  string      `json:"symbol"`
	Opacity float64     `json:"opacity"`
	Line    MarkerLine  `json:"line"`
}

// ScatterTrace is a Plotly "scatter3d" trace for solvent and center points.
type ScatterTrace struct {
	Type          string    `json:"type"`
	Mode          string    `json:"mode"`
	X             []float64 `json:"x"`
	Y             []float64 `json:"y"`
	Z             []float64 `json:"z"`
	Name          string    `json:"name"`
	ShowLegend    bool      `json:"showlegend"`
	Marker        Marker    `json:"marker"`
	Text          []string  `json:"text,omitempty"`
	HoverTemplate string    `json:"hovertemplate"`
	CustomData    []float64 `json:"customdata,omitempty"`
}

// Axis configures one scene axis.
type Axis struct {
	Title string     `json:"title"`
	Range [2]float64 `json:"range"`
}

// Camera positions the initial 3-D viewpoint.
type Camera struct {
	Eye struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
		Z float64 `json:"z"`
	} `json:"eye"`
}

// Scene is the 3-D plot area configuration.
type Scene struct {
	XAxis       Axis   `json:"xaxis"`
	YAxis       Axis   `json:"yaxis"`
	ZAxis       Axis   `json:"zaxis"`
	Camera      Camera `json:"camera"`
	AspectMode  string `json:"aspectmode"`
	AspectRatio struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
		Z float64 `json:"z"`
	} `json:"aspectratio"`
}

// Margin is the figure margin in pixels.
type Margin struct {
	L int `json:"l"`
	R int `json:"r"`
	T int `json:"t"`
	B int `json:"b"`
}

// Layout is the Plotly figure layout.
type Layout struct {
	Title      string `json:"title"`
	Scene      Scene  `json:"scene"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Margin     Margin `json:"margin"`
	ShowLegend bool   `json:"showlegend"`
}

// Figure is a complete Plotly figure: traces plus layout, ready to be fed to
// Plotly.newPlot on the client.
type Figure struct {
	Data   []interface{} `json:"data"`
	Layout Layout        `json:"layout"`
}

// ---------------------------------------------------------------------------
// Builder
// ---------------------------------------------------------------------------

// Builder produces Plotly figures from fitted spheres and their datasets.
type Builder struct {
	logger logging.Logger
}

// NewBuilder constructs a figure builder.
func NewBuilder(logger logging.Logger) *Builder {
	if logger == nil {
		logger = logging.Default()
	}
	return &Builder{logger: logger.Named("visualization")}
}

// Render builds the figure for one fitted sphere and the observations it was
// fitted on.  Observations may be empty; the sphere must be valid.
func (b *Builder) Render(sphere hsp.HansenSphere, observations []hsp.SolventObservation, opts Options) (*Figure, error) {
	if err := sphere.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeVisualizationNoSphere, "cannot render sphere")
	}
	opts = opts.withDefaults()

	semiD, semiP, semiH := sphere.SemiAxes()
	meshX, meshY, meshZ := ellipsoidMesh(sphere.Center, semiD, semiP, semiH, opts.Resolution)

	traces := []interface{}{
		SurfaceTrace{
			Type:    "surface",
			X:       meshX,
			Y:       meshY,
			Z:       meshZ,
			Name:    "Hansen Sphere",
			Opacity: 0.35,
			Colorscale: [][]interface{}{
				{0.0, "rgba(76, 175, 80, 0.3)"},
				{1.0, "rgba(76, 175, 80, 0.3)"},
			},
			ShowScale:     false,
			HoverTemplate: "Hansen Sphere<extra></extra>",
		},
	}

	if len(observations) > 0 {
		traces = append(traces, solventTrace(observations))
	}
	traces = append(traces, centerTrace(sphere))

	axisMax := axisBound(sphere, observations, semiP)
	layout := buildLayout(sphere, axisMax, opts)

	b.logger.Debug("rendered Hansen sphere figure",
		logging.Int("points", len(observations)),
		logging.Int("resolution", opts.Resolution),
		logging.Float64("axis_max", axisMax))

	return &Figure{Data: traces, Layout: layout}, nil
}

// ellipsoidMesh evaluates the parametric ellipsoid surface on a
// resolution×resolution grid.
func ellipsoidMesh(center hsp.HSPPoint, semiD, semiP, semiH float64, resolution int) (x, y, z [][]float64) {
	x = make([][]float64, resolution)
	y = make([][]float64, resolution)
	z = make([][]float64, resolution)

	for i := 0; i < resolution; i++ {
		v := math.Pi * float64(i) / float64(resolution-1)
		x[i] = make([]float64, resolution)
		y[i] = make([]float64, resolution)
		z[i] = make([]float64, resolution)
		for j := 0; j < resolution; j++ {
			u := 2 * math.Pi * float64(j) / float64(resolution-1)
			x[i][j] = center.D + semiD*math.Cos(u)*math.Sin(v)
			y[i][j] = center.P + semiP*math.Sin(u)*math.Sin(v)
			z[i][j] = center.H + semiH*math.Cos(v)
		}
	}
	return x, y, z
}

func solventTrace(observations []hsp.SolventObservation) ScatterTrace {
	n := len(observations)
	t := ScatterTrace{
		Type:       "scatter3d",
		Mode:       "markers",
		X:          make([]float64, 0, n),
		Y:          make([]float64, 0, n),
		Z:          make([]float64, 0, n),
		Name:       "Solvent Points",
		ShowLegend: false,
		Text:       make([]string, 0, n),
		CustomData: make([]float64, 0, n),
		HoverTemplate: "<b>%{text}</b><br>δD: %{x:.1f}<br>δP: %{y:.1f}<br>" +
			"δH: %{z:.1f}<br>Solubility: %{customdata}<extra></extra>",
	}
	colors := make([]string, 0, n)
	for _, obs := range observations {
		t.X = append(t.X, obs.Point.D)
		t.Y = append(t.Y, obs.Point.P)
		t.Z = append(t.Z, obs.Point.H)
		t.Text = append(t.Text, obs.Name)
		t.CustomData = append(t.CustomData, obs.Score)
		colors = append(colors, ScoreColor(obs.Score))
	}
	t.Marker = Marker{
		Size:    3,
		Color:   colors,
		Symbol:  "circle",
		Opacity: 0.9,
		Line:    MarkerLine{Width: 0.5, Color: "rgba(255,255,255,0.6)"},
	}
	return t
}

func centerTrace(sphere hsp.HansenSphere) ScatterTrace {
	return ScatterTrace{
		Type:       "scatter3d",
		Mode:       "markers",
		X:          []float64{sphere.Center.D},
		Y:          []float64{sphere.Center.P},
		Z:          []float64{sphere.Center.H},
		Name:       "Hansen Center",
		ShowLegend: false,
		Marker: Marker{
			Size:    3,
			Color:   colorCenter,
			Symbol:  "circle",
			Opacity: 1.0,
			Line:    MarkerLine{Width: 0.5, Color: "rgba(50,205,50,0.8)"},
		},
		HoverTemplate: "<b>Hansen Center</b><br>δD: %{x:.1f}<br>δP: %{y:.1f}<br>δH: %{z:.1f}<extra></extra>",
	}
}

// ScoreColor maps a solubility score to its plot color.
func ScoreColor(score float64) string {
	switch {
	case score >= goodScoreThreshold:
		return colorGood
	case score >= partialScoreThreshold:
		return colorPartial
	default:
		return colorPoor
	}
}

// axisBound computes a shared upper bound for all three axes so the ellipsoid
// is not distorted by unequal scaling.  Axes run from 0 to this bound.
func axisBound(sphere hsp.HansenSphere, observations []hsp.SolventObservation, semiMax float64) float64 {
	maxCoord := math.Max(sphere.Center.D, math.Max(sphere.Center.P, sphere.Center.H)) + semiMax
	for _, obs := range observations {
		maxCoord = math.Max(maxCoord, obs.Point.D)
		maxCoord = math.Max(maxCoord, obs.Point.P)
		maxCoord = math.Max(maxCoord, obs.Point.H)
	}
	return math.Max(25, maxCoord+2)
}

func buildLayout(sphere hsp.HansenSphere, axisMax float64, opts Options) Layout {
	axis := func(title string) Axis {
		return Axis{Title: title, Range: [2]float64{0, axisMax}}
	}

	scene := Scene{
		XAxis:      axis("δD (Dispersion) [MPa^0.5]"),
		YAxis:      axis("δP (Polarity) [MPa^0.5]"),
		ZAxis:      axis("δH (Hydrogen Bonding) [MPa^0.5]"),
		AspectMode: "manual",
	}
	scene.Camera.Eye.X, scene.Camera.Eye.Y, scene.Camera.Eye.Z = 1.25, 1.25, 1.25
	scene.AspectRatio.X, scene.AspectRatio.Y, scene.AspectRatio.Z = 1, 1, 1

	return Layout{
		Title:      sphere.String(),
		Scene:      scene,
		Width:      opts.Width,
		Height:     opts.Height,
		Margin:     Margin{L: 0, R: 0, T: 40, B: 0},
		ShowLegend: true,
	}
}
