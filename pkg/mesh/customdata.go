package mesh

// LayerKind is the type of an attribute layer.
type LayerKind uint8

const (
	LayerFloat LayerKind = iota
	LayerColor
	LayerUV
)

// Width returns the number of floats a layer of this kind occupies.
func (k LayerKind) Width() int {
	switch k {
	case LayerColor:
		return 4
	case LayerUV:
		return 2
	default:
		return 1
	}
}

func (k LayerKind) String() string {
	switch k {
	case LayerColor:
		return "color"
	case LayerUV:
		return "uv"
	default:
		return "float"
	}
}

// Layer locates one attribute inside an element's Data block.
type Layer struct {
	Name   string
	Kind   LayerKind
	Offset int
	Width  int
}

// Of returns the layer's slice of data. The result aliases data.
func (l Layer) Of(data []float64) []float64 {
	return data[l.Offset : l.Offset+l.Width]
}

// CustomData describes the attribute layout shared by all elements of one
// kind.
type CustomData struct {
	Layers []Layer
	stride int
}

// Stride returns the total number of floats per element.
func (c *CustomData) Stride() int { return c.stride }

// Find returns the layer named name.
func (c *CustomData) Find(name string) (Layer, bool) {
	for _, l := range c.Layers {
		if l.Name == name {
			return l, true
		}
	}
	return Layer{}, false
}

// OfKind returns all layers of kind k.
func (c *CustomData) OfKind(k LayerKind) []Layer {
	var out []Layer
	for _, l := range c.Layers {
		if l.Kind == k {
			out = append(out, l)
		}
	}
	return out
}

func (c *CustomData) add(name string, kind LayerKind) Layer {
	l := Layer{Name: name, Kind: kind, Offset: c.stride, Width: kind.Width()}
	c.Layers = append(c.Layers, l)
	c.stride += l.Width
	return l
}

func (c *CustomData) clone() CustomData {
	return CustomData{Layers: append([]Layer(nil), c.Layers...), stride: c.stride}
}

func (c *CustomData) alloc() []float64 {
	if c.stride == 0 {
		return nil
	}
	return make([]float64, c.stride)
}

// Lerp writes a + (b-a)*t into dst. All three slices must have equal length;
// dst may alias a or b.
func Lerp(dst, a, b []float64, t float64) {
	for i := range dst {
		dst[i] = a[i] + (b[i]-a[i])*t
	}
}

// Mix writes the weighted sum of srcs into dst.
func Mix(dst []float64, srcs [][]float64, weights []float64) {
	for i := range dst {
		var s float64
		for j, src := range srcs {
			s += src[i] * weights[j]
		}
		dst[i] = s
	}
}
