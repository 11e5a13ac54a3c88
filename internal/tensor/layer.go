package tensor

// OpKind identifies the operation a Layer performs.
type OpKind int

const (
	OpInput OpKind = iota
	OpConv2D
	OpConv2DTranspose
	OpMaxPool2D
	OpUpSampling2D
	OpConcat
	OpBatchNorm
	OpGroupNorm
	OpDropout
	OpActivation
	OpAdd
)

var opNames = map[OpKind]string{
	OpInput:           "Input",
	OpConv2D:          "Conv2D",
	OpConv2DTranspose: "Conv2DTranspose",
	OpMaxPool2D:       "MaxPool2D",
	OpUpSampling2D:    "UpSampling2D",
	OpConcat:          "Concatenate",
	OpBatchNorm:       "BatchNorm",
	OpGroupNorm:       "GroupNorm",
	OpDropout:         "Dropout",
	OpActivation:      "Activation",
	OpAdd:             "Add",
}

func (k OpKind) String() string {
	if s, ok := opNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Param is a single learnable parameter of a Layer. Data stays nil until
// weights are loaded; graph construction itself is purely symbolic.
type Param struct {
	Name        string
	Shape       []int
	Initializer string
	Data        []float32
}

// Elements returns the number of scalar values the parameter holds.
func (p *Param) Elements() int {
	n := 1
	for _, d := range p.Shape {
		n *= d
	}
	return n
}

// Layer is one named node of the computation graph. Fields that do not apply
// to a given op are left at their zero value.
type Layer struct {
	Name      string
	Op        OpKind
	Inputs    []*Tensor
	Output    *Tensor
	Trainable bool
	Params    []*Param

	// Conv2D / Conv2DTranspose / MaxPool2D / UpSampling2D attributes.
	KernelSize int
	Stride     int
	Filters    int
	UseBias    bool
	PoolSize   int
	Factor     int

	// Fused or standalone activation function identifier ("relu", "sigmoid",
	// "softmax", ...). Empty means linear.
	Activation string

	// GroupNorm group count.
	Groups int

	// Dropout rate.
	Rate float64
}

// Tensor is the symbolic output of a Layer.
type Tensor struct {
	graph *Graph
	layer *Layer
	shape Shape
}

// Shape returns the inferred shape of the tensor.
func (t *Tensor) Shape() Shape { return t.shape }

// Layer returns the layer that produced the tensor.
func (t *Tensor) Layer() *Layer { return t.layer }

// Graph returns the graph the tensor belongs to.
func (t *Tensor) Graph() *Graph { return t.graph }
