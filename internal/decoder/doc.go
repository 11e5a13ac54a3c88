/*
Package decoder assembles the U-shaped half of a segmentation model: given a
constructed encoder, it derives skip connections, optionally inserts a center
block, stacks decoder stages, and terminates the graph in a classification
head.

The assembly is a multi-phase construction, and every phase can only fail
with a configuration or shape error; there is no partial result:

 1. Skip resolution: each skip descriptor (layer name or positional index)
    is resolved against the encoder. An unknown reference aborts the build.

 2. Center block: if the encoder's terminal layer is a spatial pooling op,
    two fixed 512-channel conv blocks are inserted before the stage loop.
    This compensates for encoders (VGG-style) whose last functional layer is
    not a convolution.

 3. Stage loop: stage i upsamples the running tensor by 2, fuses skip i if
    one is bound (stages beyond the skip list run without fusion), and
    convolves at the stage's filter width. Two interchangeable stage
    variants exist; the choice applies uniformly to the whole model.

 4. Head: a 3x3 convolution maps to the class count, followed by the final
    activation, and the graph is packaged into an immutable model.

Every node name is a pure function of its role and stage index, so two
builds with the same configuration produce identical graphs.
*/
package decoder
