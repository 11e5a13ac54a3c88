/*
Package tensor implements a small symbolic tensor graph: named layer nodes with
shape inference, but no numeric execution.

A Graph is an append-only builder. Every op call creates exactly one named
Layer, infers the output Shape, and returns the symbolic output Tensor. Layer
names must be unique within a Graph; construction fails otherwise. Because
names are supplied by the caller and never generated, two builds that issue
the same op sequence produce byte-identical node identifiers.

Once a sub-graph is complete, NewModel packages an input and an output tensor
into an immutable Model: the set of layers reachable from the output, in
creation order, together with parameter metadata for weight persistence.

Shapes carry three dimensions (the batch axis is implicit) and follow the
Graph's DataFormat. A dimension of 0 means "unknown/variable" and is
compatible with any concrete value during shape checks.
*/
package tensor
