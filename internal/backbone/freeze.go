package backbone

// Freeze marks every layer of the backbone non-trainable, including
// normalization statistics. Topology is untouched; the decoder built on top
// of a frozen encoder trains normally.
func Freeze(b *Backbone) {
	for _, l := range b.Layers() {
		l.Trainable = false
	}
}
