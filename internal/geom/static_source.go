package geom

import "context"

// StaticTransformSource serves a fixed transform for every lookup. Used
// when the camera mount calibration is known at startup (simulator and
// bench setups); a live transform service implements TransformSource
// directly.
type StaticTransformSource struct {
	T Transform
}

// Lookup returns the configured transform, honouring context
// cancellation so callers see the same timeout behaviour as a remote
// source.
func (s StaticTransformSource) Lookup(ctx context.Context, targetFrame, sourceFrame string) (Transform, error) {
	if err := ctx.Err(); err != nil {
		return Transform{}, err
	}
	return s.T, nil
}
