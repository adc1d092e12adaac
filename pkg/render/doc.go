// Package render turns tick graphs into images and stacks the images of a
// position into one strip.
//
// # Renderers
//
// A [Renderer] draws one [trace.GraphDocument]. It first writes the graph
// source to the raw graph path, then produces the image file:
//
//   - [DotRenderer] runs the external Graphviz binary:
//     dot -T<format> -o <image> <graph>
//   - [EmbeddedRenderer] lays the graph out in-process with
//     [github.com/goccy/go-graphviz], so no dot binary is needed.
//   - [CachingRenderer] wraps another renderer and reuses images keyed by
//     the graph source hash and format.
//
// Render calls are independent and may run concurrently.
//
// # Compositor
//
// A [Compositor] stacks the rendered ticks of a position top to bottom in
// tick order. [ConvertCompositor] runs ImageMagick:
//
//	convert <img0> <img1> ... -append <out>
//
// Failures are reported as [errors.RenderError] and [errors.CompositeError],
// carrying the coordinates and the captured tool output. Nothing is retried.
//
// [errors.RenderError]: github.com/matzehuels/tracegraph/pkg/errors.RenderError
// [errors.CompositeError]: github.com/matzehuels/tracegraph/pkg/errors.CompositeError
package render
