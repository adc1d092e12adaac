package trace_test

import (
	"fmt"

	"github.com/matzehuels/tracegraph/pkg/trace"
)

func ExampleParse() {
	raw := `digraph regexp {
  0 -> 1 [label="ab"];
}
digraph regexp {
  1 -> 2 [label="b{2}"];
}
// End of index
digraph regexp {
  2 -> 3 [label="c"];
}
// End of index
`
	for _, pos := range trace.Parse(raw, trace.DelimiterIndex) {
		for _, tick := range pos.Ticks {
			fmt.Println(tick)
		}
	}
	// Output:
	// 0_0
	// 0_1
	// 1_0
}

func ExampleResolveDelimiter() {
	d, _ := trace.ResolveDelimiter("offset", "")
	fmt.Println(d.Marker)

	d, _ = trace.ResolveDelimiter("offset", "// next position")
	fmt.Println(d.Name, d.Marker)
	// Output:
	// // End of offset
	// custom // next position
}
