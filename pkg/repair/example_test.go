package repair_test

import (
	"bytes"
	"fmt"
	"log"

	"github.com/ssargent/fitfix/pkg/fit/fittest"
	"github.com/ssargent/fitfix/pkg/repair"
)

// ExampleFix cuts a garbage tail off a capture that lost its checksum and
// seals it again
func ExampleFix() {
	records := fittest.New().Records(12)
	garbled := append(records.Unsealed(), fittest.Garbage(40, 4)...)

	plan, err := repair.NewPlan(repair.Options{
		Drop:        true,
		FixChecksum: true,
		Validate:    true,
		Bounds:      repair.DefaultBounds(),
	})
	if err != nil {
		log.Fatal(err)
	}

	res, err := repair.Fix(garbled, plan, nil)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Drops: %d\n", len(res.Report.Drops))
	fmt.Printf("Dropped bytes: %d\n", res.Report.Dropped())
	fmt.Printf("Restored: %v\n", bytes.Equal(res.Data, records.Bytes()))

	// Output:
	// Drops: 1
	// Dropped bytes: 40
	// Restored: true
}

// ExampleParseSlices keeps the header and skips the next 14 bytes
func ExampleParseSlices() {
	spans, err := repair.ParseSlices(":14, 28:")
	if err != nil {
		log.Fatal(err)
	}

	buf := make([]byte, 40)
	fmt.Println(repair.FormatSlices(spans))
	fmt.Println(len(repair.Extract(buf, spans)))

	// Output:
	// :14,28:
	// 26
}

// ExampleNewPlan shows a check plan rejecting a repair option
func ExampleNewPlan() {
	_, err := repair.NewPlan(repair.Options{Check: true, Validate: true, Drop: true})
	fmt.Println(err)

	// Output:
	// configuration error: cannot check and modify at the same time (drop)
}
