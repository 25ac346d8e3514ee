package repair

import (
	"context"
	"strings"
)

// Capture is an in-memory input to Classify
type Capture struct {
	Name string
	Data []byte
}

// Classification partitions inputs by whether they pass the plan's
// validation. Both lists keep input order.
type Classification struct {
	Good    []string
	Bad     []string
	Reasons map[string]error // Why each bad input failed
}

func newClassification() Classification {
	return Classification{Reasons: make(map[string]error)}
}

func (c *Classification) add(name string, err error) {
	if err == nil {
		c.Good = append(c.Good, name)
		return
	}
	c.Bad = append(c.Bad, name)
	c.Reasons[name] = err
}

func checkPlan(plan *Plan) error {
	if plan.Modifies() {
		return configError("cannot check and modify at the same time (%s)", strings.Join(plan.Modifications(), ", "))
	}
	if !plan.Validate() {
		return configError("check without validate makes no sense")
	}
	return nil
}

// Classify validates each capture as-is and sorts it into good or bad. No
// repaired output is produced. A plan that modifies data is rejected before
// any capture is looked at.
func Classify(ctx context.Context, inputs []Capture, plan *Plan) (Classification, error) {
	if err := checkPlan(plan); err != nil {
		return Classification{}, err
	}

	errs := make([]error, len(inputs))
	err := forEach(ctx, len(inputs), 0, func(i int) {
		_, errs[i] = Fix(inputs[i].Data, plan, nil)
	})
	if err != nil {
		return Classification{}, err
	}

	c := newClassification()
	for i, in := range inputs {
		c.add(in.Name, errs[i])
	}
	return c, nil
}

// ClassifyFiles is Classify over files on disk. Unreadable files are bad.
func ClassifyFiles(ctx context.Context, paths []string, plan *Plan, opts BatchOptions) (Classification, error) {
	if err := checkPlan(plan); err != nil {
		return Classification{}, err
	}

	results, err := Batch(ctx, paths, plan, opts)
	if err != nil {
		return Classification{}, err
	}

	c := newClassification()
	for _, r := range results {
		c.add(r.Path, r.Err)
	}
	return c, nil
}
