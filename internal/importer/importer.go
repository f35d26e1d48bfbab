package importer

import (
	"context"
	"fmt"
	"net/http"
)

// Op is the operation a row resolved to
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
)

// Result is how a single row ended
type Result string

const (
	Created Result = "created"
	Updated Result = "updated"
	Failed  Result = "failed"
)

// Outcome records what happened to one row
type Outcome struct {
	Row    int    `json:"row"`
	Op     Op     `json:"op"`
	Result Result `json:"result"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// String renders a failed outcome as "Row N (create): message"
func (o Outcome) String() string {
	return fmt.Sprintf("Row %d (%s): %s", o.Row, o.Op, o.Reason)
}

// Upserter performs find-or-create/update for one entity. Find must report
// found=false without an error when the row has no usable natural key so the
// failure is reported by Validate.
type Upserter interface {
	Validate(row Row) error
	Find(ctx context.Context, row Row) (id string, found bool, err error)
	Create(ctx context.Context, row Row) (id string, err error)
	Update(ctx context.Context, id string, row Row) error
}

// Report aggregates the outcomes of a batch
type Report struct {
	TotalRows    int       `json:"total_rows"`
	CreatedCount int       `json:"created_count"`
	UpdatedCount int       `json:"updated_count"`
	FailedCount  int       `json:"failed_count"`
	Errors       []string  `json:"errors"`
	CreatedIDs   []string  `json:"created_ids,omitempty"`
	UpdatedIDs   []string  `json:"updated_ids,omitempty"`
	Outcomes     []Outcome `json:"-"`
}

// Status is 200 when every row succeeded and 206 when some failed
func (r *Report) Status() int {
	if r.FailedCount > 0 {
		return http.StatusPartialContent
	}
	return http.StatusOK
}

func (r *Report) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Result {
	case Created:
		r.CreatedCount++
		r.CreatedIDs = append(r.CreatedIDs, o.ID)
	case Updated:
		r.UpdatedCount++
		r.UpdatedIDs = append(r.UpdatedIDs, o.ID)
	default:
		r.FailedCount++
		r.Errors = append(r.Errors, o.String())
	}
}

// Run upserts rows in order. A failing row is recorded and the batch moves
// on; rows already written stay written. Once ctx is done the remaining rows
// are reported as failed.
func Run(ctx context.Context, rows []Row, u Upserter) *Report {
	report := &Report{TotalRows: len(rows), Errors: []string{}}
	for _, row := range rows {
		report.add(runRow(ctx, row, u))
	}
	return report
}

func runRow(ctx context.Context, row Row, u Upserter) Outcome {
	out := Outcome{Row: row.Number, Op: OpCreate}
	fail := func(err error) Outcome {
		out.Result = Failed
		out.Reason = err.Error()
		return out
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	id, found, err := u.Find(ctx, row)
	if err != nil {
		return fail(err)
	}
	if found {
		out.Op = OpUpdate
		out.ID = id
	}

	if err := u.Validate(row); err != nil {
		return fail(err)
	}

	if found {
		if err := u.Update(ctx, id, row); err != nil {
			return fail(err)
		}
		out.Result = Updated
		return out
	}

	id, err = u.Create(ctx, row)
	if err != nil {
		return fail(err)
	}
	out.ID = id
	out.Result = Created
	return out
}
