package convert

import (
	"context"
	"encoding/json"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

// BatchJob is one workflow to convert in a batch run.
type BatchJob struct {
	Name      string // identifier, usually the source file path
	Direction schema.Direction
	Raw       []byte // the workflow document as JSON
}

// BatchOutcome is the result of one batch job. Output is the converted
// document as JSON; on failure Err is set and Output is nil.
type BatchOutcome struct {
	Name   string
	Output []byte
	Report *schema.ConversionReport
	Err    error
}

// ConvertBatch converts many workflows with bounded concurrency. Outcomes are
// returned in job order. Individual failures do not abort the batch; a
// cancelled context stops submission and is reported on the remaining jobs.
func (c *Converter) ConvertBatch(ctx context.Context, jobs []BatchJob, concurrency int) []BatchOutcome {
	outcomes := make([]BatchOutcome, len(jobs))

	pool := NewPool(concurrency)
	defer pool.Shutdown()

	for i := range jobs {
		i := i
		job := jobs[i]
		outcomes[i].Name = job.Name
		err := pool.Submit(ctx, func(ctx context.Context) error {
			out, report, err := c.convertRaw(ctx, job)
			outcomes[i].Output, outcomes[i].Report, outcomes[i].Err = out, report, err
			return err
		})
		if err != nil {
			outcomes[i].Err = err
		}
	}
	pool.Wait()

	return outcomes
}

func (c *Converter) convertRaw(ctx context.Context, job BatchJob) ([]byte, *schema.ConversionReport, error) {
	var result any
	var report *schema.ConversionReport

	switch job.Direction {
	case schema.ScenarioToGraph:
		var sc schema.Scenario
		if err := json.Unmarshal(job.Raw, &sc); err != nil {
			return nil, nil, schema.NewErrorf(schema.ErrCodeParse, "parse scenario %s: %s", job.Name, err.Error()).WithCause(err)
		}
		wf, rep, err := c.ScenarioToGraph(ctx, &sc)
		if err != nil {
			return nil, nil, err
		}
		result, report = wf, rep

	case schema.GraphToScenario:
		var wf schema.GraphWorkflow
		if err := json.Unmarshal(job.Raw, &wf); err != nil {
			return nil, nil, schema.NewErrorf(schema.ErrCodeParse, "parse graph workflow %s: %s", job.Name, err.Error()).WithCause(err)
		}
		sc, rep, err := c.GraphToScenario(ctx, &wf)
		if err != nil {
			return nil, nil, err
		}
		result, report = sc, rep

	default:
		return nil, nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown direction %q", job.Direction)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, nil, schema.NewError(schema.ErrCodeValidation, "marshal converted workflow").WithCause(err)
	}
	return out, report, nil
}
