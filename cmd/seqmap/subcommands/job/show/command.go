package show

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	prof "github.com/opst/seqmap/cmd/seqmap/config/profiles"
	"github.com/opst/seqmap/cmd/seqmap/rest"
	"github.com/opst/seqmap/cmd/seqmap/subcommands/common"
	apijobs "github.com/opst/seqmap/pkg/api/types/jobs"
	"github.com/youta-t/flarc"
)

const ARG_JOBID = "JOB_ID"

// Status is printed by `job show`.
type Status struct {
	JobId string `json:"job_id"`
	apijobs.Detail
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Show the status of a job.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_JOBID, Required: true,
				Help: "Id of the job to be shown",
			},
		},
		common.NewTask(Task),
		flarc.WithDescription(`
Ask the analysis API the status of the job once, and print it as JSON.
`),
	)
}

func Task(
	ctx context.Context,
	logger *log.Logger,
	profile *prof.Profile,
	client rest.Client,
	cl flarc.Commandline[struct{}],
	params []any,
) error {
	jobId := cl.Args()[ARG_JOBID][0]

	detail, err := client.GetJobStatus(ctx, jobId)
	if err != nil {
		return fmt.Errorf("%w: job: %s", err, jobId)
	}

	enc := json.NewEncoder(cl.Stdout())
	enc.SetIndent("", "    ")
	return enc.Encode(Status{JobId: jobId, Detail: detail})
}
