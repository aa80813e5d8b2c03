package stage

import (
	"errors"
	"io/fs"
	"os"

	"polyvox/internal/compile"
	"polyvox/internal/queue"
	"polyvox/internal/services"
)

// DecodeJob extracts the compiled job an item carries. On failure it returns
// a services.ErrValidation suitable for stage Prepare methods.
func DecodeJob(item *queue.Item) (compile.Job, error) {
	job, err := item.Job()
	if err != nil {
		return compile.Job{}, services.Wrap(
			services.ErrValidation, "stage", "decode job",
			"job configuration missing or invalid; resubmit the plan", err)
	}
	return job, nil
}

// RequireInput verifies a job's input file exists on disk. Inputs marked as
// planned outputs of upstream jobs must exist by the time the job runs.
func RequireInput(stageName, path string) error {
	if path == "" {
		return services.Wrap(services.ErrValidation, stageName, "check input", "no input path resolved", nil)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, stageName, "check input", "input "+path+" does not exist", nil)
		}
		return services.Wrap(services.ErrTransient, stageName, "check input", "stat "+path, err)
	}
	return nil
}
