package temporal

import (
	"log"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/antigravity-dev/webforge/internal/orchestrator"
)

// TaskQueue is the Temporal task queue build workflows and activities run
// on.
const TaskQueue = "webforge-build-queue"

// StartWorker connects to Temporal and runs the build task queue worker.
// Grounded on the teacher repo's own internal/temporal.StartWorker: dial,
// construct one Activities from already-built collaborators, register
// workflows/activities, run until interrupted.
func StartWorker(multi *orchestrator.Multi, sessions *orchestrator.SessionStore, hostPort string) error {
	if hostPort == "" {
		hostPort = "127.0.0.1:7233"
	}
	c, err := client.Dial(client.Options{HostPort: hostPort})
	if err != nil {
		return err
	}
	defer c.Close()

	w := worker.New(c, TaskQueue, worker.Options{})

	acts := NewActivities(multi, sessions)

	w.RegisterWorkflow(BuildWorkflow)
	w.RegisterWorkflow(RetryPageWorkflow)

	w.RegisterActivity(acts.RunBuildActivity)
	w.RegisterActivity(acts.CancelBuildActivity)
	w.RegisterActivity(acts.RetryPageActivity)

	log.Printf("Temporal worker started on %s\n", TaskQueue)
	return w.Run(worker.InterruptCh())
}
