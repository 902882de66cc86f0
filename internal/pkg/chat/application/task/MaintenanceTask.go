package task

import (
	"context"
	"time"

	qport "marketplace-chat/internal/infrastructure/queue/port"
	"marketplace-chat/internal/pkg/chat/application/archival"
)

const (
	ArchiveInactiveTaskType = "chat:archive_inactive"
	CleanupImagesTaskType   = "chat:cleanup_images"

	// QueueMaintenance keeps long batch runs away from chat side effects.
	QueueMaintenance = "maintenance"
)

// RegisterMaintenanceTasks binds both archival jobs to the server.
func RegisterMaintenanceTasks(srv qport.Server, jobs *archival.Jobs) {
	srv.Register(ArchiveInactiveTaskType, maintenanceHandler(jobs, archival.JobArchive))
	srv.Register(CleanupImagesTaskType, maintenanceHandler(jobs, archival.JobCleanup))
}

func maintenanceHandler(jobs *archival.Jobs, job string) qport.Handler {
	return func(ctx context.Context, _ qport.Task) error {
		_, err := jobs.Run(ctx, job, time.Now())
		return err
	}
}

// ScheduleMaintenance registers the daily cron entries. Uniqueness keeps a
// slow run from overlapping with the next trigger.
func ScheduleMaintenance(s qport.Scheduler, archiveCron, cleanupCron string) error {
	opt := qport.EnqueueOption{Queue: QueueMaintenance, MaxRetry: 3, UniqueTTL: time.Hour}
	if _, err := s.Register(archiveCron, qport.Task{Type: ArchiveInactiveTaskType}, opt); err != nil {
		return err
	}
	_, err := s.Register(cleanupCron, qport.Task{Type: CleanupImagesTaskType}, opt)
	return err
}
