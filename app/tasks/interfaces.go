package tasks

// TaskSchedulerInterface is the background queue used by the API and the
// rules file watcher.
//
//	scheduler := NewScheduler(workerCount)
//	scheduler.Start(NewImportRulesTask(path, store))
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewFetchPageTask(...))
type TaskSchedulerInterface interface {
	Start(startup ...TaskInterface)
	Stop()
	EnqueueTask(task TaskInterface) error
}
